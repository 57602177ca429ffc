package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recbox/config"
	"recbox/core/capture"
	"recbox/core/extract"
	"recbox/core/playback"
	"recbox/core/points"
	"recbox/core/review"
	"recbox/core/stats"
	"recbox/core/transcribe"
	"recbox/db"
	"recbox/kv"
	"recbox/logger"
	"recbox/repository"
	"recbox/storage"

	"github.com/gorilla/mux"
)

// Start initializes all components and runs the HTTP server until SIGINT or
// SIGTERM.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	})

	// Redis backs usage counters and (by default) the recording index.
	if err := db.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer db.CloseRedis()
	log.Println("Successfully connected to Redis")

	var store kv.Store
	switch cfg.KVBackend {
	case "mysql":
		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer db.CloseGormDB()
		var err error
		store, err = kv.NewGormStore(db.GormDB)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL kv store: %v", err)
		}
	case "redis", "":
		store = kv.NewRedisStore(db.RedisClient)
	default:
		log.Fatalf("Unknown KV_BACKEND: %s", cfg.KVBackend)
	}

	audioStore, err := storage.NewAudioFileStore(cfg.AudioDir)
	if err != nil {
		log.Fatalf("Failed to initialize audio store: %v", err)
	}

	var archive *storage.Archive
	if cfg.ArchiveEnabled() {
		archive, err = storage.NewArchive(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize audio archive: %v", err)
		}
	}

	recordingRepo := repository.NewKVRecordingRepository(store)
	counter := stats.NewRecorder(db.RedisClient)

	engine := playback.NewFFEngine(cfg.FFmpegPath)
	controller := playback.NewController(engine, audioStore)

	device := capture.NewFFmpegDevice(cfg.FFmpegPath, cfg.CaptureDir, cfg.InputFormat, cfg.InputDevice)
	session := capture.NewSession(device, audioStore, controller)

	extractor, err := extract.CreateProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create extraction provider: %v", err)
	}
	transcriber := transcribe.NewClient(cfg.TranscribeURL, cfg.TranscribeKey)

	pointsStore := points.NewStore(recordingRepo)
	workflow := review.NewWorkflow(recordingRepo, audioStore, transcriber, extractor,
		pointsStore, archive, counter, cfg.Language)

	apiHandler := NewAPIHandler(cfg, recordingRepo, audioStore, session, controller,
		workflow, pointsStore, counter)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Health and auth
	router.HandleFunc("/health", apiHandler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Recording index
	router.HandleFunc("/api/recordings", apiHandler.AuthMiddleware(apiHandler.ListRecordingsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/recordings/{id}", apiHandler.AuthMiddleware(apiHandler.GetRecordingHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/recordings/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteRecordingHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/recordings/{id}/points/{pointId}", apiHandler.AuthMiddleware(apiHandler.DeletePointHandler)).Methods(http.MethodDelete)

	// Capture lifecycle
	router.HandleFunc("/api/capture/start", apiHandler.AuthMiddleware(apiHandler.CaptureStartHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/capture/stop", apiHandler.AuthMiddleware(apiHandler.CaptureStopHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/capture/status", apiHandler.AuthMiddleware(apiHandler.CaptureStatusHandler)).Methods(http.MethodGet)

	// Review flow
	router.HandleFunc("/api/review", apiHandler.AuthMiddleware(apiHandler.ReviewStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/review/transcribe", apiHandler.AuthMiddleware(apiHandler.TranscribeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/review/extract", apiHandler.AuthMiddleware(apiHandler.ExtractHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/review/points/{pointId}", apiHandler.AuthMiddleware(apiHandler.RemoveReviewPointHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/review/save", apiHandler.AuthMiddleware(apiHandler.SaveHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/review/discard", apiHandler.AuthMiddleware(apiHandler.DiscardHandler)).Methods(http.MethodPost)

	// Playback
	router.HandleFunc("/api/playback/load/{id}", apiHandler.AuthMiddleware(apiHandler.PlaybackLoadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/toggle", apiHandler.AuthMiddleware(apiHandler.PlaybackToggleHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/seek", apiHandler.AuthMiddleware(apiHandler.PlaybackSeekHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/playfrom", apiHandler.AuthMiddleware(apiHandler.PlaybackPlayFromHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/unload", apiHandler.AuthMiddleware(apiHandler.PlaybackUnloadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playback/status", apiHandler.AuthMiddleware(apiHandler.PlaybackStatusHandler)).Methods(http.MethodGet)
	router.HandleFunc("/ws/playback", apiHandler.PlaybackStreamHandler)

	// Usage statistics
	router.HandleFunc("/api/stats", apiHandler.AuthMiddleware(apiHandler.StatsHandler)).Methods(http.MethodGet)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // transcription uploads are slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.String("addr", cfg.ServerAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	// Scoped-resource discipline: release capture and playback handles before
	// the process exits.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if session.State() == capture.StateRecording {
		if _, err := session.Stop(shutdownCtx); err != nil {
			logger.Warn("could not stop capture during shutdown", logger.ErrorField(err))
		}
	}
	controller.Unload(shutdownCtx)

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", logger.ErrorField(err))
	}
}

// corsMiddleware mirrors what the mobile client expects from the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
