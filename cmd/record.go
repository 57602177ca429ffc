package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

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

	"github.com/spf13/cobra"
)

var (
	recordTitle      string
	recordTranscribe bool
	recordExtract    bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture a meeting from the terminal",
	Long: `Start a capture, stop it with Ctrl-C, then optionally transcribe,
extract actionable points and save the recording. Exercises the whole
capture-review-save flow without the HTTP server.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		if recordExtract {
			recordTranscribe = true
		}

		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("Could not connect to Redis: %v", err)
		}
		defer db.CloseRedis()

		audioStore, err := storage.NewAudioFileStore(cfg.AudioDir)
		if err != nil {
			log.Fatalf("Could not initialize audio store: %v", err)
		}

		repo := repository.NewKVRecordingRepository(kv.NewRedisStore(db.RedisClient))
		counter := stats.NewRecorder(db.RedisClient)

		engine := playback.NewFFEngine(cfg.FFmpegPath)
		controller := playback.NewController(engine, audioStore)

		device := capture.NewFFmpegDevice(cfg.FFmpegPath, cfg.CaptureDir, cfg.InputFormat, cfg.InputDevice)
		session := capture.NewSession(device, audioStore, controller)

		extractor, err := extract.CreateProvider(cfg)
		if err != nil {
			log.Fatalf("Could not create extraction provider: %v", err)
		}

		pointsStore := points.NewStore(repo)
		workflow := review.NewWorkflow(repo, audioStore,
			transcribe.NewClient(cfg.TranscribeURL, cfg.TranscribeKey),
			extractor, pointsStore, nil, counter, cfg.Language)

		ctx := context.Background()

		if err := session.Start(ctx); err != nil {
			log.Fatalf("Could not start capture: %v", err)
		}
		fmt.Println("Recording... press Ctrl-C to stop.")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		result, err := session.Stop(ctx)
		if err != nil {
			log.Fatalf("Could not stop capture: %v", err)
		}
		fmt.Printf("Captured %dms of audio: %s\n", result.DurationMs, result.Locator)
		workflow.BeginReview(result)

		if recordTranscribe {
			fmt.Println("Transcribing...")
			tr, err := workflow.Transcribe(ctx)
			if err != nil {
				log.Fatalf("Transcription failed: %v", err)
			}
			fmt.Printf("Transcript: %d characters, %d topic segments\n", len(tr.FullText), len(tr.Topics))

			if recordExtract {
				fmt.Println("Extracting actionable points...")
				pts, err := workflow.ExtractPoints(ctx, "")
				if err != nil {
					log.Fatalf("Extraction failed: %v", err)
				}
				fmt.Printf("Extracted %d actionable points\n", len(pts))
			}
		}

		rec, err := workflow.Save(ctx, recordTitle)
		if err != nil {
			log.Fatalf("Save failed: %v", err)
		}

		out, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(out))
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordTitle, "title", "", "title for the saved recording")
	recordCmd.Flags().BoolVar(&recordTranscribe, "transcribe", false, "transcribe after stopping")
	recordCmd.Flags().BoolVar(&recordExtract, "extract", false, "extract actionable points (implies --transcribe)")
	rootCmd.AddCommand(recordCmd)
}
