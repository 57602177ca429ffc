package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"recbox/config"
	"recbox/core/auth"
	"recbox/core/capture"
	"recbox/core/playback"
	"recbox/core/points"
	"recbox/core/review"
	"recbox/core/stats"
	"recbox/logger"
	"recbox/repository"
	"recbox/storage"
)

// APIHandler holds the wired components behind the HTTP surface.
type APIHandler struct {
	cfg        *config.Config
	repo       repository.RecordingRepository
	files      *storage.AudioFileStore
	session    *capture.Session
	controller *playback.Controller
	workflow   *review.Workflow
	points     *points.Store
	counter    *stats.Recorder
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	cfg *config.Config,
	repo repository.RecordingRepository,
	files *storage.AudioFileStore,
	session *capture.Session,
	controller *playback.Controller,
	workflow *review.Workflow,
	pointsStore *points.Store,
	counter *stats.Recorder,
) *APIHandler {
	return &APIHandler{
		cfg:        cfg,
		repo:       repo,
		files:      files,
		session:    session,
		controller: controller,
		workflow:   workflow,
		points:     pointsStore,
		counter:    counter,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": msg})
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "service": "recbox"})
}

// LoginHandler checks the operator credential and issues a token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if req.Username != h.cfg.OperatorUser || !h.checkPassword(req.Password) {
		logger.Warn("login rejected", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.GenerateToken([]byte(h.cfg.JWTSecret), req.Username, 24*time.Hour)
	if err != nil {
		logger.Error("token generation failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "token": token})
}

func (h *APIHandler) checkPassword(password string) bool {
	if h.cfg.OperatorPasswordHash != "" {
		return auth.CheckPasswordHash(password, h.cfg.OperatorPasswordHash)
	}
	return h.cfg.OperatorPassword != "" && password == h.cfg.OperatorPassword
}

// AuthMiddleware checks for a valid bearer token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		if _, err := auth.ParseToken([]byte(h.cfg.JWTSecret), parts[1]); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	}
}

// StatsHandler returns the usage counters.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.counter.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read usage statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "stats": snapshot})
}
