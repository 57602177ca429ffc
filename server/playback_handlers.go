package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"recbox/core/playback"
	"recbox/core/stats"
	"recbox/logger"

	"github.com/gorilla/mux"
)

// PlaybackLoadHandler loads a saved recording's audio for playback.
func (h *APIHandler) PlaybackLoadHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read recording")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	if err := h.controller.Load(r.Context(), rec.AudioURI); err != nil {
		if errors.Is(err, playback.ErrFileMissing) {
			// The record stays; only its blob is gone.
			writeError(w, http.StatusGone, err.Error())
			return
		}
		logger.Error("playback load failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load audio")
		return
	}

	h.counter.Bump(r.Context(), stats.Playbacks)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": h.controller.Status()})
}

// PlaybackToggleHandler toggles play/pause.
func (h *APIHandler) PlaybackToggleHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.TogglePlayPause(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": h.controller.Status()})
}

// PlaybackSeekHandler seeks to a position in milliseconds.
func (h *APIHandler) PlaybackSeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PositionMs int64 `json:"positionMs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.controller.Seek(r.Context(), req.PositionMs); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": h.controller.Status()})
}

// PlaybackPlayFromHandler jumps to an offset in seconds and force-plays.
func (h *APIHandler) PlaybackPlayFromHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OffsetSeconds float64 `json:"offsetSeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.controller.PlayFrom(r.Context(), req.OffsetSeconds); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": h.controller.Status()})
}

// PlaybackUnloadHandler releases the playback handle.
func (h *APIHandler) PlaybackUnloadHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Unload(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// PlaybackStatusHandler returns the current playback snapshot.
func (h *APIHandler) PlaybackStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"state":  h.controller.State().String(),
		"status": h.controller.Status(),
	})
}
