package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"recbox/core/capture"
	"recbox/core/review"
	"recbox/logger"

	"github.com/gorilla/mux"
)

// CaptureStartHandler begins a capture session.
func (h *APIHandler) CaptureStartHandler(w http.ResponseWriter, r *http.Request) {
	err := h.session.Start(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "state": h.session.State().String()})
	case errors.Is(err, capture.ErrAlreadyRecording):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, capture.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		logger.Error("capture start failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to start capture")
	}
}

// CaptureStopHandler finalizes the capture and hands the result to review.
func (h *APIHandler) CaptureStopHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.Stop(r.Context())
	if errors.Is(err, capture.ErrNotRecording) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logger.Error("capture stop failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to stop capture")
		return
	}

	h.workflow.BeginReview(result)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "result": result})
}

// CaptureStatusHandler reports the session state and elapsed feedback time.
func (h *APIHandler) CaptureStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"state":     h.session.State().String(),
		"elapsedMs": h.session.ElapsedMs(),
	})
}

// ReviewStateHandler returns the take under review with its points.
func (h *APIHandler) ReviewStateHandler(w http.ResponseWriter, r *http.Request) {
	pending := h.workflow.Pending()
	if pending == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "pending": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"pending": pending,
		"points":  h.points.List(),
	})
}

// TranscribeHandler uploads the pending audio for transcription.
func (h *APIHandler) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	tr, err := h.workflow.Transcribe(r.Context())
	if errors.Is(err, review.ErrNoPending) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logger.Error("transcription failed", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "transcription": tr})
}

// ExtractHandler runs actionable-point extraction on the pending transcription.
func (h *APIHandler) ExtractHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Context string `json:"context"`
	}
	// Body is optional; an empty context is fine.
	_ = json.NewDecoder(r.Body).Decode(&req)

	pts, err := h.workflow.ExtractPoints(r.Context(), req.Context)
	switch {
	case errors.Is(err, review.ErrNoPending), errors.Is(err, review.ErrNotTranscribed):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		logger.Error("extraction failed", logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "actionablePoints": pts})
	}
}

// RemoveReviewPointHandler removes one point from the take under review.
func (h *APIHandler) RemoveReviewPointHandler(w http.ResponseWriter, r *http.Request) {
	pointID := mux.Vars(r)["pointId"]
	h.points.Remove(r.Context(), pointID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "points": h.points.List()})
}

// SaveHandler persists the pending take as a recording.
func (h *APIHandler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	rec, err := h.workflow.Save(r.Context(), req.Title)
	if errors.Is(err, review.ErrNoPending) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logger.Error("save failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to save recording")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "recording": rec})
}

// DiscardHandler abandons the pending take.
func (h *APIHandler) DiscardHandler(w http.ResponseWriter, r *http.Request) {
	h.workflow.Discard(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
