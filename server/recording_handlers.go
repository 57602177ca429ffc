package server

import (
	"net/http"

	"recbox/logger"
	"recbox/model"

	"github.com/gorilla/mux"
)

// ListRecordingsHandler returns the index, most recent first. Read failures
// degrade to an empty list so one bad read never blanks the whole screen.
func (h *APIHandler) ListRecordingsHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := h.repo.List(r.Context())
	if err != nil {
		logger.Error("failed to list recordings", logger.ErrorField(err))
		recs = []*model.Recording{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "recordings": recs})
}

// GetRecordingHandler returns one recording by id.
func (h *APIHandler) GetRecordingHandler(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "recording": rec})
}

// DeleteRecordingHandler removes the record and its lifecycle-paired audio file.
func (h *APIHandler) DeleteRecordingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	found, err := h.workflow.DeleteRecording(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete recording")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// DeletePointHandler removes one actionable point from a persisted recording.
func (h *APIHandler) DeletePointHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	pointID := vars["pointId"]

	found, err := h.repo.Update(r.Context(), id, func(rec *model.Recording) {
		for i, p := range rec.ActionablePoints {
			if p.ID == pointID {
				rec.ActionablePoints = append(rec.ActionablePoints[:i], rec.ActionablePoints[i+1:]...)
				return
			}
		}
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update recording")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
