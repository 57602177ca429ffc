package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recbox/config"
	"recbox/core/points"
	"recbox/core/review"
	"recbox/core/stats"
	"recbox/core/transcribe"
	"recbox/kv"
	"recbox/model"
	"recbox/repository"
	"recbox/storage"

	"github.com/gorilla/mux"
)

func newTestHandler(t *testing.T) (*APIHandler, repository.RecordingRepository) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		OperatorUser:     "operator",
		OperatorPassword: "hunter2",
	}
	repo := repository.NewKVRecordingRepository(kv.NewMemoryStore())
	files, err := storage.NewAudioFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("audio store: %v", err)
	}
	pointsStore := points.NewStore(repo)
	workflow := review.NewWorkflow(
		repo, files,
		transcribe.NewClient("http://localhost:9", ""),
		nil, pointsStore, nil, stats.NewRecorder(nil), "en",
	)
	handler := NewAPIHandler(cfg, repo, files, nil, nil, workflow, pointsStore, stats.NewRecorder(nil))
	return handler, repo
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestLoginIssuesToken(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler.LoginHandler, http.MethodPost, "/api/auth/login",
		`{"username":"operator","password":"hunter2"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the response")
	}

	// The issued token passes the middleware.
	protected := handler.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
	})
	rec, _ = doJSON(t, protected, http.MethodGet, "/api/recordings", "",
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Errorf("expected the token accepted, got %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler, _ := newTestHandler(t)

	cases := []string{
		`{"username":"operator","password":"wrong"}`,
		`{"username":"intruder","password":"hunter2"}`,
	}
	for _, body := range cases {
		rec, _ := doJSON(t, handler.LoginHandler, http.MethodPost, "/api/auth/login", body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for %s, got %d", body, rec.Code)
		}
	}

	rec, _ := doJSON(t, handler.LoginHandler, http.MethodPost, "/api/auth/login", `{"username":"operator"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	handler, _ := newTestHandler(t)
	protected := handler.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a valid token")
	})

	cases := map[string]map[string]string{
		"no header":     nil,
		"wrong scheme":  {"Authorization": "Basic abc"},
		"garbage token": {"Authorization": "Bearer not.a.token"},
	}
	for name, headers := range cases {
		rec, _ := doJSON(t, protected, http.MethodGet, "/api/recordings", "", headers)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestListRecordings(t *testing.T) {
	handler, repo := newTestHandler(t)

	if _, err := repo.Create(context.Background(), &model.Recording{
		Title: "Standup", AudioURI: "file://a.m4a", AudioDuration: 1000,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, body := doJSON(t, handler.ListRecordingsHandler, http.MethodGet, "/api/recordings", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	recordings, _ := body["recordings"].([]interface{})
	if len(recordings) != 1 {
		t.Errorf("expected 1 recording, got %v", body["recordings"])
	}
}

func TestGetRecordingNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	router := mux.NewRouter()
	router.HandleFunc("/api/recordings/{id}", handler.GetRecordingHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/recordings/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDeletePoint(t *testing.T) {
	handler, repo := newTestHandler(t)

	saved, err := repo.Create(context.Background(), &model.Recording{
		AudioURI:      "file://a.m4a",
		AudioDuration: 1000,
		ActionablePoints: []model.ActionablePoint{
			{ID: "p1", Title: "first", Status: model.StatusPending},
			{ID: "p2", Title: "second", Status: model.StatusPending},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/recordings/{id}/points/{pointId}", handler.DeletePointHandler).Methods(http.MethodDelete)

	req := httptest.NewRequest(http.MethodDelete, "/api/recordings/"+saved.ID+"/points/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := repo.GetByID(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.ActionablePoints) != 1 || got.ActionablePoints[0].ID != "p2" {
		t.Errorf("expected only p2 left, got %+v", got.ActionablePoints)
	}
}
