package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscribeMapsEnvelope(t *testing.T) {
	var gotAuth string
	var gotReq Request

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ok": true,
			"full_text": "hello world",
			"words": [{"word":"hello","start":0.0,"end":0.4},{"word":"world","start":0.4,"end":0.9}],
			"bullets": ["greeting exchanged"],
			"summary": {"bullets": ["short meeting"]},
			"topics": [{"start_time":0,"end_time":1,"text":"hello world","topics":[{"topic":"greeting"}]}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key")
	tr, err := client.Transcribe(context.Background(), Request{
		Audio:     "aGVsbG8=",
		Mime:      "audio/mp4",
		Language:  "en",
		Summarize: true,
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotReq.Audio != "aGVsbG8=" || gotReq.Mime != "audio/mp4" || !gotReq.Summarize {
		t.Errorf("request not forwarded faithfully: %+v", gotReq)
	}

	if tr.FullText != "hello world" {
		t.Errorf("fullText = %q", tr.FullText)
	}
	if len(tr.Words) != 2 || tr.Words[0].Word != "hello" || tr.Words[1].End != 0.9 {
		t.Errorf("words = %+v", tr.Words)
	}
	if len(tr.Bullets) != 1 || tr.Bullets[0] != "greeting exchanged" {
		t.Errorf("bullets = %+v", tr.Bullets)
	}
	if len(tr.Summary.Bullets) != 1 || tr.Summary.Bullets[0] != "short meeting" {
		t.Errorf("summary = %+v", tr.Summary)
	}
	if len(tr.Topics) != 1 || tr.Topics[0].Topics[0].Topic != "greeting" {
		t.Errorf("topics = %+v", tr.Topics)
	}
}

func TestTranscribeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error": "audio too short"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.Transcribe(context.Background(), Request{Audio: "x", Mime: "audio/mp4"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "audio too short") {
		t.Errorf("expected the service message to surface, got %v", err)
	}
}

func TestTranscribeNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.Transcribe(context.Background(), Request{Audio: "x", Mime: "audio/mp4"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status code in error, got %v", err)
	}
}

func TestTranscribeOptionalAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok": true, "full_text": "x"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.Transcribe(context.Background(), Request{Audio: "x", Mime: "audio/mp4"}); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("expected no auth header without a key, got %q", gotAuth)
	}
}
