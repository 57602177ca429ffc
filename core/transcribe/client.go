package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"recbox/logger"
	"recbox/model"
)

// Request is the upload payload accepted by the transcription service.
type Request struct {
	Audio     string `json:"audio"` // base64-encoded audio
	Mime      string `json:"mime"`
	Language  string `json:"language"`
	Summarize bool   `json:"summarize"`
}

// response is the service envelope. On ok:false only Error is meaningful.
type response struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error"`
	FullText string   `json:"full_text"`
	Words    []model.Word `json:"words"`
	Bullets  []string `json:"bullets"`
	Summary  struct {
		Bullets []string `json:"bullets"`
	} `json:"summary"`
	Topics []model.TopicSegment `json:"topics"`
}

// Client calls the remote transcription/summarization service.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a transcription client for the given endpoint.
func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		// Whole-file uploads of long meetings take a while to process.
		http: &http.Client{Timeout: 3 * time.Minute},
	}
}

// Transcribe uploads the audio and maps the service response to the stored
// transcription shape.
func (c *Client) Transcribe(ctx context.Context, req Request) (*model.Transcription, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcription request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logger.Info("uploading audio for transcription",
		logger.String("mime", req.Mime),
		logger.Int("payloadBytes", len(req.Audio)))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("transcription service returned status %d: %s", resp.StatusCode, raw)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode transcription response: %w", err)
	}
	if !r.OK {
		return nil, fmt.Errorf("transcription service error: %s", r.Error)
	}

	return &model.Transcription{
		FullText: r.FullText,
		Words:    r.Words,
		Bullets:  r.Bullets,
		Summary:  model.Summary{Bullets: r.Summary.Bullets},
		Topics:   r.Topics,
	}, nil
}
