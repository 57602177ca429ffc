package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"recbox/model"
)

// remoteRequest is the payload accepted by the extraction service.
type remoteRequest struct {
	Transcription string `json:"transcription"`
	Context       string `json:"context"`
}

// remoteResponse is the service envelope.
type remoteResponse struct {
	OK               bool                    `json:"ok"`
	Error            string                  `json:"error"`
	ActionablePoints []model.ActionablePoint `json:"actionablePoints"`
}

// remoteProvider calls the dedicated actionable-points extraction service.
type remoteProvider struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewRemoteProvider creates a Provider backed by the remote extraction API.
func NewRemoteProvider(url, apiKey string) Provider {
	return &remoteProvider{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *remoteProvider) Name() string { return "remote" }

func (p *remoteProvider) Extract(ctx context.Context, transcription, meetingContext string) ([]model.ActionablePoint, error) {
	body, err := json.Marshal(remoteRequest{Transcription: transcription, Context: meetingContext})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, raw)
	}

	var r remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	if !r.OK {
		return nil, fmt.Errorf("extraction service error: %s", r.Error)
	}

	return sanitize(r.ActionablePoints), nil
}
