package capture

import (
	"context"
	"errors"
)

// Capture errors surfaced to callers.
var (
	// ErrPermissionDenied means the capture input could not be opened.
	ErrPermissionDenied = errors.New("capture permission denied")
	// ErrAlreadyRecording means a capture is already in progress.
	ErrAlreadyRecording = errors.New("a capture is already in progress")
	// ErrNotRecording means stop was called with no capture in progress.
	ErrNotRecording = errors.New("no capture in progress")
)

// Device starts and stops one microphone capture at a time. The session
// enforces single-flight, so implementations may assume non-overlapping calls.
type Device interface {
	Start(ctx context.Context) error
	// Stop ends the capture and returns the locator of its temporary output.
	Stop(ctx context.Context) (string, error)
}

// DurationProber reports the authoritative duration of a finalized file in
// milliseconds. The playback primitive backs this; the capture device's own
// numbers are not trusted.
type DurationProber interface {
	ProbeDuration(ctx context.Context, locator string) (int64, error)
}
