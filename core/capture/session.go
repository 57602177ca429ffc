package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"recbox/logger"
	"recbox/storage"
)

// State is the session's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// elapsedTickInterval drives the UI elapsed-time feedback. The tick carries
// no correctness obligation; durations come from the probe at stop time.
const elapsedTickInterval = 50 * time.Millisecond

// Result is the capture-to-storage outcome handed to review.
type Result struct {
	Locator    string `json:"locator"`
	DurationMs int64  `json:"durationMs"`
}

// Session owns exactly one in-progress capture at a time:
// Idle -> Recording -> Finalizing -> Idle. Errors on any path land back in Idle.
type Session struct {
	mu     sync.Mutex
	state  State
	device Device
	files  *storage.AudioFileStore
	prober DurationProber

	startedAt time.Time
	elapsedMs atomic.Int64
	tickStop  chan struct{}
}

// NewSession creates an idle capture session.
func NewSession(device Device, files *storage.AudioFileStore, prober DurationProber) *Session {
	return &Session{
		state:  StateIdle,
		device: device,
		files:  files,
		prober: prober,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ElapsedMs returns the UI-feedback elapsed time of the running capture.
func (s *Session) ElapsedMs() int64 {
	return s.elapsedMs.Load()
}

// Start begins a capture. Starting while one is active is an error, never a
// second concurrent capture. A denied input leaves the session Idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrAlreadyRecording
	}

	if err := s.device.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	s.state = StateRecording
	s.startedAt = time.Now()
	s.elapsedMs.Store(0)
	s.startTickLocked()

	logger.Info("capture started")
	return nil
}

// Stop finalizes the capture: the device output is moved to permanent storage
// and the file is probed for its authoritative duration. The session returns
// to Idle on every path, including errors.
func (s *Session) Stop(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return Result{}, ErrNotRecording
	}

	s.state = StateFinalizing
	s.stopTickLocked()
	defer func() { s.state = StateIdle }()

	tempLocator, err := s.device.Stop(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to stop capture: %w", err)
	}

	locator := s.files.Finalize(tempLocator)

	durationMs, err := s.prober.ProbeDuration(ctx, locator)
	if err != nil {
		return Result{}, fmt.Errorf("failed to probe capture duration: %w", err)
	}

	logger.Info("capture finalized",
		logger.String("locator", locator),
		logger.Int64("durationMs", durationMs))

	// Zero duration is a valid near-instant start/stop.
	return Result{Locator: locator, DurationMs: durationMs}, nil
}

// startTickLocked runs the elapsed ticker; a still-running ticker is cancelled
// first so timers never accumulate.
func (s *Session) startTickLocked() {
	s.stopTickLocked()
	stop := make(chan struct{})
	s.tickStop = stop
	start := s.startedAt

	go func() {
		ticker := time.NewTicker(elapsedTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.elapsedMs.Store(time.Since(start).Milliseconds())
			}
		}
	}()
}

func (s *Session) stopTickLocked() {
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}
