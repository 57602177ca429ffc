package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"recbox/logger"
	"recbox/storage"
)

// State is the controller's position in its lifecycle.
type State int

const (
	StateUnloaded State = iota
	StatePaused
	StatePlaying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Playback errors surfaced to callers.
var (
	// ErrFileMissing means the locator's file is gone; the record keeps its
	// metadata, only playback fails.
	ErrFileMissing = errors.New("audio file missing")
	// ErrNoHandle means no recording is loaded.
	ErrNoHandle = errors.New("no audio loaded")
	// ErrBusy means a probe was attempted while a playback handle is loaded.
	ErrBusy = errors.New("playback handle in use")
)

// finishEpsilonMs: a paused position within this of the end is treated as
// finished, so toggling replays from the start instead of the stale tail.
const finishEpsilonMs = 100

// pollInterval drives position tracking while playing.
const pollInterval = 100 * time.Millisecond

// Update is one position sample published to subscribers.
type Update struct {
	PositionMs int64  `json:"positionMs"`
	DurationMs int64  `json:"durationMs"`
	IsPlaying  bool   `json:"isPlaying"`
	Locator    string `json:"locator,omitempty"`
}

// Controller owns at most one loaded audio handle and mediates play, pause
// and seek against it: Unloaded -> Paused <-> Playing -> Unloaded. Concurrent
// interactive commands are not queued; the most recent caller wins.
type Controller struct {
	mu     sync.Mutex
	engine Engine
	files  *storage.AudioFileStore

	state      State
	locator    string
	positionMs int64
	durationMs int64
	finished   bool
	pollStop   chan struct{}
	subs       map[chan Update]struct{}
}

// NewController creates an unloaded controller over the given engine.
func NewController(engine Engine, files *storage.AudioFileStore) *Controller {
	return &Controller{
		engine: engine,
		files:  files,
		state:  StateUnloaded,
		subs:   make(map[chan Update]struct{}),
	}
}

// Load verifies the file exists, unloads any previous handle and loads the
// new one paused at position 0. Volume and mute are forced to audible
// defaults; platform defaults sometimes start muted.
func (c *Controller) Load(ctx context.Context, locator string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnloaded {
		c.unloadLocked(ctx)
	}

	if !c.files.Exists(locator) {
		return fmt.Errorf("%w: %s", ErrFileMissing, locator)
	}

	if err := c.engine.Load(ctx, locator); err != nil {
		return fmt.Errorf("failed to load audio: %w", err)
	}

	if err := c.engine.SetMuted(ctx, false); err != nil {
		logger.Warn("could not unmute loaded audio", logger.ErrorField(err))
	}
	if err := c.engine.SetVolume(ctx, 1.0); err != nil {
		logger.Warn("could not set volume on loaded audio", logger.ErrorField(err))
	}

	st, err := c.engine.Status(ctx)
	if err != nil {
		logger.Warn("could not read status after load", logger.ErrorField(err))
	}

	c.state = StatePaused
	c.locator = locator
	c.positionMs = 0
	c.durationMs = st.DurationMs
	c.finished = false

	logger.Info("audio loaded",
		logger.String("locator", locator),
		logger.Int64("durationMs", c.durationMs))
	return nil
}

// ProbeDuration loads a file just long enough to read the engine-reported
// duration, then unloads. Refused while a handle is loaded so a playback
// session is never torn down by a probe.
func (c *Controller) ProbeDuration(ctx context.Context, locator string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnloaded {
		return 0, ErrBusy
	}
	if err := c.engine.Load(ctx, locator); err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", locator, err)
	}
	defer func() {
		if err := c.engine.Unload(ctx); err != nil {
			logger.Warn("probe unload failed", logger.ErrorField(err))
		}
	}()

	st, err := c.engine.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read probed status: %w", err)
	}
	return st.DurationMs, nil
}

// TogglePlayPause pauses a playing handle, resumes a paused one, and replays
// from the start when the track already finished.
func (c *Controller) TogglePlayPause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUnloaded:
		return ErrNoHandle

	case StatePlaying:
		if err := c.engine.Pause(ctx); err != nil {
			// Transient: state resyncs from the primitive on the next poll.
			logger.Warn("pause failed", logger.ErrorField(err))
		}
		c.state = StatePaused
		c.stopPollerLocked()
		c.publishLocked()
		return nil

	default: // StatePaused
		atEnd := c.durationMs > 0 && c.positionMs >= c.durationMs-finishEpsilonMs
		if c.finished || atEnd {
			if err := c.engine.Seek(ctx, 0); err != nil {
				logger.Warn("replay seek failed", logger.ErrorField(err))
			}
			c.positionMs = 0
			c.finished = false
		}
		if err := c.engine.Play(ctx); err != nil {
			logger.Warn("play failed", logger.ErrorField(err))
			return nil
		}
		c.state = StatePlaying
		c.startPollerLocked()
		c.publishLocked()
		return nil
	}
}

// Seek moves the position, preserving play/pause state across the seek.
func (c *Controller) Seek(ctx context.Context, positionMs int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUnloaded {
		return ErrNoHandle
	}

	wasPlaying := c.state == StatePlaying
	if err := c.engine.Seek(ctx, positionMs); err != nil {
		logger.Warn("seek failed", logger.ErrorField(err))
		return nil
	}

	if positionMs < 0 {
		positionMs = 0
	}
	if c.durationMs > 0 && positionMs > c.durationMs {
		positionMs = c.durationMs
	}
	c.positionMs = positionMs
	c.finished = false

	if wasPlaying {
		if err := c.engine.Play(ctx); err != nil {
			logger.Warn("resume after seek failed", logger.ErrorField(err))
		}
	}
	c.publishLocked()
	return nil
}

// PlayFrom seeks to the offset and force-starts playback with audible volume.
// Used for jump-to-topic interactions.
func (c *Controller) PlayFrom(ctx context.Context, offsetSeconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUnloaded {
		return ErrNoHandle
	}

	if err := c.engine.SetMuted(ctx, false); err != nil {
		logger.Warn("could not unmute", logger.ErrorField(err))
	}
	if err := c.engine.SetVolume(ctx, 1.0); err != nil {
		logger.Warn("could not set volume", logger.ErrorField(err))
	}

	positionMs := int64(offsetSeconds * 1000)
	if err := c.engine.Seek(ctx, positionMs); err != nil {
		logger.Warn("playfrom seek failed", logger.ErrorField(err))
	}
	if positionMs < 0 {
		positionMs = 0
	}
	if c.durationMs > 0 && positionMs > c.durationMs {
		positionMs = c.durationMs
	}
	c.positionMs = positionMs
	c.finished = false

	if err := c.engine.Play(ctx); err != nil {
		logger.Warn("playfrom play failed", logger.ErrorField(err))
		return nil
	}
	c.state = StatePlaying
	c.startPollerLocked()
	c.publishLocked()
	return nil
}

// Unload releases the handle. Must run on every exit path; double-unload is
// tolerated.
func (c *Controller) Unload(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unloadLocked(ctx)
}

// Status returns the current snapshot.
func (c *Controller) Status() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a position-update channel. The returned cancel func
// must be called when the subscriber goes away.
func (c *Controller) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, ch)
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) unloadLocked(ctx context.Context) {
	c.stopPollerLocked()
	if c.state == StateUnloaded {
		return
	}
	if err := c.engine.Unload(ctx); err != nil {
		// Swallow after a forced attempt; the handle is gone either way.
		logger.Warn("unload failed", logger.ErrorField(err))
	}
	c.state = StateUnloaded
	c.locator = ""
	c.positionMs = 0
	c.durationMs = 0
	c.finished = false
	c.publishLocked()
}

func (c *Controller) snapshotLocked() Update {
	return Update{
		PositionMs: c.positionMs,
		DurationMs: c.durationMs,
		IsPlaying:  c.state == StatePlaying,
		Locator:    c.locator,
	}
}

// publishLocked fans the current snapshot out to subscribers without
// blocking; a slow subscriber drops samples, never stalls the controller.
func (c *Controller) publishLocked() {
	update := c.snapshotLocked()
	for ch := range c.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

// startPollerLocked begins position polling; a still-running poller is
// cancelled first so timers never accumulate.
func (c *Controller) startPollerLocked() {
	c.stopPollerLocked()
	stop := make(chan struct{})
	c.pollStop = stop

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.poll()
			}
		}
	}()
}

func (c *Controller) stopPollerLocked() {
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

// poll samples the engine while playing and handles the finish transition.
func (c *Controller) poll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return
	}

	st, err := c.engine.Status(context.Background())
	if err != nil {
		logger.Debug("status poll failed", logger.ErrorField(err))
		return
	}

	c.positionMs = st.PositionMs
	if st.DurationMs > 0 {
		c.durationMs = st.DurationMs
	}

	if st.DidJustFinish {
		c.finished = true
		c.positionMs = 0
		c.state = StatePaused
		c.stopPollerLocked()
	}
	c.publishLocked()
}
