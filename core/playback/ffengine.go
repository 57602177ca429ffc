package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"recbox/logger"
)

// FFEngine implements Engine with ffplay for output and ffprobe for metadata.
// Position is tracked by wall clock from the last play/seek point; ffplay's
// -autoexit makes end-of-track observable as process exit.
type FFEngine struct {
	ffmpegPath string

	mu         sync.Mutex
	locator    string
	durationMs int64
	positionMs int64 // position at last pause/seek; add wall time while playing
	playing    bool
	muted      bool
	volume     float64
	playedAt   time.Time
	cmd        *exec.Cmd
	exited     chan struct{}
	finished   bool // end-of-track reached, reported once via Status
}

// NewFFEngine creates an engine using the ffmpeg tool family at ffmpegPath.
func NewFFEngine(ffmpegPath string) *FFEngine {
	return &FFEngine{ffmpegPath: ffmpegPath, volume: 1.0}
}

func (e *FFEngine) ffplayPath() string {
	return strings.Replace(e.ffmpegPath, "ffmpeg", "ffplay", 1)
}

func (e *FFEngine) ffprobePath() string {
	return strings.Replace(e.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// Load probes the file and readies it for playback.
func (e *FFEngine) Load(ctx context.Context, locator string) error {
	durationMs, err := e.ProbeDuration(ctx, locator)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopProcessLocked()
	e.locator = locator
	e.durationMs = durationMs
	e.positionMs = 0
	e.playing = false
	e.finished = false
	return nil
}

// ProbeDuration reads the container duration in milliseconds via ffprobe.
func (e *FFEngine) ProbeDuration(ctx context.Context, locator string) (int64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		locator,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath(), args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w: %s", locator, err, stderr.String())
	}

	var probeData struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no parsable duration: %w", err)
	}
	return int64(seconds * 1000), nil
}

// Play starts (or restarts) ffplay from the current position.
func (e *FFEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.locator == "" {
		return errors.New("no handle loaded")
	}
	if e.playing {
		return nil
	}
	return e.spawnLocked()
}

// Pause stops output, folding the elapsed wall time into the position.
func (e *FFEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return nil
	}
	e.positionMs += time.Since(e.playedAt).Milliseconds()
	if e.positionMs > e.durationMs {
		e.positionMs = e.durationMs
	}
	e.stopProcessLocked()
	e.playing = false
	return nil
}

// Seek moves the position, clamped to [0, duration]. A playing handle keeps
// playing from the new position.
func (e *FFEngine) Seek(ctx context.Context, positionMs int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.locator == "" {
		return errors.New("no handle loaded")
	}

	if positionMs < 0 {
		positionMs = 0
	}
	if e.durationMs > 0 && positionMs > e.durationMs {
		positionMs = e.durationMs
	}

	wasPlaying := e.playing
	e.stopProcessLocked()
	e.playing = false
	e.positionMs = positionMs
	e.finished = false

	if wasPlaying {
		return e.spawnLocked()
	}
	return nil
}

// SetVolume stores the output volume, applied at the next spawn.
func (e *FFEngine) SetVolume(ctx context.Context, volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
	return nil
}

// SetMuted stores the mute flag, applied at the next spawn.
func (e *FFEngine) SetMuted(ctx context.Context, muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	return nil
}

// Status reports the current handle state. DidJustFinish is reported exactly
// once per finish.
func (e *FFEngine) Status(ctx context.Context) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.locator == "" {
		return Status{}, errors.New("no handle loaded")
	}

	// Detect end-of-track: ffplay -autoexit exits when the file is done.
	if e.playing && e.exited != nil {
		select {
		case <-e.exited:
			e.playing = false
			e.cmd = nil
			e.exited = nil
			e.positionMs = e.durationMs
			e.finished = true
		default:
		}
	}

	pos := e.positionMs
	if e.playing {
		pos += time.Since(e.playedAt).Milliseconds()
		if pos > e.durationMs {
			pos = e.durationMs
		}
	}

	st := Status{
		PositionMs:    pos,
		DurationMs:    e.durationMs,
		IsPlaying:     e.playing,
		DidJustFinish: e.finished,
	}
	e.finished = false
	return st, nil
}

// Unload releases the handle. Safe to call repeatedly.
func (e *FFEngine) Unload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopProcessLocked()
	e.locator = ""
	e.durationMs = 0
	e.positionMs = 0
	e.playing = false
	e.finished = false
	return nil
}

// spawnLocked starts ffplay at the current position. Caller holds e.mu.
func (e *FFEngine) spawnLocked() error {
	volume := int(e.volume * 100)
	if e.muted {
		volume = 0
	}

	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", float64(e.positionMs)/1000.0),
		"-volume", strconv.Itoa(volume),
		e.locator,
	}

	cmd := exec.Command(e.ffplayPath(), args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffplay: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("ffplay exited", logger.ErrorField(err))
		}
		close(exited)
	}()

	e.cmd = cmd
	e.exited = exited
	e.playedAt = time.Now()
	e.playing = true
	return nil
}

// stopProcessLocked kills any running ffplay. Caller holds e.mu.
func (e *FFEngine) stopProcessLocked() {
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
	e.exited = nil
}
