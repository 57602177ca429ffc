package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"recbox/logger"

	"github.com/fsnotify/fsnotify"
)

// startupTimeout bounds how long we wait for ffmpeg to open the input and
// create its output file.
const startupTimeout = 5 * time.Second

// FFmpegDevice captures the configured input with an ffmpeg subprocess,
// writing an AAC temp file into the capture directory.
type FFmpegDevice struct {
	ffmpegPath  string
	captureDir  string
	inputFormat string
	inputDevice string

	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	outPath string
	waitErr chan error
}

// NewFFmpegDevice creates a capture device for the given input.
func NewFFmpegDevice(ffmpegPath, captureDir, inputFormat, inputDevice string) *FFmpegDevice {
	return &FFmpegDevice{
		ffmpegPath:  ffmpegPath,
		captureDir:  captureDir,
		inputFormat: inputFormat,
		inputDevice: inputDevice,
	}
}

// Start spawns ffmpeg and waits for the output file to appear before
// declaring the capture live. An ffmpeg exit before that maps to
// ErrPermissionDenied when the input could not be opened.
func (d *FFmpegDevice) Start(ctx context.Context) error {
	if err := os.MkdirAll(d.captureDir, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}

	d.outPath = filepath.Join(d.captureDir, fmt.Sprintf("capture_%d.m4a", time.Now().UnixNano()))

	// Watch the directory before spawning so the create event can't be missed.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create capture watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(d.captureDir); err != nil {
		return fmt.Errorf("failed to watch capture directory: %w", err)
	}

	args := []string{
		"-f", d.inputFormat,
		"-i", d.inputDevice,
		"-c:a", "aac",
		"-y",
		d.outPath,
	}

	d.stderr = &bytes.Buffer{}
	d.cmd = exec.Command(d.ffmpegPath, args...)
	d.cmd.Stderr = d.stderr

	logger.Debug("starting capture",
		logger.String("ffmpeg", d.ffmpegPath),
		logger.String("output", d.outPath))

	if err := d.cmd.Start(); err != nil {
		d.cmd = nil
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	d.waitErr = make(chan error, 1)
	cmd := d.cmd
	go func() { d.waitErr <- cmd.Wait() }()

	deadline := time.NewTimer(startupTimeout)
	defer deadline.Stop()

	for {
		select {
		case event := <-watcher.Events:
			if event.Op&fsnotify.Create == fsnotify.Create && event.Name == d.outPath {
				return nil
			}
		case err := <-watcher.Errors:
			d.kill()
			return fmt.Errorf("capture watcher failed: %w", err)
		case <-d.waitErr:
			// ffmpeg exited before producing output.
			stderr := d.stderr.String()
			d.cmd = nil
			if strings.Contains(stderr, "Permission denied") || strings.Contains(stderr, "busy") {
				return fmt.Errorf("%w: %s", ErrPermissionDenied, lastLine(stderr))
			}
			return fmt.Errorf("ffmpeg exited during startup: %s", lastLine(stderr))
		case <-deadline.C:
			d.kill()
			return fmt.Errorf("capture did not start within %s", startupTimeout)
		case <-ctx.Done():
			d.kill()
			return ctx.Err()
		}
	}
}

// Stop signals ffmpeg to finish writing the container and returns the
// temporary output locator.
func (d *FFmpegDevice) Stop(ctx context.Context) (string, error) {
	if d.cmd == nil || d.cmd.Process == nil {
		return "", ErrNotRecording
	}

	// SIGINT lets ffmpeg finalize the file; fall back to kill on a hung exit.
	if err := d.cmd.Process.Signal(os.Interrupt); err != nil {
		d.kill()
		return "", fmt.Errorf("failed to signal ffmpeg: %w", err)
	}

	select {
	case <-d.waitErr:
		// ffmpeg exits non-zero on SIGINT; the output file is still valid.
	case <-time.After(5 * time.Second):
		d.kill()
	case <-ctx.Done():
		d.kill()
		return "", ctx.Err()
	}

	out := d.outPath
	d.cmd = nil
	d.outPath = ""
	return out, nil
}

func (d *FFmpegDevice) kill() {
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	d.cmd = nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
