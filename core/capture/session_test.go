package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recbox/storage"
)

// fakeDevice writes a real file on Stop so finalization has something to move.
type fakeDevice struct {
	dir       string
	startErr  error
	stopErr   error
	started   bool
	lastPath  string
	startSeen int
}

func (d *fakeDevice) Start(ctx context.Context) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	d.startSeen++
	return nil
}

func (d *fakeDevice) Stop(ctx context.Context) (string, error) {
	if d.stopErr != nil {
		return "", d.stopErr
	}
	d.started = false
	d.lastPath = filepath.Join(d.dir, "capture_out.m4a")
	if err := os.WriteFile(d.lastPath, []byte("captured-audio"), 0644); err != nil {
		return "", err
	}
	return d.lastPath, nil
}

type fakeProber struct {
	durationMs int64
	err        error
	probed     []string
}

func (p *fakeProber) ProbeDuration(ctx context.Context, locator string) (int64, error) {
	p.probed = append(p.probed, locator)
	if p.err != nil {
		return 0, p.err
	}
	return p.durationMs, nil
}

func newTestSession(t *testing.T, device *fakeDevice, prober *fakeProber) (*Session, string) {
	t.Helper()
	audioDir := t.TempDir()
	files, err := storage.NewAudioFileStore(audioDir)
	if err != nil {
		t.Fatalf("audio store: %v", err)
	}
	if device.dir == "" {
		device.dir = t.TempDir()
	}
	return NewSession(device, files, prober), audioDir
}

func TestStartStopLifecycle(t *testing.T) {
	device := &fakeDevice{}
	prober := &fakeProber{durationMs: 3000}
	session, audioDir := newTestSession(t, device, prober)
	ctx := context.Background()

	if session.State() != StateIdle {
		t.Fatalf("expected idle, got %v", session.State())
	}
	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.State() != StateRecording {
		t.Fatalf("expected recording, got %v", session.State())
	}

	result, err := session.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if session.State() != StateIdle {
		t.Errorf("expected idle after stop, got %v", session.State())
	}

	// The probe's answer wins over any wall-clock estimate.
	if result.DurationMs != 3000 {
		t.Errorf("expected probed duration 3000, got %d", result.DurationMs)
	}
	if filepath.Dir(result.Locator) != audioDir {
		t.Errorf("expected locator under %s, got %s", audioDir, result.Locator)
	}
	if _, statErr := os.Stat(result.Locator); statErr != nil {
		t.Errorf("finalized file missing: %v", statErr)
	}
	if _, statErr := os.Stat(device.lastPath); !os.IsNotExist(statErr) {
		t.Errorf("expected device output removed after finalize, stat err: %v", statErr)
	}
	if len(prober.probed) != 1 || prober.probed[0] != result.Locator {
		t.Errorf("expected the finalized locator to be probed, got %v", prober.probed)
	}
}

func TestStartWhileRecording(t *testing.T) {
	session, _ := newTestSession(t, &fakeDevice{}, &fakeProber{durationMs: 1000})
	ctx := context.Background()

	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Start(ctx); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if session.State() != StateRecording {
		t.Errorf("first capture must survive the rejected start, got %v", session.State())
	}
}

func TestStopWhileIdle(t *testing.T) {
	session, _ := newTestSession(t, &fakeDevice{}, &fakeProber{})

	if _, err := session.Stop(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestStartPermissionDenied(t *testing.T) {
	device := &fakeDevice{startErr: ErrPermissionDenied}
	session, _ := newTestSession(t, device, &fakeProber{})

	err := session.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if session.State() != StateIdle {
		t.Errorf("denied start must leave the session idle, got %v", session.State())
	}
}

func TestStopProbeFailureReturnsIdle(t *testing.T) {
	device := &fakeDevice{}
	prober := &fakeProber{err: errors.New("probe broke")}
	session, _ := newTestSession(t, device, prober)
	ctx := context.Background()

	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := session.Stop(ctx); err == nil {
		t.Fatal("expected probe error to surface")
	}
	if session.State() != StateIdle {
		t.Errorf("expected idle after failed stop, got %v", session.State())
	}
	// A fresh capture can start after the failure.
	if err := session.Start(ctx); err != nil {
		t.Errorf("restart after failed stop: %v", err)
	}
}

func TestElapsedTicksWhileRecording(t *testing.T) {
	session, _ := newTestSession(t, &fakeDevice{}, &fakeProber{durationMs: 1})
	ctx := context.Background()

	if err := session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for session.ElapsedMs() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("elapsed never advanced")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if _, err := session.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
