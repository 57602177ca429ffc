package playback

import "context"

// Status is the engine's report of the loaded handle.
type Status struct {
	PositionMs    int64
	DurationMs    int64
	IsPlaying     bool
	DidJustFinish bool
}

// Engine is the platform audio primitive behind the controller. It holds at
// most one handle; Load replaces nothing on its own, the controller owns the
// single-handle discipline.
type Engine interface {
	Load(ctx context.Context, locator string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMs int64) error
	SetVolume(ctx context.Context, volume float64) error
	SetMuted(ctx context.Context, muted bool) error
	Status(ctx context.Context) (Status, error)
	Unload(ctx context.Context) error
}
