package review

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"recbox/core/capture"
	"recbox/core/extract"
	"recbox/core/points"
	"recbox/core/stats"
	"recbox/core/transcribe"
	"recbox/logger"
	"recbox/model"
	"recbox/repository"
	"recbox/storage"
)

// Review errors surfaced to callers.
var (
	// ErrNoPending means no captured take is under review.
	ErrNoPending = errors.New("no capture under review")
	// ErrNotTranscribed means extraction was requested before transcription.
	ErrNotTranscribed = errors.New("transcribe the capture first")
)

// Pending is the captured take currently under review.
type Pending struct {
	Locator       string               `json:"locator"`
	DurationMs    int64                `json:"durationMs"`
	Transcription *model.Transcription `json:"transcription,omitempty"`
	Saved         bool                 `json:"saved"`
	SavedID       string               `json:"savedId,omitempty"`
}

// Workflow ties the capture result, the external transcription and
// extraction services and the recording index together into the review flow:
// transcribe, extract, save or discard.
type Workflow struct {
	repo        repository.RecordingRepository
	files       *storage.AudioFileStore
	transcriber *transcribe.Client
	extractor   extract.Provider
	points      *points.Store
	archive     *storage.Archive // nil when unconfigured
	counter     *stats.Recorder
	language    string

	mu      sync.Mutex
	pending *Pending
}

// NewWorkflow wires the review flow. archive may be nil.
func NewWorkflow(
	repo repository.RecordingRepository,
	files *storage.AudioFileStore,
	transcriber *transcribe.Client,
	extractor extract.Provider,
	pointsStore *points.Store,
	archive *storage.Archive,
	counter *stats.Recorder,
	language string,
) *Workflow {
	return &Workflow{
		repo:        repo,
		files:       files,
		transcriber: transcriber,
		extractor:   extractor,
		points:      pointsStore,
		archive:     archive,
		counter:     counter,
		language:    language,
	}
}

// BeginReview makes a finished capture the take under review. Any previous
// un-saved take is abandoned in place (its file stays until discarded).
func (w *Workflow) BeginReview(result capture.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = &Pending{Locator: result.Locator, DurationMs: result.DurationMs}
	w.points.Attach(result.Locator, result.DurationMs, false, nil)
}

// Pending returns a snapshot of the take under review, or nil.
func (w *Workflow) Pending() *Pending {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return nil
	}
	p := *w.pending
	return &p
}

// Transcribe uploads the pending audio and stores the returned transcription
// on the take.
func (w *Workflow) Transcribe(ctx context.Context) (*model.Transcription, error) {
	w.mu.Lock()
	pending := w.pending
	w.mu.Unlock()

	if pending == nil {
		return nil, ErrNoPending
	}

	audio, err := w.files.ReadBase64(pending.Locator)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending audio: %w", err)
	}

	tr, err := w.transcriber.Transcribe(ctx, transcribe.Request{
		Audio:     audio,
		Mime:      storage.MimeType(pending.Locator),
		Language:  w.language,
		Summarize: true,
	})
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.pending != nil && w.pending.Locator == pending.Locator {
		w.pending.Transcription = tr
	}
	w.mu.Unlock()

	w.counter.Bump(ctx, stats.Transcriptions)
	return tr, nil
}

// ExtractPoints runs the extraction provider over the pending transcription
// and installs the result wholesale.
func (w *Workflow) ExtractPoints(ctx context.Context, meetingContext string) ([]model.ActionablePoint, error) {
	w.mu.Lock()
	pending := w.pending
	w.mu.Unlock()

	if pending == nil {
		return nil, ErrNoPending
	}
	if pending.Transcription == nil {
		return nil, ErrNotTranscribed
	}

	pts, err := w.extractor.Extract(ctx, pending.Transcription.FullText, meetingContext)
	if err != nil {
		return nil, err
	}

	w.points.ReplaceAll(pts)
	w.counter.Bump(ctx, stats.Extractions)
	return pts, nil
}

// Save persists the pending take as a Recording. The archive copy is
// best-effort and never blocks a save.
func (w *Workflow) Save(ctx context.Context, title string) (*model.Recording, error) {
	w.mu.Lock()
	pending := w.pending
	w.mu.Unlock()

	if pending == nil {
		return nil, ErrNoPending
	}

	rec := &model.Recording{
		Title:            title,
		AudioURI:         pending.Locator,
		AudioDuration:    pending.DurationMs,
		Transcription:    pending.Transcription,
		ActionablePoints: w.points.List(),
	}

	rec, err := w.repo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.pending != nil && w.pending.Locator == pending.Locator {
		w.pending.Saved = true
		w.pending.SavedID = rec.ID
	}
	w.mu.Unlock()
	w.points.MarkPersisted()

	if w.archive != nil {
		if err := w.archive.Upload(ctx, rec.ID, rec.AudioURI); err != nil {
			logger.Warn("archive upload failed", logger.ErrorField(err))
		}
	}

	w.counter.Bump(ctx, stats.RecordingsSaved)
	return rec, nil
}

// Discard abandons the pending take. An unsaved take's audio file is deleted
// best-effort; a saved take keeps its file, which now belongs to the record.
func (w *Workflow) Discard(ctx context.Context) {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()
	w.points.Reset()

	if pending == nil || pending.Saved {
		return
	}
	if err := w.files.Delete(pending.Locator); err != nil {
		logger.Warn("could not delete discarded capture",
			logger.String("locator", pending.Locator),
			logger.ErrorField(err))
	}
}

// DeleteRecording removes a recording from the index together with its
// lifecycle-paired audio file and any archived copy.
func (w *Workflow) DeleteRecording(ctx context.Context, id string) (bool, error) {
	rec, err := w.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	if err := w.files.Delete(rec.AudioURI); err != nil {
		logger.Warn("could not delete audio file of removed recording",
			logger.String("id", id),
			logger.String("locator", rec.AudioURI),
			logger.ErrorField(err))
	}

	if w.archive != nil {
		if err := w.archive.Remove(ctx, rec.ID, rec.AudioURI); err != nil {
			logger.Warn("could not delete archived copy", logger.ErrorField(err))
		}
	}

	return true, nil
}
