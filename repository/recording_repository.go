package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"recbox/kv"
	"recbox/logger"
	"recbox/model"

	"github.com/google/uuid"
)

// recordingsKey is the single key holding the whole serialized collection.
const recordingsKey = "saved_recordings"

// RecordingRepository defines the interface for recording metadata operations.
// Every write is a full read-modify-write of the stored collection; overlapping
// writers race and the later write wins in full. That lost-update hazard is an
// accepted limitation for single-operator usage, not something this layer solves.
type RecordingRepository interface {
	List(ctx context.Context) ([]*model.Recording, error)
	Create(ctx context.Context, rec *model.Recording) (*model.Recording, error)
	GetByID(ctx context.Context, id string) (*model.Recording, error)
	Update(ctx context.Context, id string, mutate func(*model.Recording)) (bool, error)
	Delete(ctx context.Context, id string) (*model.Recording, error)
	FindByAudioIdentity(ctx context.Context, audioURI string, durationMs int64) (*model.Recording, error)
}

// kvRecordingRepository implements RecordingRepository over a kv.Store.
type kvRecordingRepository struct {
	store kv.Store
}

// NewKVRecordingRepository creates a new instance of kvRecordingRepository.
func NewKVRecordingRepository(store kv.Store) RecordingRepository {
	return &kvRecordingRepository{store: store}
}

// load deserializes the stored collection. A missing key is an empty
// collection; a malformed blob degrades to empty as well rather than bricking
// every caller on corrupt local data. Storage-layer errors propagate.
func (r *kvRecordingRepository) load(ctx context.Context) ([]*model.Recording, error) {
	raw, err := r.store.Get(ctx, recordingsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []*model.Recording{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recording index: %w", err)
	}

	var recs []*model.Recording
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		logger.Warn("recording index blob is malformed, treating as empty",
			logger.ErrorField(err))
		return []*model.Recording{}, nil
	}
	if recs == nil {
		recs = []*model.Recording{}
	}
	return recs, nil
}

// save rewrites the whole collection in a single write.
func (r *kvRecordingRepository) save(ctx context.Context, recs []*model.Recording) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to marshal recording index: %w", err)
	}
	if err := r.store.Set(ctx, recordingsKey, string(raw)); err != nil {
		return fmt.Errorf("failed to write recording index: %w", err)
	}
	return nil
}

// createdAtTime parses a record's CreatedAt for ordering. Unparseable values
// sort last.
func createdAtTime(rec *model.Recording) time.Time {
	t, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// normalize keeps the persisted shape compact: an empty actionable-point list
// is stored as absent.
func normalize(rec *model.Recording) {
	if len(rec.ActionablePoints) == 0 {
		rec.ActionablePoints = nil
	}
}

// List returns a most-recent-first snapshot of the stored collection.
func (r *kvRecordingRepository) List(ctx context.Context) ([]*model.Recording, error) {
	recs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return createdAtTime(recs[i]).After(createdAtTime(recs[j]))
	})
	return recs, nil
}

// Create assigns ID and CreatedAt, prepends the record and persists the whole
// collection. A blank title gets the generated default.
func (r *kvRecordingRepository) Create(ctx context.Context, rec *model.Recording) (*model.Recording, error) {
	recs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now.Format(time.RFC3339Nano)
	if rec.Title == "" {
		rec.Title = "Recording " + now.Format("2006-01-02 15:04")
	}
	normalize(rec)

	recs = append([]*model.Recording{rec}, recs...)
	if err := r.save(ctx, recs); err != nil {
		return nil, err
	}

	logger.Info("recording created",
		logger.String("id", rec.ID),
		logger.String("title", rec.Title),
		logger.Int64("durationMs", rec.AudioDuration))
	return rec, nil
}

// GetByID returns the record with the given id, or nil when absent.
func (r *kvRecordingRepository) GetByID(ctx context.Context, id string) (*model.Recording, error) {
	recs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

// Update applies mutate to the matching record and rewrites the collection.
// Returns whether a record was found.
func (r *kvRecordingRepository) Update(ctx context.Context, id string, mutate func(*model.Recording)) (bool, error) {
	recs, err := r.load(ctx)
	if err != nil {
		return false, err
	}

	for _, rec := range recs {
		if rec.ID != id {
			continue
		}
		mutate(rec)
		normalize(rec)
		if err := r.save(ctx, recs); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Delete removes the matching record and rewrites the collection. The removed
// record is returned so the caller can delete the paired audio file; nil when
// no record matched.
func (r *kvRecordingRepository) Delete(ctx context.Context, id string) (*model.Recording, error) {
	recs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for i, rec := range recs {
		if rec.ID != id {
			continue
		}
		recs = append(recs[:i], recs[i+1:]...)
		if err := r.save(ctx, recs); err != nil {
			return nil, err
		}
		logger.Info("recording deleted", logger.String("id", id))
		return rec, nil
	}
	return nil, nil
}

// FindByAudioIdentity is the fallback lookup for callers that hold only the
// audio handle, not the id. At most one record can match: a finalized file is
// owned by exactly one record.
func (r *kvRecordingRepository) FindByAudioIdentity(ctx context.Context, audioURI string, durationMs int64) (*model.Recording, error) {
	recs, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.AudioURI == audioURI && rec.AudioDuration == durationMs {
			return rec, nil
		}
	}
	return nil, nil
}
