package points

import (
	"context"
	"sync"

	"recbox/logger"
	"recbox/model"
	"recbox/repository"
)

// Store holds the actionable-point list of the recording currently under
// review. The in-memory view is authoritative for the screen showing it;
// removals are synced back to persisted storage when the owning recording
// has already been saved, and a sync miss is logged, never escalated.
type Store struct {
	mu   sync.Mutex
	repo repository.RecordingRepository

	points     []model.ActionablePoint
	audioURI   string
	durationMs int64
	persisted  bool
}

// NewStore creates an empty, detached Store.
func NewStore(repo repository.RecordingRepository) *Store {
	return &Store{repo: repo}
}

// Attach binds the store to a recording identified by its audio handle.
// persisted marks whether the recording already exists in the index.
func (s *Store) Attach(audioURI string, durationMs int64, persisted bool, points []model.ActionablePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioURI = audioURI
	s.durationMs = durationMs
	s.persisted = persisted
	s.points = append([]model.ActionablePoint(nil), points...)
}

// Reset detaches the store and drops its points.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioURI = ""
	s.durationMs = 0
	s.persisted = false
	s.points = nil
}

// ReplaceAll installs a fresh extraction result wholesale. A second
// extraction discards prior points; there is no merge.
func (s *Store) ReplaceAll(points []model.ActionablePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append([]model.ActionablePoint(nil), points...)
}

// List returns a copy of the current points.
func (s *Store) List() []model.ActionablePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ActionablePoint(nil), s.points...)
}

// MarkPersisted records that the owning recording now exists in the index.
func (s *Store) MarkPersisted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = true
}

// Remove deletes a point locally and, when the owning recording is already
// persisted, writes the removal through to the index. The local removal
// always succeeds; persistence problems only get logged.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	removed := false
	for i, p := range s.points {
		if p.ID == id {
			s.points = append(s.points[:i], s.points[i+1:]...)
			removed = true
			break
		}
	}
	remaining := append([]model.ActionablePoint(nil), s.points...)
	audioURI := s.audioURI
	durationMs := s.durationMs
	persisted := s.persisted
	s.mu.Unlock()

	if !removed || !persisted {
		return
	}

	rec, err := s.repo.FindByAudioIdentity(ctx, audioURI, durationMs)
	if err != nil || rec == nil {
		logger.Warn("actionable point removal not synced: owning recording not found",
			logger.String("pointId", id),
			logger.String("audioUri", audioURI),
			logger.ErrorField(err))
		return
	}

	found, err := s.repo.Update(ctx, rec.ID, func(r *model.Recording) {
		r.ActionablePoints = remaining
	})
	if err != nil || !found {
		logger.Warn("actionable point removal not synced: index write failed",
			logger.String("pointId", id),
			logger.String("recordingId", rec.ID),
			logger.ErrorField(err))
	}
}
