package extract

import (
	"context"

	"recbox/model"

	"github.com/google/uuid"
)

// Provider turns a transcript into actionable points. Extraction is wholesale:
// a second run replaces the previous points, it never merges.
type Provider interface {
	Name() string
	Extract(ctx context.Context, transcription, meetingContext string) ([]model.ActionablePoint, error)
}

// sanitize fills the fields every point must carry regardless of provider:
// a unique id and a status.
func sanitize(points []model.ActionablePoint) []model.ActionablePoint {
	for i := range points {
		if points[i].ID == "" {
			points[i].ID = uuid.NewString()
		}
		if points[i].Status == "" {
			points[i].Status = model.StatusPending
		}
	}
	return points
}
