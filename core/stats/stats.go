package stats

import (
	"context"
	"fmt"

	"recbox/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "stats:"

// Counter names tracked for the usage dashboard.
const (
	RecordingsSaved = "recordings_saved"
	Transcriptions  = "transcriptions"
	Extractions     = "extractions"
	Playbacks       = "playbacks"
)

var counters = []string{RecordingsSaved, Transcriptions, Extractions, Playbacks}

// Recorder bumps cloud-backed usage counters. Everything is best-effort:
// a missing or unreachable backend never fails the operation being counted.
type Recorder struct {
	client *redis.Client
}

// NewRecorder creates a Recorder over the given Redis client. A nil client
// yields a no-op recorder.
func NewRecorder(client *redis.Client) *Recorder {
	return &Recorder{client: client}
}

// Bump increments a usage counter.
func (r *Recorder) Bump(ctx context.Context, name string) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.client.Incr(ctx, keyPrefix+name).Err(); err != nil {
		logger.Warn("failed to bump usage counter",
			logger.String("counter", name),
			logger.ErrorField(err))
	}
}

// Snapshot returns the current values of all tracked counters.
func (r *Recorder) Snapshot(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(counters))
	if r == nil || r.client == nil {
		return out, nil
	}

	keys := make([]string, len(counters))
	for i, name := range counters {
		keys[i] = keyPrefix + name
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read usage counters: %w", err)
	}

	for i, name := range counters {
		switch v := vals[i].(type) {
		case string:
			var n int64
			fmt.Sscanf(v, "%d", &n)
			out[name] = n
		default:
			out[name] = 0
		}
	}
	return out, nil
}
