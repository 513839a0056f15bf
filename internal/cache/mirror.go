package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"job-matcher-go/internal/status"
)

// DefaultStatusTTL keeps finished runs visible for a day.
const DefaultStatusTTL = 24 * time.Hour

// StatusMirror keeps the latest run snapshot of every subject in Redis.
type StatusMirror struct {
	rdb  redis.Cmdable
	keys KeyBuilder
	ttl  time.Duration
}

func NewStatusMirror(rdb redis.Cmdable, keys KeyBuilder, ttl time.Duration) *StatusMirror {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusMirror{rdb: rdb, keys: keys, ttl: ttl}
}

func (m *StatusMirror) Publish(ctx context.Context, run status.RunStatus) error {
	payload, err := encodeStatus(run)
	if err != nil {
		return err
	}
	if err := m.rdb.Set(ctx, m.keys.Status(run.SubjectID), payload, m.ttl).Err(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

// Fetch returns the mirrored snapshot of subjectID, if any.
func (m *StatusMirror) Fetch(ctx context.Context, subjectID string) (status.RunStatus, bool, error) {
	payload, err := m.rdb.Get(ctx, m.keys.Status(subjectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return status.RunStatus{}, false, nil
	}
	if err != nil {
		return status.RunStatus{}, false, fmt.Errorf("fetch status: %w", err)
	}

	run, err := decodeStatus(payload)
	if err != nil {
		return status.RunStatus{}, false, err
	}
	return run, true, nil
}

func (m *StatusMirror) Delete(ctx context.Context, subjectID string) error {
	return m.rdb.Del(ctx, m.keys.Status(subjectID)).Err()
}

func encodeStatus(run status.RunStatus) ([]byte, error) {
	payload, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return payload, nil
}

func decodeStatus(payload []byte) (status.RunStatus, error) {
	var run status.RunStatus
	if err := json.Unmarshal(payload, &run); err != nil {
		return status.RunStatus{}, fmt.Errorf("decode status: %w", err)
	}
	return run, nil
}
