package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStopTTL bounds how long an unconsumed stop request lingers.
const DefaultStopTTL = time.Hour

// StopFlags stores stop requests in Redis so any replica can stop a run.
type StopFlags struct {
	rdb    redis.Cmdable
	keys   KeyBuilder
	ttl    time.Duration
	logger *zap.Logger
}

func NewStopFlags(rdb redis.Cmdable, keys KeyBuilder, ttl time.Duration, logger *zap.Logger) *StopFlags {
	if ttl <= 0 {
		ttl = DefaultStopTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StopFlags{rdb: rdb, keys: keys, ttl: ttl, logger: logger.Named("stopflags")}
}

func (s *StopFlags) RequestStop(ctx context.Context, subjectID string) error {
	return s.rdb.Set(ctx, s.keys.Stop(subjectID), "1", s.ttl).Err()
}

func (s *StopFlags) Clear(ctx context.Context, subjectID string) error {
	return s.rdb.Del(ctx, s.keys.Stop(subjectID)).Err()
}

// IsStopRequested reports whether a stop is pending. Redis errors are logged
// and read as "not requested" so an outage never halts running searches.
func (s *StopFlags) IsStopRequested(ctx context.Context, subjectID string) bool {
	n, err := s.rdb.Exists(ctx, s.keys.Stop(subjectID)).Result()
	if err != nil {
		s.logger.Warn("stop flag lookup failed", zap.String("subject_id", subjectID), zap.Error(err))
		return false
	}
	return n > 0
}
