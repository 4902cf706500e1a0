package repository

import (
	"context"
	"sync/atomic"
	"time"

	"villamar/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverStateRepository prefers the primary (Redis) repository and falls
// back to the in-memory one when the primary errors, probing the primary
// again after a minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverStateRepository) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

func (r *FailoverStateRepository) GetCached(ctx context.Context, key string) ([]byte, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		val, err := r.primary.GetCached(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return val, nil
		}
		r.markDown(err)
	}

	return r.fallback.GetCached(ctx, key)
}

func (r *FailoverStateRepository) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !r.isDown.Load() || r.shouldProbe() {
		err := r.primary.SetCached(ctx, key, value, ttl)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetCached(ctx, key, value, ttl)
}
