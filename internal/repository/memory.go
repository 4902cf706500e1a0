package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryStateRepository is the in-process fallback when Redis is absent or
// down. Cache entries and rate-limit windows expire lazily on read.
type MemoryStateRepository struct {
	rateLimits sync.Map
	cache      sync.Map
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (r *MemoryStateRepository) GetCached(ctx context.Context, key string) ([]byte, error) {
	val, ok := r.cache.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		r.cache.Delete(key)
		return nil, nil
	}
	return entry.value, nil
}

func (r *MemoryStateRepository) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	r.cache.Store(key, &cacheEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}
