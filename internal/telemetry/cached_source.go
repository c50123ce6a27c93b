package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var ErrCacheMiss = errors.New("no cached snapshot")

// SnapshotStore persists the last good snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Load(ctx context.Context, key string) ([]byte, error)
}

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cold-autoscaler:telemetry"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf("%s:%s", s.prefix, key), value, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, fmt.Sprintf("%s:%s", s.prefix, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return val, nil
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || (!e.expires.IsZero() && time.Now().After(e.expires)) {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

const (
	trafficKey = "traffic"
	latencyKey = "latency"
)

// CachedSource records every good snapshot and substitutes the last one
// when the wrapped source fails, as long as it is younger than maxAge.
type CachedSource struct {
	source Source
	store  SnapshotStore
	maxAge time.Duration
}

func NewCachedSource(source Source, store SnapshotStore, maxAge time.Duration) *CachedSource {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &CachedSource{source: source, store: store, maxAge: maxAge}
}

func (c *CachedSource) FetchTraffic(ctx context.Context) (models.TrafficSnapshot, error) {
	snapshot, err := c.source.FetchTraffic(ctx)
	if err == nil {
		if snapshot.CapturedAt.IsZero() {
			snapshot.CapturedAt = time.Now()
		}
		c.save(ctx, trafficKey, snapshot)
		return snapshot, nil
	}

	var cached models.TrafficSnapshot
	if cerr := c.load(ctx, trafficKey, &cached); cerr != nil || c.stale(cached.CapturedAt) {
		return models.TrafficSnapshot{}, err
	}

	logger.Warnf("Traffic source failed (%v); using snapshot from %s", err, cached.CapturedAt.Format(time.RFC3339))
	cached.Source = "cache"
	return cached, nil
}

func (c *CachedSource) FetchLatency(ctx context.Context) (models.LatencySnapshot, error) {
	snapshot, err := c.source.FetchLatency(ctx)
	if err == nil {
		if snapshot.CapturedAt.IsZero() {
			snapshot.CapturedAt = time.Now()
		}
		c.save(ctx, latencyKey, snapshot)
		return snapshot, nil
	}

	var cached models.LatencySnapshot
	if cerr := c.load(ctx, latencyKey, &cached); cerr != nil || c.stale(cached.CapturedAt) {
		return models.LatencySnapshot{}, err
	}

	logger.Warnf("Latency source failed (%v); using snapshot from %s", err, cached.CapturedAt.Format(time.RFC3339))
	return cached, nil
}

func (c *CachedSource) stale(capturedAt time.Time) bool {
	return capturedAt.IsZero() || time.Since(capturedAt) > c.maxAge
}

func (c *CachedSource) save(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warnf("Failed to encode %s snapshot: %v", key, err)
		return
	}
	if err := c.store.Save(ctx, key, data, c.maxAge); err != nil {
		logger.Warnf("Failed to cache %s snapshot: %v", key, err)
	}
}

func (c *CachedSource) load(ctx context.Context, key string, v interface{}) error {
	data, err := c.store.Load(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
