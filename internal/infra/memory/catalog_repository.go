package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"dsa-tracker/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches the topic catalog from a backing store (e.g., Postgres).
type CatalogLoader interface {
	LoadTopics(ctx context.Context) ([]domain.Topic, error)
}

// CatalogRepository caches the catalog with TTL to avoid repeated loader hits.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	topics    []domain.Topic
	expiresAt time.Time
	loaded    bool
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	if topics, ok := r.cached(r.clock()); ok {
		return topics, nil
	}

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		now := r.clock()
		if topics, ok := r.cached(now); ok {
			return topics, nil
		}

		topics, err := r.loader.LoadTopics(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.topics = topics
		r.loaded = true
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Topic), nil
}

func (r *CatalogRepository) cached(now time.Time) ([]domain.Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.loaded && (r.ttl <= 0 || r.expiresAt.After(now)) {
		return r.topics, true
	}
	return nil, false
}

// StaticCatalogLoader serves a fixed catalog (useful for tests/demos).
type StaticCatalogLoader struct {
	topics []domain.Topic
}

func NewStaticCatalogLoader(topics []domain.Topic) *StaticCatalogLoader {
	return &StaticCatalogLoader{topics: topics}
}

func (l *StaticCatalogLoader) LoadTopics(_ context.Context) ([]domain.Topic, error) {
	return l.topics, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
