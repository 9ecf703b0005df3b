package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/infra/memory"
	"dsa-tracker/internal/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogRepository caches the topic catalog in Redis as a single JSON value
// and falls back to a loader on cache miss.
// The catalog is stored as: SET {prefix}catalog <json>
type CatalogRepository struct {
	client *redis.Client
	loader memory.CatalogLoader
	prefix string
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader memory.CatalogLoader, prefix string, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		prefix: prefix,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	if topics, ok := r.cached(ctx); ok {
		return topics, nil
	}

	result, err, _ := r.sf.Do("catalog", func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if topics, ok := r.cached(ctx); ok {
			return topics, nil
		}

		topics, err := r.loader.LoadTopics(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(topics)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, r.key(), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Log.WithError(err).Warn("could not cache catalog in redis")
		}
		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Topic), nil
}

// Invalidate drops the cached catalog so the next read goes to the loader.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, r.key()).Err()
}

func (r *CatalogRepository) cached(ctx context.Context) ([]domain.Topic, bool) {
	raw, err := r.client.Get(ctx, r.key()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Log.WithError(err).Warn("catalog cache read failed")
		}
		return nil, false
	}
	var topics []domain.Topic
	if err := json.Unmarshal(raw, &topics); err != nil {
		log.Log.WithError(err).Warn("discarding unreadable cached catalog")
		return nil, false
	}
	return topics, true
}

func (r *CatalogRepository) key() string {
	return r.prefix + "catalog"
}

// ttlWithJitter returns 0 (no expiry) when ttl is not positive.
func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
