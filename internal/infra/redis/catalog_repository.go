package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"quizrush/internal/domain"
	"quizrush/internal/infra/memory"
)

// CatalogKey is the hash holding the cached catalog, one field per subject.
const CatalogKey = "quizrush:catalog"

// SharedTTL bounds the Redis copy when the repository itself caches forever,
// so a reseeded catalog reaches new processes.
const SharedTTL = 10 * time.Minute

// opTimeout caps every Redis round trip made on behalf of a player.
const opTimeout = 250 * time.Millisecond

// CatalogRepository keeps the catalog in process and shares it through Redis.
// Questions are stored as: HSET quizrush:catalog {subject} {json questions}
// A Redis outage only costs the shared copy; the loader still runs once.
type CatalogRepository struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	rnd    *rand.Rand
	local  *memory.CatalogRepository
}

func NewCatalogRepository(client *redis.Client, loader memory.CatalogLoader, source string, ttl time.Duration) *CatalogRepository {
	r := &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r.local = memory.NewCatalogRepository(loaderFunc(r.loadShared), source, ttl)
	return r
}

func (r *CatalogRepository) Catalog(ctx context.Context) (domain.Catalog, error) {
	return r.local.Catalog(ctx)
}

type loaderFunc func(ctx context.Context) (domain.Catalog, error)

func (f loaderFunc) LoadCatalog(ctx context.Context) (domain.Catalog, error) { return f(ctx) }

// loadShared runs under the local singleflight: Redis first, then the loader.
func (r *CatalogRepository) loadShared(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := r.fromCache(ctx); ok {
		return catalog, nil
	}

	catalog, err := r.loader.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	r.store(ctx, catalog)
	return catalog, nil
}

func (r *CatalogRepository) store(ctx context.Context, catalog domain.Catalog) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := r.client.Pipeline()
	for subject, questions := range catalog {
		raw, err := json.Marshal(questions)
		if err != nil {
			return
		}
		pipe.HSet(ctx, CatalogKey, subject, raw)
	}
	pipe.Expire(ctx, CatalogKey, r.ttlWithJitter())
	// the in-process copy still serves when Redis is unreachable
	_, _ = pipe.Exec(ctx)
}

func (r *CatalogRepository) fromCache(ctx context.Context) (domain.Catalog, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, CatalogKey).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	catalog, err := buildCatalogFromCache(fields)
	if err != nil {
		return nil, false
	}
	return catalog, true
}

func buildCatalogFromCache(fields map[string]string) (domain.Catalog, error) {
	catalog := make(domain.Catalog, len(fields))
	for subject, raw := range fields {
		var questions []domain.Question
		if err := json.Unmarshal([]byte(raw), &questions); err != nil {
			return nil, err
		}
		catalog[subject] = questions
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// ttlWithJitter is the lifetime of the shared copy. It is always finite.
func (r *CatalogRepository) ttlWithJitter() time.Duration {
	ttl := r.ttl
	if ttl <= 0 {
		return SharedTTL
	}
	jitterMax := int64(ttl) / 10
	return ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// InvalidateCatalog drops the shared copy so the next load reads the source.
func InvalidateCatalog(ctx context.Context, client *redis.Client) error {
	return client.Del(ctx, CatalogKey).Err()
}
