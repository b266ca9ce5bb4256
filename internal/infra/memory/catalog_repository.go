package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quizrush/internal/domain"
)

const catalogKey = "catalog"

// CatalogLoader fetches the question catalog from a backing source (embedded file, URL, database).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
}

// CatalogRepository caches the validated catalog. A non-positive TTL keeps
// it for the life of the process.
type CatalogRepository struct {
	loader CatalogLoader
	source string
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu     sync.RWMutex
	cached *cachedCatalog
}

type cachedCatalog struct {
	catalog   domain.Catalog
	expiresAt time.Time
}

func NewCatalogRepository(loader CatalogLoader, source string, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Catalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := r.lookup(r.clock()); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(catalogKey, func() (interface{}, error) {
		now := r.clock()
		if catalog, ok := r.lookup(now); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, domain.NewLoadError(r.source, err)
		}
		if err := catalog.Validate(); err != nil {
			return nil, domain.NewLoadError(r.source, err)
		}

		entry := &cachedCatalog{catalog: catalog}
		if r.ttl > 0 {
			entry.expiresAt = now.Add(r.ttlWithJitter())
		}
		r.mu.Lock()
		r.cached = entry
		r.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.Catalog), nil
}

func (r *CatalogRepository) lookup(now time.Time) (domain.Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached == nil {
		return nil, false
	}
	if r.ttl > 0 && !r.cached.expiresAt.After(now) {
		return nil, false
	}
	return r.cached.catalog, true
}

// StaticCatalogLoader is a simple loader backed by an in-memory catalog (useful for tests/demos).
type StaticCatalogLoader struct {
	catalog domain.Catalog
}

func NewStaticCatalogLoader(catalog domain.Catalog) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalog: catalog}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context) (domain.Catalog, error) {
	if l.catalog == nil {
		return nil, domain.ErrInvalidCatalog
	}
	return l.catalog, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
