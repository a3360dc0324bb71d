package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"design-market/internal/domain/model"
	"design-market/internal/domain/ports/repository"
	"design-market/internal/infra/metrics"
	red "design-market/internal/infra/redis"
)

var _ repository.ProductRepository = (*productRepoCacheDecorator)(nil)

// productRepoCacheDecorator is read acceleration only. The database row stays
// the source of truth: pricing flows from the inner repo on every miss, writes
// invalidate, and nothing correctness-critical (idempotency, balances) ever
// reads from here.
type productRepoCacheDecorator struct {
	inner repository.ProductRepository
	cache red.Client
	ttl   time.Duration
}

func NewProductRepoCacheDecorator(inner repository.ProductRepository, cache red.Client, ttl time.Duration) repository.ProductRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &productRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *productRepoCacheDecorator) key(id string) string { return fmt.Sprintf("product:%s", id) }

func (d *productRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	// Transactional reads bypass the cache: inside the callback pipeline the
	// row must reflect committed state.
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}

	val, err := d.cache.Get(ctx, d.key(id))
	if err == nil {
		var p model.Product
		// A cached value that decodes to a zero product is treated as a miss.
		if json.Unmarshal([]byte(val), &p) == nil && !p.IsZero() {
			metrics.IncCacheRequest("product", "hit")
			return &p, nil
		}
	} else if err != redis.Nil {
		// Redis being down just means every read is a miss.
		metrics.IncCacheRequest("product", "error")
	}

	metrics.IncCacheRequest("product", "miss")
	p, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		_ = d.cache.Set(ctx, d.key(id), b, d.ttl)
	}
	return p, nil
}

func (d *productRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	if err := d.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, d.key(p.ID))
	return nil
}

func (d *productRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Product, error) {
	return d.inner.ListActive(ctx, tx)
}
