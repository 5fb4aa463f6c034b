package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/logger"
	"github.com/florelink/florelink-backend/pkg/redis"
)

const cacheScope = "catalog"

// cacheStore is the subset of the redis client the cache layer needs.
type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// CachedReader is a read-through cache in front of another Reader.
type CachedReader struct {
	inner Reader
	store cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCachedReader wraps the reader with a redis read-through cache.
func NewCachedReader(inner Reader, store cacheStore, ttl time.Duration, logg *logger.Logger) *CachedReader {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedReader{
		inner: inner,
		store: store,
		ttl:   ttl,
		logg:  logg,
	}
}

// FindItem returns the cached item when fresh, falling through to the inner reader.
// Cache failures degrade to a direct read, never to a request failure.
func (c *CachedReader) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CatalogItem, error) {
	if c.store == nil {
		return c.inner.FindItem(ctx, itemID)
	}

	key := c.store.CacheKey(cacheScope, itemID.String())
	if raw, err := c.store.Get(ctx, key); err == nil {
		var item models.CatalogItem
		if unmarshalErr := json.Unmarshal([]byte(raw), &item); unmarshalErr == nil {
			return &item, nil
		}
	} else if !redis.IsMiss(err) && c.logg != nil {
		c.logg.Warn(ctx, "catalog cache read failed")
	}

	item, err := c.inner.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if encoded, marshalErr := json.Marshal(item); marshalErr == nil {
		if setErr := c.store.Set(ctx, key, string(encoded), c.ttl); setErr != nil && c.logg != nil {
			c.logg.Warn(ctx, "catalog cache write failed")
		}
	}
	return item, nil
}
