package store

import (
	"context"
	"strings"
	"time"

	"github.com/dc4eu/vc-attest/pkg/model"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultIdentityCacheTTL is the default TTL for cached address→identity
// lookups; identity bindings change only on a successful assertion, so a
// short TTL trades a little staleness for avoiding a store round trip on
// every /identity request.
const DefaultIdentityCacheTTL = 60 * time.Second

// CachingStore wraps a Store with a read-through cache in front of
// FindByAddress, the store's only read-heavy, externally-triggerable query
// (GET /identity). Writes invalidate the cache entry for the address they
// touch so a bind is visible on the next lookup.
type CachingStore struct {
	Store
	cache *ttlcache.Cache[string, *model.DeviceRecord]
}

// NewCachingStore wraps backing with a TTL cache. ttl<=0 selects
// DefaultIdentityCacheTTL.
func NewCachingStore(backing Store, ttl time.Duration) *CachingStore {
	if ttl <= 0 {
		ttl = DefaultIdentityCacheTTL
	}

	cache := ttlcache.New[string, *model.DeviceRecord](
		ttlcache.WithTTL[string, *model.DeviceRecord](ttl),
	)
	go cache.Start()

	return &CachingStore{Store: backing, cache: cache}
}

// FindByAddress serves from cache when possible, falling back to the
// backing store on a miss.
func (c *CachingStore) FindByAddress(ctx context.Context, evmAddress string) (*model.DeviceRecord, error) {
	key := strings.ToLower(evmAddress)

	if item := c.cache.Get(key); item != nil {
		return item.Value().Clone(), nil
	}

	record, err := c.Store.FindByAddress(ctx, evmAddress)
	if err != nil {
		return nil, err
	}
	if record != nil {
		c.cache.Set(key, record, ttlcache.DefaultTTL)
	}
	return record, nil
}

// Update invalidates any cached identity lookup for the address the update
// touches, in addition to delegating to the backing store.
func (c *CachingStore) Update(ctx context.Context, credentialID string, patch func(*model.DeviceRecord) error) error {
	var newAddress string
	wrapped := func(r *model.DeviceRecord) error {
		if err := patch(r); err != nil {
			return err
		}
		newAddress = strings.ToLower(r.EVMAddress)
		return nil
	}
	if err := c.Store.Update(ctx, credentialID, wrapped); err != nil {
		return err
	}
	if newAddress != "" {
		c.cache.Delete(newAddress)
	}
	return nil
}

// Stop stops the cache's background expiration goroutine.
func (c *CachingStore) Stop() {
	c.cache.Stop()
}
