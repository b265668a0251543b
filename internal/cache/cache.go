// Package cache keeps recently resolved properties in memory so that every
// ledger request does not hit the properties table for authorization.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"homeledger/internal/core"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
)

// PropertyCache decorates a PropertyResolver. Only positive lookups are
// cached; the owner check runs against the cached property on every call.
type PropertyCache struct {
	next   ledger.PropertyResolver
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *log.Logger
}

func NewPropertyCache(next ledger.PropertyResolver, ttl time.Duration, logger *log.Logger) (*PropertyCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10000, // number of keys to track frequency of
		MaxCost:            1000,  // at most this many properties
		BufferItems:        64,    // number of keys per Get buffer
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create property cache: %w", err)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &PropertyCache{next: next, cache: c, ttl: ttl, logger: logger.WithComponent(log.ComponentCache)}, nil
}

func propertyKey(id int64) string   { return fmt.Sprintf("property:%d", id) }
func primaryKey(owner int64) string { return fmt.Sprintf("primary:%d", owner) }

func (c *PropertyCache) get(key string) (core.Property, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return core.Property{}, false
	}
	p, ok := v.(core.Property)
	return p, ok
}

func (c *PropertyCache) set(key string, p core.Property) {
	if c.ttl > 0 {
		c.cache.SetWithTTL(key, p, 1, c.ttl)
	} else {
		c.cache.Set(key, p, 1)
	}
}

// ResolveAuthorizedProperty implements ledger.PropertyResolver.
func (c *PropertyCache) ResolveAuthorizedProperty(ctx context.Context, owner, propertyID int64) (core.Property, error) {
	if p, ok := c.get(propertyKey(propertyID)); ok {
		if p.OwnerID != owner {
			return core.Property{}, core.ErrNotFound
		}
		return p, nil
	}

	p, err := c.next.ResolveAuthorizedProperty(ctx, owner, propertyID)
	if err != nil {
		return core.Property{}, err
	}
	c.set(propertyKey(p.ID), p)
	c.logger.DebugContext(ctx, "Property cached", log.FieldPropertyID, p.ID)
	return p, nil
}

// PrimaryProperty implements ledger.PropertyResolver.
func (c *PropertyCache) PrimaryProperty(ctx context.Context, owner int64) (core.Property, error) {
	if p, ok := c.get(primaryKey(owner)); ok {
		return p, nil
	}
	p, err := c.next.PrimaryProperty(ctx, owner)
	if err != nil {
		return core.Property{}, err
	}
	c.set(primaryKey(owner), p)
	c.set(propertyKey(p.ID), p)
	return p, nil
}

// Invalidate drops a property and its owner's primary entry.
func (c *PropertyCache) Invalidate(p core.Property) {
	c.cache.Del(propertyKey(p.ID))
	c.cache.Del(primaryKey(p.OwnerID))
}

// Wait blocks until buffered writes are applied. Tests use it to make
// caching deterministic.
func (c *PropertyCache) Wait() {
	c.cache.Wait()
}

func (c *PropertyCache) Close() {
	c.cache.Close()
}
