// Package cache serves provider results from the local store, fetching and
// persisting them on miss. Entries are content-addressed by a fingerprint of
// the query parameters and partitioned per customer, so identical queries hit
// the cache and any parameter change misses it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/registry"
	"github.com/costpilot/costpilot/internal/store"
)

// FetchFunc is the provider adapter invoked on a cache miss.
type FetchFunc func(ctx context.Context, q models.Query) models.Result

// Cache is the get-or-fetch layer between the engine and provider adapters.
//
// Within one process, concurrent requests for the same fingerprint share a
// single in-flight fetch: later callers block on the first caller's result
// instead of issuing a duplicate AWS call.
type Cache struct {
	store *store.Store
	log   *zap.SugaredLogger

	// group deduplicates in-flight fetches per fingerprint.
	group singleflight.Group
}

// New returns a Cache backed by st.
func New(st *store.Store, log *zap.SugaredLogger) *Cache {
	return &Cache{store: st, log: log}
}

// fetchOutcome is the singleflight payload: the result plus whether it was
// served from the persisted cache.
type fetchOutcome struct {
	result    models.Result
	fromCache bool
}

// GetOrFetch returns the cached result for (scope, q) or invokes fetch and
// persists its result. The bool reports whether the value came from the cache.
//
// Caching rules:
//   - a hit is returned as-is; fingerprint equality is the only validity
//     check (no time-based expiry)
//   - Success and PartialSuccess results are persisted
//   - Failure results are NOT persisted, so the next call retries from scratch
func (c *Cache) GetOrFetch(ctx context.Context, scope *registry.CustomerScope, q models.Query, fetch FetchFunc) (models.Result, bool, error) {
	fp, err := Fingerprint(q)
	if err != nil {
		return models.Result{}, false, err
	}

	// The singleflight key includes the customer partition so two customers
	// can fetch the same query shape concurrently without joining.
	key := scope.PartitionKey() + "/" + q.PartitionType + "/" + fp

	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.lookupOrFetch(ctx, scope, q, fp, fetch)
	})
	if err != nil {
		return models.Result{}, false, err
	}

	out := v.(*fetchOutcome)
	if shared {
		c.log.Debugw("joined in-flight fetch", "partition", q.PartitionType, "fingerprint", fp[:12])
	}
	return out.result, out.fromCache, nil
}

func (c *Cache) lookupOrFetch(ctx context.Context, scope *registry.CustomerScope, q models.Query, fp string, fetch FetchFunc) (*fetchOutcome, error) {
	entry, err := c.store.GetCacheEntry(scope.CustomerID, q.PartitionType, fp)
	switch {
	case err == nil:
		var res models.Result
		if uerr := json.Unmarshal(entry.Payload, &res); uerr != nil {
			// A corrupt payload is treated as a miss; the fresh fetch below
			// overwrites it.
			c.log.Warnw("discarding corrupt cache entry",
				"partition", q.PartitionType, "fingerprint", fp[:12], "error", uerr)
		} else {
			c.log.Debugw("cache hit", "partition", q.PartitionType, "fingerprint", fp[:12])
			return &fetchOutcome{result: res, fromCache: true}, nil
		}
	case errors.Is(err, store.ErrNotFound):
		// Miss: fall through to fetch.
	default:
		return nil, err
	}

	c.log.Debugw("cache miss", "partition", q.PartitionType, "fingerprint", fp[:12])
	res := fetch(ctx, q)

	// Failed fetches leave no entry so the next run retries from scratch.
	if res.Failure != nil {
		return &fetchOutcome{result: res}, nil
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result for cache: %w", err)
	}
	if err := c.store.PutCacheEntry(scope.CustomerID, q.PartitionType, fp, payload); err != nil {
		return nil, err
	}
	return &fetchOutcome{result: res}, nil
}

// Purge removes every cache entry for the customer. Maintenance operation;
// normal runs never expire entries.
func (c *Cache) Purge(scope *registry.CustomerScope) (int64, error) {
	return c.store.PurgeCache(scope.CustomerID)
}
