// Package state holds the only process-wide mutable value of the service:
// the set of Jira project keys used to validate KEY-N mentions.
package state

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// KeyFetcher loads the project keys from Jira.
type KeyFetcher func(ctx context.Context) ([]string, error)

// ProjectKeyCache is populated at most once per process and is read-only
// afterwards. Concurrent first callers share one fetch. A failed fetch is not
// cached, so the next caller tries again.
type ProjectKeyCache struct {
	fetch KeyFetcher
	group singleflight.Group

	mu     sync.RWMutex
	keys   map[string]struct{}
	loaded bool
}

// NewProjectKeyCache creates an empty cache backed by fetch.
func NewProjectKeyCache(fetch KeyFetcher) *ProjectKeyCache {
	return &ProjectKeyCache{fetch: fetch}
}

// Contains reports whether key is a known project key, loading the cache on first use.
func (c *ProjectKeyCache) Contains(ctx context.Context, key string) (bool, error) {
	keys, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := keys[key]
	return ok, nil
}

// Keys returns a copy of the known project keys.
func (c *ProjectKeyCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out, nil
}

// Loaded reports whether the cache has been populated.
func (c *ProjectKeyCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *ProjectKeyCache) load(ctx context.Context) (map[string]struct{}, error) {
	c.mu.RLock()
	if c.loaded {
		keys := c.keys
		c.mu.RUnlock()
		return keys, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("project-keys", func() (interface{}, error) {
		c.mu.RLock()
		if c.loaded {
			keys := c.keys
			c.mu.RUnlock()
			return keys, nil
		}
		c.mu.RUnlock()

		list, err := c.fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch project keys: %w", err)
		}
		keys := make(map[string]struct{}, len(list))
		for _, k := range list {
			keys[k] = struct{}{}
		}

		c.mu.Lock()
		c.keys = keys
		c.loaded = true
		c.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]struct{}), nil
}
