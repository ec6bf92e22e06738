package sqlite

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
)

// listCache briefly caches suggestion list results keyed by
// (saga, filter, page). Entries expire on a short TTL and the whole scope is
// invalidated explicitly on any write touching it, so readers never see a
// stale list past one write.
type listCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]listCacheEntry
}

type listCacheEntry struct {
	expires     time.Time
	suggestions []*entities.Suggestion
}

func newListCache(ttl time.Duration) *listCache {
	return &listCache{
		ttl:     ttl,
		entries: make(map[string]listCacheEntry),
	}
}

// listCacheKey builds the cache key; the saga prefix makes per-scope
// invalidation a prefix scan.
func listCacheKey(sagaID string, filter ports.SuggestionFilter, page ports.Page) string {
	return fmt.Sprintf("%s|%s|%s|%.2f|%d|%d",
		sagaID, filter.Status, filter.Type, filter.MinConfidence, page.Limit, page.Offset)
}

// Get returns a cached, unexpired result.
func (c *listCache) Get(key string) ([]*entities.Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.suggestions, true
}

// Set stores a result under the key.
func (c *listCache) Set(key string, suggestions []*entities.Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = listCacheEntry{
		expires:     time.Now().Add(c.ttl),
		suggestions: suggestions,
	}
}

// InvalidateScope drops every cached list for a saga.
func (c *listCache) InvalidateScope(sagaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := sagaID + "|"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}
