package validate

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// cachedVerdict is one dedup cache entry: the last verdict plus the time it
// expires.
type cachedVerdict struct {
	result  *Result
	expires time.Time
}

// DedupFilter is a bounded LRU of fingerprint -> last verdict, TTL bounded.
// golang-lru itself has no TTL notion, so expiry is checked on lookup.
//
// Per the spec's design notes on thread-locals: Go has no goroutine-local
// storage, so the "thread-local dedup filter" contract is realized here as
// an explicit collaborator the caller injects into Validator and never
// shares across concurrently-running SqlContext invocations that are not
// meant to observe each other's cache.
type DedupFilter struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
}

// NewDedupFilter builds a dedup filter with the given capacity and TTL.
func NewDedupFilter(capacity int, ttl time.Duration) (*DedupFilter, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &DedupFilter{cache: cache, ttl: ttl}, nil
}

// Lookup returns a cached verdict for fingerprint if present and unexpired.
func (f *DedupFilter) Lookup(fingerprint string) (*Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.cache.Get(fingerprint)
	if !ok {
		return nil, false
	}
	entry := v.(cachedVerdict)
	if time.Now().After(entry.expires) {
		f.cache.Remove(fingerprint)
		return nil, false
	}
	return entry.result, true
}

// Store records a verdict for fingerprint with a fresh TTL.
func (f *DedupFilter) Store(fingerprint string, result *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.Add(fingerprint, cachedVerdict{result: result, expires: time.Now().Add(f.ttl)})
}
