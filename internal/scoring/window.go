package scoring

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// bucketWindow is a fixed-size ring of per-minute error counts for one
// sqlId, used by the error-rate-spike checker. It is intentionally tiny:
// memory is bounded per key, and the LRU below bounds key cardinality.
type bucketWindow struct {
	mu      sync.Mutex
	buckets [windowSize]int
	stamps  [windowSize]int64 // unix-minute each bucket was last written
}

const windowSize = 10

func bucketIndex(minute int64) int {
	if minute < 0 {
		minute = -minute
	}
	return int(minute % windowSize)
}

func (w *bucketWindow) recordError(now time.Time) (countInWindow int) {
	minute := now.Unix() / 60
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := bucketIndex(minute)
	if w.stamps[idx] != minute {
		w.stamps[idx] = minute
		w.buckets[idx] = 0
	}
	w.buckets[idx]++

	total := 0
	for i := 0; i < windowSize; i++ {
		if minute-w.stamps[i] < windowSize {
			total += w.buckets[i]
		}
	}
	return total
}

// WindowStore bounds per-sqlId window state behind an LRU, resolving spec
// §9 Open Question (ii) in favor of bounded eviction over unbounded growth
// under high sqlId cardinality.
type WindowStore struct {
	cache *lru.Cache
}

// NewWindowStore builds a WindowStore holding at most capacity sqlId
// windows, evicting least-recently-used entries beyond that.
func NewWindowStore(capacity int) (*WindowStore, error) {
	c, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &WindowStore{cache: c}, nil
}

func (s *WindowStore) windowFor(sqlID string) *bucketWindow {
	if v, ok := s.cache.Get(sqlID); ok {
		return v.(*bucketWindow)
	}
	w := &bucketWindow{}
	s.cache.Add(sqlID, w)
	return w
}

// RecordError registers an error observation for sqlID at ts and returns
// the count of errors within the trailing windowSize-minute window.
func (s *WindowStore) RecordError(sqlID string, ts time.Time) int {
	return s.windowFor(sqlID).recordError(ts)
}
