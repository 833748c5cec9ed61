package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/perfcore/perfcore/pkg/errors"
	"github.com/perfcore/perfcore/pkg/types"
	"github.com/perfcore/perfcore/pkg/utils"
)

// Strategy identifies the eviction policy family. It is fixed for the
// lifetime of a Store; changing strategy means constructing a new Store and
// migrating entries.
type Strategy string

const (
	LRU  Strategy = "lru"
	LFU  Strategy = "lfu"
	TTL  Strategy = "ttl"
	FIFO Strategy = "fifo"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case LRU, LFU, TTL, FIFO:
		return Strategy(s), nil
	default:
		return "", errors.NewError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown cache strategy %q", s)).WithComponent("cache")
	}
}

// Config represents cache construction settings
type Config struct {
	Strategy        Strategy
	Capacity        int
	MaxBytes        int64
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Logger          *utils.StructuredLogger
}

// Store is a strategy-pluggable key/value cache with expiration and
// eviction. Each key maps to at most one live entry; writes to an existing
// key replace the entry in place without duplicating bookkeeping state.
type Store struct {
	mu           sync.RWMutex
	strategy     Strategy
	capacity     int
	maxBytes     int64
	defaultTTL   time.Duration
	entries      map[string]*storeEntry
	order        *list.List // front = newest; recency order for LRU, insertion order for FIFO
	currentBytes int64

	hits      uint64
	misses    uint64
	evictions uint64

	logger *utils.StructuredLogger

	stopCh chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// storeEntry is a live cache entry. The value is owned exclusively by the
// entry; it is copied in on Set and copied out on Get.
type storeEntry struct {
	key            string
	value          []byte
	insertedAt     time.Time
	lastAccessedAt time.Time
	accessCount    int64
	expiresAt      time.Time // zero = never expires
	size           int64
	element        *list.Element
}

// Entry is an exported copy of a cache entry, used for migration and for
// spilling evicted entries to the persistent warm store.
type Entry struct {
	Key         string
	Value       []byte
	AccessCount int64
	ExpiresAt   time.Time
}

// New creates a new Store. An unknown strategy is a construction error.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Strategy == "" {
		cfg.Strategy = LRU
	}
	if _, err := ParseStrategy(string(cfg.Strategy)); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger, _ = utils.NewStructuredLogger(nil)
	}

	s := &Store{
		strategy:   cfg.Strategy,
		capacity:   cfg.Capacity,
		maxBytes:   cfg.MaxBytes,
		defaultTTL: cfg.DefaultTTL,
		entries:    make(map[string]*storeEntry),
		order:      list.New(),
		logger:     logger.WithComponent("cache"),
		stopCh:     make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupExpired(cfg.CleanupInterval)
	}

	return s, nil
}

// Strategy returns the store's eviction strategy.
func (s *Store) Strategy() Strategy {
	return s.strategy
}

// Get retrieves a value. Missing or expired keys return false. A hit under
// LRU updates recency, under LFU increments the frequency counter; FIFO
// reads do not affect eviction order.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		s.misses++
		return nil, false
	}

	if s.isExpired(e, time.Now()) {
		s.removeEntry(e, false)
		s.misses++
		return nil, false
	}

	e.lastAccessedAt = time.Now()
	e.accessCount++

	if s.strategy == LRU {
		s.order.MoveToFront(e.element)
	}

	s.hits++

	result := make([]byte, len(e.value))
	copy(result, e.value)
	return result, true
}

// Set stores a value under the store's default TTL (zero means no expiry).
func (s *Store) Set(key string, value []byte) {
	var expiresAt time.Time
	if s.defaultTTL > 0 {
		expiresAt = time.Now().Add(s.defaultTTL)
	}
	s.put(key, value, expiresAt, 0)
}

// SetWithTTL stores a value with an explicit TTL. A ttl <= 0 produces an
// entry that is already expired on the next Get.
func (s *Store) SetWithTTL(key string, value []byte, ttl time.Duration) {
	s.put(key, value, time.Now().Add(ttl), 0)
}

func (s *Store) put(key string, value []byte, expiresAt time.Time, accessCount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// With neither an entry bound nor a byte budget the store is a no-op
	// cache: every insert is immediately evicted. A byte-budget-only store
	// (capacity zero, MaxBytes set) still admits entries.
	if s.capacity == 0 && s.maxBytes == 0 {
		s.evictions++
		return
	}

	now := time.Now()

	if e, exists := s.entries[key]; exists {
		// Last write wins; replace in place. FIFO keeps the original list
		// position so insertion order still governs eviction.
		s.currentBytes -= e.size
		e.value = make([]byte, len(value))
		copy(e.value, value)
		e.size = int64(len(value))
		e.expiresAt = expiresAt
		e.lastAccessedAt = now
		s.currentBytes += e.size

		if s.strategy == LRU {
			s.order.MoveToFront(e.element)
		}
		s.evictIfNeeded()
		return
	}

	e := &storeEntry{
		key:            key,
		value:          make([]byte, len(value)),
		insertedAt:     now,
		lastAccessedAt: now,
		accessCount:    accessCount,
		expiresAt:      expiresAt,
		size:           int64(len(value)),
	}
	copy(e.value, value)

	e.element = s.order.PushFront(e)
	s.entries[key] = e
	s.currentBytes += e.size

	s.evictIfNeeded()
}

// Invalidate removes an entry unconditionally. Absent keys are not an error.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists {
		s.removeEntry(e, false)
	}
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*storeEntry)
	s.order.Init()
	s.currentBytes = 0
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SizeBytes returns the approximate byte cost of all live entries.
func (s *Store) SizeBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentBytes
}

// Keys returns all live keys (for maintenance and tests).
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns lifetime hit/miss counters and current occupancy. Counters
// accumulate for the store's lifetime and are not reset by reads.
func (s *Store) Stats() types.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.CacheStats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Size:      int64(len(s.entries)),
		Capacity:  int64(s.capacity),
	}
	if total := s.hits + s.misses; total > 0 {
		stats.HitRate = float64(s.hits) / float64(total)
	}
	if s.capacity > 0 {
		stats.Utilization = float64(len(s.entries)) / float64(s.capacity)
	}
	return stats
}

// EvictFraction evicts the worst fraction of entries per the store's
// strategy order and returns copies of what was removed, so callers can
// spill them to the warm store.
func (s *Store) EvictFraction(fraction float64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fraction <= 0 || len(s.entries) == 0 {
		return nil
	}
	if fraction > 1 {
		fraction = 1
	}

	target := int(float64(len(s.entries))*fraction + 0.999999)
	if target < 1 {
		target = 1
	}

	evicted := make([]Entry, 0, target)
	for i := 0; i < target; i++ {
		victim := s.selectVictim()
		if victim == nil {
			break
		}
		evicted = append(evicted, Entry{
			Key:         victim.key,
			Value:       append([]byte(nil), victim.value...),
			AccessCount: victim.accessCount,
			ExpiresAt:   victim.expiresAt,
		})
		s.removeEntry(victim, true)
	}
	return evicted
}

// Migrate copies all live entries into dst, preserving remaining TTLs and
// access counts, walking oldest-first so recency order is rebuilt correctly
// in the new store. Used for strategy changes; carrying the counts keeps
// frequency history meaningful when the destination is an LFU store.
func (s *Store) Migrate(dst *Store) {
	s.mu.RLock()
	now := time.Now()
	entries := make([]Entry, 0, len(s.entries))
	for elem := s.order.Back(); elem != nil; elem = elem.Prev() {
		e := elem.Value.(*storeEntry)
		if s.isExpired(e, now) {
			continue
		}
		entries = append(entries, Entry{
			Key:         e.key,
			Value:       append([]byte(nil), e.value...),
			AccessCount: e.accessCount,
			ExpiresAt:   e.expiresAt,
		})
	}
	s.mu.RUnlock()

	for _, e := range entries {
		dst.put(e.Key, e.Value, e.ExpiresAt, e.AccessCount)
	}
}

// Close stops the cleanup sweep. Safe to call multiple times.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

// Internal helpers. All must be called with the write lock held and must
// leave the structure fully consistent before returning.

func (s *Store) isExpired(e *storeEntry, now time.Time) bool {
	if e.expiresAt.IsZero() {
		return false
	}
	return !now.Before(e.expiresAt)
}

func (s *Store) removeEntry(e *storeEntry, evicted bool) {
	if e.element != nil {
		s.order.Remove(e.element)
	}
	delete(s.entries, e.key)
	s.currentBytes -= e.size
	if evicted {
		s.evictions++
	}
}

func (s *Store) evictIfNeeded() {
	if s.capacity > 0 {
		for len(s.entries) > s.capacity {
			victim := s.selectVictim()
			if victim == nil {
				return
			}
			s.removeEntry(victim, true)
		}
	}

	if s.maxBytes > 0 {
		for s.currentBytes > s.maxBytes && len(s.entries) > 0 {
			victim := s.selectVictim()
			if victim == nil {
				return
			}
			s.removeEntry(victim, true)
		}
	}
}

// selectVictim picks the next eviction victim per strategy:
//
//	LRU:  least recently accessed, ties broken by oldest insertion
//	LFU:  lowest access count, ties broken by oldest access
//	TTL:  nearest to expiry; entries without expiry lose to any that have
//	      one, falling back to oldest insertion
//	FIFO: oldest insertion, access pattern ignored
func (s *Store) selectVictim() *storeEntry {
	switch s.strategy {
	case LRU, FIFO:
		// The list already encodes the right order: LRU moves entries to
		// the front on access, FIFO never does.
		elem := s.order.Back()
		if elem == nil {
			return nil
		}
		return elem.Value.(*storeEntry)

	case LFU:
		var victim *storeEntry
		for _, e := range s.entries {
			if victim == nil {
				victim = e
				continue
			}
			if e.accessCount < victim.accessCount ||
				(e.accessCount == victim.accessCount && e.lastAccessedAt.Before(victim.lastAccessedAt)) {
				victim = e
			}
		}
		return victim

	case TTL:
		var victim *storeEntry
		for _, e := range s.entries {
			if victim == nil {
				victim = e
				continue
			}
			if ttlLess(e, victim) {
				victim = e
			}
		}
		return victim

	default:
		elem := s.order.Back()
		if elem == nil {
			return nil
		}
		return elem.Value.(*storeEntry)
	}
}

// ttlLess reports whether a should be evicted before b under TTL policy.
func ttlLess(a, b *storeEntry) bool {
	aHas, bHas := !a.expiresAt.IsZero(), !b.expiresAt.IsZero()
	switch {
	case aHas && bHas:
		return a.expiresAt.Before(b.expiresAt)
	case aHas:
		return true
	case bHas:
		return false
	default:
		return a.insertedAt.Before(b.insertedAt)
	}
}

func (s *Store) cleanupExpired(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var expired []*storeEntry
	for _, e := range s.entries {
		if s.isExpired(e, now) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		s.removeEntry(e, false)
	}

	if len(expired) > 0 {
		s.logger.Debug("expired entries swept", map[string]interface{}{
			"count":     len(expired),
			"remaining": len(s.entries),
		})
	}
}
