/*
Package cache provides the strategy-pluggable key/value store at the heart
of the perfcore adaptive performance subsystem.

# Store

Store is an in-memory cache with a fixed eviction strategy, an entry-count
capacity, an optional byte budget, and per-entry expiration. Values are
copied on the way in and out; the store never aliases caller memory.

Four strategies are supported:

	LRU   evict the least recently accessed entry, ties broken by
	      oldest insertion
	LFU   evict the entry with the lowest access count, ties broken by
	      oldest access
	TTL   evict the entry nearest to expiry; entries without an expiry
	      fall back to oldest insertion
	FIFO  evict the oldest inserted entry, ignoring access pattern

The strategy is immutable for the store's lifetime. A strategy change is a
new Store plus Migrate, never an in-place mutation.

Capacity is enforced on every insert: eviction is the defined resolution
for a full store, never an error. The entry-count bound and the byte budget
are independent; either may be used alone. A store with neither bound set
is a no-op cache where every Set is immediately evicted, which is useful as
a degenerate configuration and must not fail.

# Expiration

Set applies the store's default TTL (zero means entries never expire).
SetWithTTL overrides per entry; a TTL of zero or less produces an entry
that is already expired on the next Get. Expired entries are removed lazily
on access and, when a cleanup interval is configured, by a background sweep
that is stopped by Close.

# Statistics

Hit and miss counters accumulate for the store's lifetime. Stats is safe to
call at any time and is the input for the optimizer's cache hit rate
recommendations.

# Warm store

PersistentStore is a SQLite-backed companion holding previously hot entries
across process restarts. EvictFraction returns the entries it removed so
the optimizer can spill them to the warm store before memory-pressure
eviction, and HotEntries feeds preloading after a restart. All warm store
operations are best-effort from the optimizer's point of view.

# Concurrency

All Store operations are safe for concurrent use. Every mutation happens
entirely inside one critical section, so no caller can ever observe a
partially updated structure; operations on a single key are applied in call
order.
*/
package cache
