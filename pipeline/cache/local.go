package cache

import (
	"sync"
	"time"
)

// LocalStats tracks local tier effectiveness
type LocalStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
}

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// LocalTier is an in-process TTL cache used when the shared tier is
// unavailable. Expired entries are dropped lazily on read and by a
// background sweep.
type LocalTier struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	stats   LocalStats
	stop    chan struct{}
	done    chan struct{}
}

// NewLocalTier creates a local tier sweeping at the given interval. A
// non-positive interval disables the sweeper.
func NewLocalTier(sweepInterval time.Duration) *LocalTier {
	lt := &LocalTier{
		entries: make(map[string]localEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go lt.sweep(sweepInterval)
	} else {
		close(lt.done)
	}
	return lt
}

// Get returns the value for key if present and unexpired
func (lt *LocalTier) Get(key string) ([]byte, bool) {
	lt.mu.RLock()
	entry, ok := lt.entries[key]
	lt.mu.RUnlock()

	if !ok {
		lt.mu.Lock()
		lt.stats.Misses++
		lt.mu.Unlock()
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		lt.mu.Lock()
		if cur, still := lt.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(lt.entries, key)
			lt.stats.Evictions++
		}
		lt.stats.Misses++
		lt.mu.Unlock()
		return nil, false
	}

	lt.mu.Lock()
	lt.stats.Hits++
	lt.mu.Unlock()
	return entry.value, true
}

// Put stores a value with the given TTL
func (lt *LocalTier) Put(key string, value []byte, ttl time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.entries[key] = localEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Stats returns a snapshot of tier statistics
func (lt *LocalTier) Stats() LocalStats {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	stats := lt.stats
	stats.Size = len(lt.entries)
	return stats
}

// Close stops the background sweeper
func (lt *LocalTier) Close() {
	select {
	case <-lt.stop:
	default:
		close(lt.stop)
	}
	<-lt.done
}

func (lt *LocalTier) sweep(interval time.Duration) {
	defer close(lt.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-lt.stop:
			return
		case <-ticker.C:
			now := time.Now()
			lt.mu.Lock()
			for key, entry := range lt.entries {
				if now.After(entry.expiresAt) {
					delete(lt.entries, key)
					lt.stats.Evictions++
				}
			}
			lt.mu.Unlock()
		}
	}
}
