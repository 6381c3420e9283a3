// Package cache provides the two-tier feature record cache: a shared
// badger-backed tier with an in-process TTL fallback. When the shared tier
// fails, the store degrades to the local tier for the rest of its lifetime
// and never surfaces cache errors to callers.
package cache

import (
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-huella/logging"
)

// KeyPrefix namespaces feature record entries in the shared tier
const KeyPrefix = "audiofeatures:"

// Key builds the cache key for an audio content hash
func Key(audioID string) string {
	return KeyPrefix + audioID
}

// SharedTier is the remote or embedded shared cache backend
type SharedTier interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte, ttl time.Duration) error
	Close() error
}

// StoreConfig holds configuration for the cache store
type StoreConfig struct {
	TTL           time.Duration `json:"ttl"`
	SweepInterval time.Duration `json:"sweep_interval"`
}

// DefaultStoreConfig returns a standard cache configuration
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		TTL:           time.Hour,
		SweepInterval: time.Minute,
	}
}

// Store is the two-tier cache. A nil shared tier starts the store in
// local-only mode.
type Store struct {
	config *StoreConfig
	shared SharedTier
	local  *LocalTier
	logger logging.Logger

	mu       sync.Mutex
	degraded bool
}

// NewStore creates a cache store. A nil config uses defaults; shared may
// be nil for local-only operation.
func NewStore(config *StoreConfig, shared SharedTier) *Store {
	if config == nil {
		config = DefaultStoreConfig()
	}
	return &Store{
		config: config,
		shared: shared,
		local:  NewLocalTier(config.SweepInterval),
		logger: logging.WithFields(logging.Fields{"component": "feature_cache"}),
	}
}

// Get returns the cached value for key. Shared tier failure degrades the
// store to the local tier; it is never surfaced as an error.
func (s *Store) Get(key string) ([]byte, bool) {
	if s.useShared() {
		value, found, err := s.shared.Get(key)
		if err != nil {
			s.degrade(err)
		} else {
			return value, found
		}
	}
	return s.local.Get(key)
}

// Put stores a value in the active tier with the configured TTL,
// best-effort.
func (s *Store) Put(key string, value []byte) {
	if s.useShared() {
		if err := s.shared.Put(key, value, s.config.TTL); err != nil {
			s.degrade(err)
		} else {
			return
		}
	}
	s.local.Put(key, value, s.config.TTL)
}

// Degraded reports whether the store has fallen back to the local tier
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// LocalStats returns local tier statistics
func (s *Store) LocalStats() LocalStats {
	return s.local.Stats()
}

// Close releases both tiers
func (s *Store) Close() error {
	s.local.Close()
	if s.shared != nil {
		return s.shared.Close()
	}
	return nil
}

func (s *Store) useShared() bool {
	if s.shared == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.degraded
}

// degrade flips the store to the local tier, once
func (s *Store) degrade(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.degraded = true
	s.logger.WithFields(logging.Fields{"error": err.Error()}).Warn("shared cache tier unavailable, falling back to local tier")
}
