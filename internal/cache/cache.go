// Package cache keeps finished batch outputs and inspect results in memory.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrNotFound is returned for unknown or expired keys.
	ErrNotFound = errors.New("not found in cache")
	// ErrEntryTooLarge is returned when a value cannot fit in one shard.
	ErrEntryTooLarge = errors.New("entry too large for the batch cache")
)

const (
	// batchShards is kept low so a single shard can hold a large archive.
	// Must be a power of two.
	batchShards = 2
	// entryOverhead covers the key, timestamp, hash and queue headers
	// bigcache stores next to each value.
	entryOverhead = 64
)

// Config contains cache configuration.
type Config struct {
	BatchCacheSizeMB int
	BatchTTL         time.Duration
	InspectCacheSize int
}

// Manager holds two caches: a TTL byte store for batch archives and
// artifacts, and an LRU for inspect summaries.
type Manager struct {
	batches  *bigcache.BigCache
	inspects *lru.Cache[string, []byte]
	maxEntry int // bytes; 0 means unbounded
}

// NewManager creates a new cache manager.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	ttl := cfg.BatchTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	batchConfig := bigcache.Config{
		Shards:             batchShards,
		LifeWindow:         ttl,
		CleanWindow:        ttl / 2,
		MaxEntriesInWindow: 64,
		MaxEntrySize:       1024 * 1024,
		HardMaxCacheSize:   cfg.BatchCacheSizeMB,
		Verbose:            false,
	}
	batches, err := bigcache.New(ctx, batchConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch cache: %w", err)
	}

	size := cfg.InspectCacheSize
	if size <= 0 {
		size = 128
	}
	inspects, err := lru.New[string, []byte](size)
	if err != nil {
		_ = batches.Close()
		return nil, fmt.Errorf("failed to create inspect cache: %w", err)
	}

	m := &Manager{batches: batches, inspects: inspects}
	if cfg.BatchCacheSizeMB > 0 {
		// A shard queue may refuse an entry above half its limit once it
		// has grown, so that is the guaranteed bound.
		m.maxEntry = cfg.BatchCacheSizeMB*1024*1024/batchShards/2 - entryOverhead
	}
	return m, nil
}

// PutArchive stores the zip of a batch.
func (m *Manager) PutArchive(batchID string, data []byte) error {
	return m.set(archiveKey(batchID), data)
}

// Archive returns the zip of a batch.
func (m *Manager) Archive(batchID string) ([]byte, error) {
	return m.get(archiveKey(batchID))
}

// PutArtifact stores one artifact of a batch.
func (m *Manager) PutArtifact(batchID, name string, data []byte) error {
	return m.set(artifactKey(batchID, name), data)
}

func (m *Manager) set(key string, data []byte) error {
	if m.maxEntry > 0 && len(key)+len(data) > m.maxEntry {
		return fmt.Errorf("%w: %d bytes, limit %d (raise cache.batch_size_mb)", ErrEntryTooLarge, len(data), m.maxEntry-len(key))
	}
	return m.batches.Set(key, data)
}

// Artifact returns one artifact of a batch.
func (m *Manager) Artifact(batchID, name string) ([]byte, error) {
	return m.get(artifactKey(batchID, name))
}

func (m *Manager) get(key string) ([]byte, error) {
	data, err := m.batches.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Inspect returns a cached inspect result.
func (m *Manager) Inspect(key string) ([]byte, bool) {
	return m.inspects.Get(key)
}

// PutInspect caches an inspect result.
func (m *Manager) PutInspect(key string, data []byte) {
	m.inspects.Add(key, data)
}

// ContentKey hashes file content into an inspect cache key.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return "inspect:" + hex.EncodeToString(sum[:])
}

func archiveKey(batchID string) string {
	return fmt.Sprintf("batch:%s:archive", batchID)
}

func artifactKey(batchID, name string) string {
	return fmt.Sprintf("batch:%s:artifact:%s", batchID, name)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"batch_cache_len":   m.batches.Len(),
		"batch_cache_cap":   m.batches.Capacity(),
		"batch_entry_max":   m.maxEntry,
		"inspect_cache_len": m.inspects.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.batches.Close()
}
