// Package cache persists analyzed module results between runs. A result is
// keyed by the listing path and validated against the listing fingerprint,
// so an edited listing is re-analyzed while an untouched one is served from
// disk.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/arcusfield/haruspex/pkg/models"
)

// Cache provides file-based caching for module results.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

type entry struct {
	Fingerprint string                `json:"fingerprint"`
	Timestamp   time.Time             `json:"timestamp"`
	Module      *models.ModuleMetrics `json:"module"`
}

// New creates a cache rooted at dir with entries expiring after ttlHours.
// A disabled cache misses on every Get and drops every Put.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Get returns the cached result for the listing at path when its stored
// fingerprint still matches and the entry has not expired.
func (c *Cache) Get(path, fingerprint string) (*models.ModuleMetrics, bool) {
	if !c.enabled {
		return nil, false
	}

	data, err := os.ReadFile(c.keyPath(path))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Fingerprint != fingerprint || e.Module == nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.Timestamp) > c.ttl {
		return nil, false
	}
	return e.Module, true
}

// Put stores a module result under its listing path.
func (c *Cache) Put(path string, mod *models.ModuleMetrics) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(entry{
		Fingerprint: mod.Fingerprint,
		Timestamp:   time.Now(),
		Module:      mod,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(c.keyPath(path), data, 0600)
}

// Clear removes every cached result.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, HashBytes([]byte(key))+".json")
}
