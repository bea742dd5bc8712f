// Package cache defines the response cache contract: a content-addressed
// store mapping request fingerprints to previously extracted essences.
// Backends live under caches/.
package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	qperrors "github.com/queryplex/queryplex/pkg/errors"
	"github.com/queryplex/queryplex/pkg/types"
)

// Type represents the cache backend kind.
type Type string

const (
	TypeMemory Type = "memory" // in-process cache
	TypeRedis  Type = "redis"  // Redis cache
)

// DefaultTTL separates "fresh enough to reuse" from stale.
const DefaultTTL = 24 * time.Hour

// Cache is the byte-level interface implemented by all backends.
type Cache interface {
	// Get retrieves a value. Returns nil, nil when the key is absent or
	// expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A TTL of 0 uses the backend
	// default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Ping checks backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Stats returns hit/miss statistics.
	Stats() Stats
}

// Stats holds cache statistics for monitoring.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// Entry is the value stored per request fingerprint: the essences produced
// for the request, the total cost incurred producing them, and expiry data.
type Entry struct {
	Essences  []types.Essence `json:"essences"`
	Cost      float64         `json:"cost"`
	CreatedAt time.Time       `json:"created_at"`
	TTL       time.Duration   `json:"ttl"`
}

// Expired reports whether the entry's TTL has elapsed at the given time.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.After(e.CreatedAt.Add(e.TTL))
}

// EncodeEntry serializes an entry for storage.
func EncodeEntry(e *Entry) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEntry deserializes an entry. A malformed payload yields
// CacheCorruptionError; callers treat that as a miss.
func DecodeEntry(key string, data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, &qperrors.CacheCorruptionError{Key: key, Err: err}
	}
	return &e, nil
}

// GetEntry fetches and decodes the entry for a fingerprint, enforcing expiry
// lazily: absent, expired, or corrupted entries all surface as nil, nil.
func GetEntry(ctx context.Context, c Cache, fingerprint string) (*Entry, error) {
	data, err := c.Get(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	entry, err := DecodeEntry(fingerprint, data)
	if err != nil {
		// Corrupted entries are overwritten on the next successful write.
		return nil, nil
	}
	if entry.Expired(time.Now()) {
		return nil, nil
	}
	return entry, nil
}

// PutEntry encodes and stores the entry under the fingerprint.
func PutEntry(ctx context.Context, c Cache, fingerprint string, entry *Entry) error {
	data, err := EncodeEntry(entry)
	if err != nil {
		return err
	}
	return c.Set(ctx, fingerprint, data, entry.TTL)
}
