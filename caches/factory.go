// Package caches provides cache backends for the queryplex library.
// It includes in-memory and Redis implementations of pkg/cache.Cache.
package caches

import (
	"github.com/queryplex/queryplex/caches/memory"
	"github.com/queryplex/queryplex/caches/redis"
	"github.com/queryplex/queryplex/pkg/cache"
)

// Type re-exports the cache backend kind for convenience.
type Type = cache.Type

// Cache type constants.
const (
	TypeMemory = cache.TypeMemory
	TypeRedis  = cache.TypeRedis
)

// NewMemory creates a new in-memory cache with the given configuration.
func NewMemory(cfg memory.Config) *memory.Cache {
	return memory.New(cfg)
}

// NewMemoryDefault creates a new in-memory cache with default configuration.
func NewMemoryDefault() *memory.Cache {
	return memory.New(memory.DefaultConfig())
}

// NewRedis creates a new Redis cache with the given configuration.
func NewRedis(cfg redis.Config) (*redis.Cache, error) {
	return redis.New(cfg)
}

// Re-export config types for convenience.
type (
	MemoryConfig = memory.Config
	RedisConfig  = redis.Config
)

// Re-export default config functions.
var (
	DefaultMemoryConfig = memory.DefaultConfig
	DefaultRedisConfig  = redis.DefaultConfig
)
