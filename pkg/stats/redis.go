package stats

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/queryplex/queryplex/pkg/types"
)

// recordScript atomically folds one call outcome into a Redis hash.
// The whole read-modify-write runs inside Redis, so concurrent instances
// never lose updates.
const recordScript = `
local key = KEYS[1]
local success = tonumber(ARGV[1])
local latency_ms = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local alpha = tonumber(ARGV[4])

if success == 1 then
    redis.call('HINCRBY', key, 'success_count', 1)
else
    redis.call('HINCRBY', key, 'failure_count', 1)
end

if latency_ms > 0 then
    local avg = tonumber(redis.call('HGET', key, 'avg_latency_ms'))
    if avg and avg > 0 then
        avg = avg * (1 - alpha) + latency_ms * alpha
    else
        avg = latency_ms
    end
    redis.call('HSET', key, 'avg_latency_ms', avg)
end

if success == 1 and cost > 0 then
    local avgc = tonumber(redis.call('HGET', key, 'avg_cost_usd'))
    if avgc and avgc > 0 then
        avgc = avgc * (1 - alpha) + cost * alpha
    else
        avgc = cost
    end
    redis.call('HSET', key, 'avg_cost_usd', avgc)
end

return 1
`

// RedisStore implements Store on Redis for multi-instance deployments.
// Updates run as a Lua script for per-key atomicity.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string

	record *redis.Script
}

// RedisStoreOption configures RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the Redis key prefix (default: "queryplex:stats").
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// NewRedisStore creates a Redis-backed metrics store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "queryplex:stats",
		record:    redis.NewScript(recordScript),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(provider, requestType string) string {
	return s.keyPrefix + ":" + Key(provider, requestType)
}

// Record folds a call outcome into the Redis hash for the key.
func (s *RedisStore) Record(ctx context.Context, provider, requestType string, result *types.ProviderCallResult) error {
	success := 0
	if result.Success {
		success = 1
	}

	return s.record.Run(ctx, s.client,
		[]string{s.key(provider, requestType)},
		success,
		result.Latency.Milliseconds(),
		result.Cost,
		Alpha,
	).Err()
}

// Snapshot reads the metric hash for the key.
func (s *RedisStore) Snapshot(ctx context.Context, provider, requestType string) (Metric, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(provider, requestType)).Result()
	if err != nil {
		return Metric{}, false, err
	}
	if len(fields) == 0 {
		return Metric{}, false, nil
	}

	var m Metric
	m.SuccessCount, _ = strconv.ParseInt(fields["success_count"], 10, 64)
	m.FailureCount, _ = strconv.ParseInt(fields["failure_count"], 10, 64)
	m.AvgLatencyMs, _ = strconv.ParseFloat(fields["avg_latency_ms"], 64)
	m.AvgCostUSD, _ = strconv.ParseFloat(fields["avg_cost_usd"], 64)
	return m, true, nil
}

// BestProvider returns the highest-scoring candidate for the request type.
func (s *RedisStore) BestProvider(ctx context.Context, candidates []string, requestType string) (string, error) {
	metrics := make([]Metric, len(candidates))
	for i, c := range candidates {
		m, _, err := s.Snapshot(ctx, c, requestType)
		if err != nil {
			return "", err
		}
		metrics[i] = m
	}
	return pickBest(candidates, metrics)
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
