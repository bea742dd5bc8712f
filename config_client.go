package queryplex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/queryplex/queryplex/caches"
	"github.com/queryplex/queryplex/internal/config"
	"github.com/queryplex/queryplex/pkg/cache"
	"github.com/queryplex/queryplex/pkg/provider"
)

// NewFromConfigFile creates a client from a YAML configuration file and
// watches it for changes. Routing rule edits take effect on running clients
// without a restart; provider and cache changes require a new client.
//
// The watch stops when ctx is cancelled.
func NewFromConfigFile(ctx context.Context, path string, opts ...Option) (*Client, error) {
	logger := slog.Default()

	mgr, err := config.NewManager(path, logger)
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	fileOpts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	// File-derived options first so explicit options win.
	client, err := New(append(fileOpts, opts...)...)
	if err != nil {
		return nil, err
	}

	mgr.OnChange(func(next *config.Config) {
		client.SetRules(rulesFromConfig(next.Routing))
	})
	if err := mgr.Watch(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

func optionsFromConfig(cfg *config.Config) ([]Option, error) {
	var opts []Option

	for _, p := range cfg.Providers {
		opts = append(opts, WithProvider(provider.Config{
			Name:            p.Name,
			Type:            p.Type,
			Endpoint:        p.Endpoint,
			APIKey:          p.APIKey,
			DefaultModel:    p.DefaultModel,
			InputCostPer1K:  p.InputCostPer1K,
			OutputCostPer1K: p.OutputCostPer1K,
			Capabilities:    p.Capabilities,
			Priority:        p.Priority,
			RatePerSecond:   p.RatePerSecond,
			RateBurst:       p.RateBurst,
		}))
	}

	for requestType, rule := range rulesFromConfig(cfg.Routing) {
		opts = append(opts, WithRoutingRule(requestType, rule))
	}

	switch cfg.Cache.Type {
	case "", string(cache.TypeMemory):
		opts = append(opts, WithCache(caches.NewMemoryDefault()))
	case string(cache.TypeRedis):
		rc := caches.DefaultRedisConfig()
		rc.Addr = cfg.Cache.RedisAddr
		if cfg.Cache.Namespace != "" {
			rc.Namespace = cfg.Cache.Namespace
		}
		redisCache, err := caches.NewRedis(rc)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		opts = append(opts, WithCache(redisCache))
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Cache.Type)
	}

	if cfg.Cache.TTL > 0 {
		opts = append(opts, WithCacheTTL(cfg.Cache.TTL))
	}
	if cfg.Timeouts.ProviderCall > 0 {
		opts = append(opts, WithCallTimeout(cfg.Timeouts.ProviderCall))
	}
	if cfg.Timeouts.FanoutBatch > 0 {
		opts = append(opts, WithBatchTimeout(cfg.Timeouts.FanoutBatch))
	}

	return opts, nil
}

func rulesFromConfig(routing map[string]config.RuleConfig) map[string]RoutingRule {
	rules := make(map[string]RoutingRule, len(routing))
	for requestType, rc := range routing {
		rules[requestType] = RoutingRule{
			Chain:               rc.Chain,
			Capability:          rc.Capability,
			Enrich:              rc.Enrich,
			EnrichmentProviders: rc.EnrichmentProviders,
			Operation:           rc.Operation,
		}
	}
	return rules
}
