package queryplex

import (
	"log/slog"
	"time"

	"github.com/queryplex/queryplex/fallback"
	"github.com/queryplex/queryplex/pkg/cache"
	"github.com/queryplex/queryplex/pkg/pricing"
	"github.com/queryplex/queryplex/pkg/provider"
	"github.com/queryplex/queryplex/pkg/stats"
)

// RoutingRule configures routing for one request type.
type RoutingRule struct {
	// Chain pins the fallback chain regardless of metrics. Static rules
	// take precedence over metrics-driven ranking.
	Chain []string

	// Capability filters registry candidates when Chain is empty.
	// Defaults to the request type itself.
	Capability string

	// Enrich enables the fan-out essence extractor for this type.
	Enrich bool

	// EnrichmentProviders is the fan-out width K (default 2).
	EnrichmentProviders int

	// Operation overrides the provider-side operation name.
	Operation string
}

// providerInstance holds a pre-built provider with its catalog record.
type providerInstance struct {
	Info     provider.Info
	Provider provider.Provider
}

// ClientConfig holds all configuration for the queryplex client.
type ClientConfig struct {
	Providers         []provider.Config
	ProviderInstances []providerInstance

	Rules map[string]RoutingRule

	Stats   stats.Store
	Cache   cache.Cache
	Pricing *pricing.Calculator

	CacheTTL     time.Duration
	CallTimeout  time.Duration
	BatchTimeout time.Duration

	MaxTokens   int
	Temperature float64
	SelectOp    fallback.OperationSelector

	ReporterInterval time.Duration
	ReporterEnabled  bool

	Logger *slog.Logger
}

// Option is a function that configures the Client.
type Option func(*ClientConfig)

// defaultConfig returns sensible defaults.
func defaultConfig() *ClientConfig {
	return &ClientConfig{
		Rules:        make(map[string]RoutingRule),
		CacheTTL:     cache.DefaultTTL,
		CallTimeout:  fallback.DefaultCallTimeout,
		BatchTimeout: 45 * time.Second,
		MaxTokens:    1024,
		Temperature:  0.7,
		Logger:       slog.Default(),
	}
}

// WithProvider adds a provider created from configuration.
// The adapter is built based on the Type field (e.g. "httpjson").
func WithProvider(cfg provider.Config) Option {
	return func(c *ClientConfig) {
		c.Providers = append(c.Providers, cfg)
	}
}

// WithProviderInstance adds a pre-built provider with its catalog record.
// Use this for custom adapters or test doubles.
func WithProviderInstance(info provider.Info, prov provider.Provider) Option {
	return func(c *ClientConfig) {
		c.ProviderInstances = append(c.ProviderInstances, providerInstance{
			Info:     info,
			Provider: prov,
		})
	}
}

// WithRoutingRule sets the routing rule for a request type.
func WithRoutingRule(requestType string, rule RoutingRule) Option {
	return func(c *ClientConfig) {
		c.Rules[requestType] = rule
	}
}

// WithStatsStore sets the metrics store. Defaults to an in-memory store;
// pass a Redis-backed store for multi-instance deployments.
func WithStatsStore(store stats.Store) Option {
	return func(c *ClientConfig) {
		c.Stats = store
	}
}

// WithCache enables response caching with the given backend.
func WithCache(ca cache.Cache) Option {
	return func(c *ClientConfig) {
		c.Cache = ca
	}
}

// WithCacheTTL sets the TTL for stored cache entries.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *ClientConfig) {
		c.CacheTTL = ttl
	}
}

// WithPricing sets a custom pricing calculator.
func WithPricing(calc *pricing.Calculator) Option {
	return func(c *ClientConfig) {
		c.Pricing = calc
	}
}

// WithCallTimeout bounds each individual provider call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.CallTimeout = d
	}
}

// WithBatchTimeout bounds the whole fan-out batch.
func WithBatchTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.BatchTimeout = d
	}
}

// WithGeneration sets the generation parameters sent to providers.
func WithGeneration(maxTokens int, temperature float64) Option {
	return func(c *ClientConfig) {
		c.MaxTokens = maxTokens
		c.Temperature = temperature
	}
}

// WithOperationSelector maps request types to provider-side operations.
func WithOperationSelector(sel fallback.OperationSelector) Option {
	return func(c *ClientConfig) {
		c.SelectOp = sel
	}
}

// WithMetricsReporting enables the periodic metrics reporter.
func WithMetricsReporting(interval time.Duration) Option {
	return func(c *ClientConfig) {
		c.ReporterEnabled = true
		c.ReporterInterval = interval
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}
