package queryplex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/queryplex/queryplex/fallback"
	"github.com/queryplex/queryplex/fanout"
	"github.com/queryplex/queryplex/internal/metrics"
	"github.com/queryplex/queryplex/pkg/cache"
	"github.com/queryplex/queryplex/pkg/pricing"
	"github.com/queryplex/queryplex/pkg/provider"
	"github.com/queryplex/queryplex/pkg/stats"
	"github.com/queryplex/queryplex/pkg/types"
	"github.com/queryplex/queryplex/providers"
	"github.com/queryplex/queryplex/synthesis"
)

// defaultEnrichmentProviders is the fan-out width when a rule does not set one.
const defaultEnrichmentProviders = 2

// Client is the main entry point for the queryplex library. It routes
// requests across providers, falls back on failure, fans out enrichment
// calls, caches essences, and keeps per-provider performance metrics.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	registry  *provider.Registry
	stats     stats.Store
	cache     cache.Cache
	executor  *fallback.Executor
	extractor *fanout.Extractor
	reporter  *metrics.Reporter
	tracer    trace.Tracer
	config    *ClientConfig

	rulesMu sync.RWMutex
	rules   map[string]RoutingRule
}

// New creates a queryplex client with the given options.
//
// Example:
//
//	client, err := queryplex.New(
//	    queryplex.WithProvider(queryplex.ProviderConfig{
//	        Name:         "free-llm",
//	        Type:         "httpjson",
//	        Endpoint:     "https://free.example.com/v1",
//	        Capabilities: []string{"code", "general"},
//	    }),
//	    queryplex.WithCache(caches.NewMemoryDefault()),
//	)
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Stats == nil {
		cfg.Stats = stats.NewMemoryStore()
	}
	if cfg.Pricing == nil {
		cfg.Pricing = pricing.NewCalculator(nil)
	}

	c := &Client{
		registry: provider.NewRegistry(),
		stats:    cfg.Stats,
		cache:    cfg.Cache,
		tracer:   otel.Tracer("github.com/queryplex/queryplex"),
		config:   cfg,
		rules:    make(map[string]RoutingRule, len(cfg.Rules)),
	}
	for k, v := range cfg.Rules {
		c.rules[k] = v
	}

	for _, pcfg := range cfg.Providers {
		prov, err := providers.Create(pcfg)
		if err != nil {
			return nil, fmt.Errorf("create provider %s: %w", pcfg.Name, err)
		}
		c.registry.Register(infoFromConfig(pcfg), prov)
	}
	for _, inst := range cfg.ProviderInstances {
		c.registry.Register(inst.Info, inst.Provider)
	}

	c.executor = fallback.NewExecutor(fallback.Config{
		Registry:    c.registry,
		Stats:       c.stats,
		Pricing:     cfg.Pricing,
		Logger:      cfg.Logger,
		CallTimeout: cfg.CallTimeout,
		SelectOp:    c.selectOperation,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	c.extractor = fanout.NewExtractor(fanout.Config{
		Executor:     c.executor,
		Logger:       cfg.Logger,
		BatchTimeout: cfg.BatchTimeout,
	})

	if cfg.ReporterEnabled && c.cache != nil {
		c.reporter = metrics.NewReporter(cfg.ReporterInterval, cfg.Logger, c.cache)
		c.reporter.Start(context.Background())
	}

	cfg.Logger.Info("queryplex client initialized",
		"providers", c.registry.Len(),
		"rules", len(c.rules),
		"cache_enabled", c.cache != nil,
	)

	return c, nil
}

// Handle processes one request end to end: cache lookup, chain selection,
// fallback execution, optional fan-out enrichment, synthesis, and cache
// store. The only terminal failure is exhaustion of the fallback chain;
// everything else degrades gracefully.
func (c *Client) Handle(ctx context.Context, text, requestType string) (*types.HandleResult, error) {
	if text == "" {
		return nil, fmt.Errorf("request text is required")
	}
	if requestType == "" {
		requestType = "general"
	}

	req := types.Request{Text: text, Type: requestType}
	fp := req.Fingerprint()
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "queryplex.handle", trace.WithAttributes(
		attribute.String("request.type", requestType),
		attribute.String("request.id", requestID),
	))
	defer span.End()

	rule := c.ruleFor(requestType)

	// Cache lookup. A hit reuses the cached essences; the base response is
	// still refreshed with a cheap fallback call.
	var cached *cache.Entry
	if c.cache != nil && rule.Enrich {
		entry, err := cache.GetEntry(ctx, c.cache, fp)
		if err != nil {
			c.config.Logger.Warn("cache lookup failed", "request_id", requestID, "error", err)
		}
		cached = entry
		if cached != nil {
			metrics.CacheHits.Inc()
		} else {
			metrics.CacheMisses.Inc()
		}
	}
	cacheHit := cached != nil
	span.SetAttributes(attribute.Bool("cache.hit", cacheHit))

	chain, err := c.buildChain(ctx, requestType, rule)
	if err != nil {
		metrics.RequestsHandled.WithLabelValues(requestType, "error").Inc()
		return nil, err
	}

	// The fallback branch and the fan-out branch are independent and run
	// concurrently, joined before synthesis.
	type baseOutcome struct {
		result  *types.ProviderCallResult
		err     error
		elapsed time.Duration
	}
	type enrichOutcome struct {
		essences []types.Essence
		cost     float64
		elapsed  time.Duration
	}

	baseCh := make(chan baseOutcome, 1)
	go func() {
		branchCtx, branchSpan := c.tracer.Start(ctx, "queryplex.fallback")
		defer branchSpan.End()

		start := time.Now()
		result, err := c.executor.Execute(branchCtx, req, chain)
		baseCh <- baseOutcome{result: result, err: err, elapsed: time.Since(start)}
	}()

	enrichCh := make(chan enrichOutcome, 1)
	runEnrich := rule.Enrich && !cacheHit
	if runEnrich {
		go func() {
			branchCtx, branchSpan := c.tracer.Start(ctx, "queryplex.fanout")
			defer branchSpan.End()

			start := time.Now()
			essences, cost, _ := c.extractor.Extract(branchCtx, req, c.enrichmentProviders(rule))
			enrichCh <- enrichOutcome{essences: essences, cost: cost, elapsed: time.Since(start)}
		}()
	} else {
		enrichCh <- enrichOutcome{}
	}

	base := <-baseCh
	enrich := <-enrichCh

	if base.err != nil {
		metrics.RequestsHandled.WithLabelValues(requestType, "error").Inc()
		c.config.Logger.Error("request failed, fallback chain exhausted",
			"request_id", requestID,
			"request_type", requestType,
			"error", base.err,
		)
		return nil, base.err
	}

	essences := enrich.essences
	if cacheHit {
		essences = cached.Essences
	}

	merged, integrated := synthesis.Merge(base.result.Text, essences)

	if c.cache != nil && rule.Enrich && !cacheHit {
		entry := &cache.Entry{
			Essences:  essences,
			Cost:      enrich.cost,
			CreatedAt: time.Now(),
			TTL:       c.config.CacheTTL,
		}
		if err := cache.PutEntry(ctx, c.cache, fp, entry); err != nil {
			c.config.Logger.Warn("cache store failed", "request_id", requestID, "error", err)
		}
	}

	// Aggregate latency: max across the concurrent branches.
	totalLatency := base.elapsed
	if enrich.elapsed > totalLatency {
		totalLatency = enrich.elapsed
	}

	metrics.RequestsHandled.WithLabelValues(requestType, "ok").Inc()
	c.config.Logger.Debug("request handled",
		"request_id", requestID,
		"request_type", requestType,
		"provider", base.result.Provider,
		"cache_hit", cacheHit,
		"essences", len(essences),
	)

	return &types.HandleResult{
		Text:               merged,
		TotalCost:          base.result.Cost + enrich.cost,
		TotalLatency:       totalLatency,
		EssencesIntegrated: integrated,
		CacheHit:           cacheHit,
	}, nil
}

// SetRules atomically replaces the routing rule set (hot reload).
func (c *Client) SetRules(rules map[string]RoutingRule) {
	next := make(map[string]RoutingRule, len(rules))
	for k, v := range rules {
		next[k] = v
	}

	c.rulesMu.Lock()
	c.rules = next
	c.rulesMu.Unlock()
}

// Registry exposes the provider catalog.
func (c *Client) Registry() *provider.Registry {
	return c.registry
}

// Stats exposes the metrics store.
func (c *Client) Stats() stats.Store {
	return c.stats
}

// Close releases all resources held by the client.
func (c *Client) Close() error {
	if c.reporter != nil {
		c.reporter.Stop()
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			return err
		}
	}
	return c.stats.Close()
}

// ruleFor returns the routing rule for a request type, or a default rule
// using the request type as the capability filter.
func (c *Client) ruleFor(requestType string) RoutingRule {
	c.rulesMu.RLock()
	rule, ok := c.rules[requestType]
	c.rulesMu.RUnlock()

	if !ok {
		return RoutingRule{Capability: requestType}
	}
	if rule.Capability == "" {
		rule.Capability = requestType
	}
	return rule
}

// buildChain selects the ordered fallback chain for a request type.
// A pinned static chain takes precedence; otherwise metrics pick the chain's
// head and the remaining candidates keep registry priority order.
func (c *Client) buildChain(ctx context.Context, requestType string, rule RoutingRule) ([]string, error) {
	if len(rule.Chain) > 0 {
		return rule.Chain, nil
	}

	infos := c.registry.ListByCapability(rule.Capability)
	if len(infos) == 0 {
		return nil, fmt.Errorf("no providers with capability %q", rule.Capability)
	}

	candidates := make([]string, 0, len(infos))
	for _, info := range infos {
		candidates = append(candidates, info.Name)
	}

	head, err := c.stats.BestProvider(ctx, candidates, requestType)
	if err != nil {
		return nil, err
	}

	chain := make([]string, 0, len(candidates))
	chain = append(chain, head)
	for _, name := range candidates {
		if name != head {
			chain = append(chain, name)
		}
	}
	return chain, nil
}

// enrichmentProviders returns the K fan-out providers for a rule, drawn from
// the registry by capability in priority order.
func (c *Client) enrichmentProviders(rule RoutingRule) []string {
	k := rule.EnrichmentProviders
	if k <= 0 {
		k = defaultEnrichmentProviders
	}

	infos := c.registry.ListByCapability(rule.Capability)
	names := make([]string, 0, k)
	for _, info := range infos {
		names = append(names, info.Name)
		if len(names) == k {
			break
		}
	}
	return names
}

// selectOperation resolves the provider-side operation for a request type,
// preferring a rule override, then the configured selector.
func (c *Client) selectOperation(requestType string) string {
	c.rulesMu.RLock()
	rule, ok := c.rules[requestType]
	c.rulesMu.RUnlock()

	if ok && rule.Operation != "" {
		return rule.Operation
	}
	if c.config.SelectOp != nil {
		return c.config.SelectOp(requestType)
	}
	return fallback.DefaultOperation(requestType)
}

func infoFromConfig(cfg provider.Config) provider.Info {
	return provider.Info{
		Name:            cfg.Name,
		Endpoint:        cfg.Endpoint,
		DefaultModel:    cfg.DefaultModel,
		InputCostPer1K:  cfg.InputCostPer1K,
		OutputCostPer1K: cfg.OutputCostPer1K,
		Capabilities:    cfg.Capabilities,
		Priority:        cfg.Priority,
	}
}
