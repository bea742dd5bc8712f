// Package queryplex is a multi-provider AI query gateway. It routes each
// request to the best available provider based on observed performance,
// falls back through an ordered chain when providers fail, and optionally
// fans out to several providers at once to extract and merge complementary
// insights into a single enriched response.
//
// Basic usage:
//
//	client, err := queryplex.New(
//	    queryplex.WithProvider(queryplex.ProviderConfig{
//	        Name:         "free-llm",
//	        Type:         "httpjson",
//	        Endpoint:     "https://free.example.com/v1",
//	        Capabilities: []string{"code", "general"},
//	    }),
//	    queryplex.WithRoutingRule("code", queryplex.RoutingRule{
//	        Enrich:              true,
//	        EnrichmentProviders: 2,
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Handle(ctx, "implement binary search", "code")
package queryplex

import (
	"github.com/queryplex/queryplex/pkg/cache"
	"github.com/queryplex/queryplex/pkg/errors"
	"github.com/queryplex/queryplex/pkg/provider"
	"github.com/queryplex/queryplex/pkg/stats"
	"github.com/queryplex/queryplex/pkg/types"
)

// Core request and response types.
type (
	// Request is a normalized incoming query.
	Request = types.Request

	// HandleResult is the aggregate outcome of one handled request.
	HandleResult = types.HandleResult

	// Essence is the distilled insight extracted from one provider response.
	Essence = types.Essence

	// Finding is a single categorized insight inside an essence.
	Finding = types.Finding

	// ProviderCallResult is the outcome of one provider invocation.
	ProviderCallResult = types.ProviderCallResult
)

// Provider plumbing.
type (
	// Provider is the adapter interface all backends implement.
	Provider = provider.Provider

	// ProviderConfig declares one provider for the catalog.
	ProviderConfig = provider.Config

	// ProviderInfo is a provider's catalog record.
	ProviderInfo = provider.Info
)

// Storage backends.
type (
	// Cache is the response cache backend interface.
	Cache = cache.Cache

	// StatsStore persists per-provider performance metrics.
	StatsStore = stats.Store
)

// Error types callers are expected to inspect.
type (
	// GatewayError is the common error shape for provider failures.
	GatewayError = errors.GatewayError

	// AllProvidersExhaustedError is returned when every provider in a
	// fallback chain failed.
	AllProvidersExhaustedError = errors.AllProvidersExhaustedError

	// UnknownProviderError is returned when a chain names a provider that
	// is not registered.
	UnknownProviderError = errors.UnknownProviderError
)
