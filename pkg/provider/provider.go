// Package provider defines the boundary toward remote text-generation
// services and the registry that catalogs them. Each provider adapter
// implements the Provider interface to handle wire communication.
package provider

import (
	"context"
	"time"
)

// GenerationRequest is the provider-side request shape. All operations take
// the same shape; Operation selects the remote method to invoke.
type GenerationRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Operation   string  `json:"operation,omitempty"`
}

// GenerationResult is the provider-side success shape.
type GenerationResult struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Provider is implemented by all generation service adapters.
// Invoke must honor ctx cancellation and return a typed failure from
// pkg/errors on any error.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Invoke sends a generation request and returns the result.
	Invoke(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

// Info is the registry-facing catalog record for a provider.
// It is immutable after registration.
type Info struct {
	Name            string   `json:"name"`
	Endpoint        string   `json:"endpoint"`
	DefaultModel    string   `json:"default_model"`
	InputCostPer1K  float64  `json:"input_cost_per_1k"`
	OutputCostPer1K float64  `json:"output_cost_per_1k"`
	Capabilities    []string `json:"capabilities"`

	// Priority ranks providers within a capability; lower value wins.
	Priority int `json:"priority"`
}

// HasCapability reports whether the provider declares the given tag.
func (i Info) HasCapability(tag string) bool {
	for _, c := range i.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// Config contains provider-specific construction configuration.
// APIKey is an opaque secret; it must never be logged.
type Config struct {
	Name            string
	Type            string
	Endpoint        string
	APIKey          string
	DefaultModel    string
	InputCostPer1K  float64
	OutputCostPer1K float64
	Capabilities    []string
	Priority        int
	Timeout         time.Duration

	// RatePerSecond enables client-side rate limiting when > 0.
	RatePerSecond float64
	RateBurst     int
}

// Factory creates provider instances from configuration.
type Factory func(cfg Config) (Provider, error)
