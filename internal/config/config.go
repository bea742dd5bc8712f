// Package config handles YAML configuration loading and hot-reload for the
// gateway: the provider catalog, per-request-type routing rules, and cache
// settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Providers []ProviderConfig      `yaml:"providers"`
	Routing   map[string]RuleConfig `yaml:"routing"` // request type -> rule
	Cache     CacheConfig           `yaml:"cache"`
	Timeouts  TimeoutConfig         `yaml:"timeouts"`
}

// ProviderConfig declares one provider catalog entry.
type ProviderConfig struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	Endpoint        string   `yaml:"endpoint"`
	APIKey          string   `yaml:"api_key"`
	DefaultModel    string   `yaml:"default_model"`
	InputCostPer1K  float64  `yaml:"input_cost_per_1k"`
	OutputCostPer1K float64  `yaml:"output_cost_per_1k"`
	Capabilities    []string `yaml:"capabilities"`
	Priority        int      `yaml:"priority"`
	RatePerSecond   float64  `yaml:"rate_per_second"`
	RateBurst       int      `yaml:"rate_burst"`
}

// RuleConfig is a per-request-type routing rule. A non-empty Chain pins the
// fallback chain regardless of metrics (compliance/cost control); otherwise
// the chain is derived from Capability and metrics ranking.
type RuleConfig struct {
	Chain               []string `yaml:"chain"`
	Capability          string   `yaml:"capability"`
	Enrich              bool     `yaml:"enrich"`
	EnrichmentProviders int      `yaml:"enrichment_providers"`
	Operation           string   `yaml:"operation"`
}

// CacheConfig selects and tunes the response cache backend.
type CacheConfig struct {
	Type      string        `yaml:"type"` // memory | redis
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redis_addr"`
	Namespace string        `yaml:"namespace"`
}

// TimeoutConfig bounds provider calls.
type TimeoutConfig struct {
	ProviderCall time.Duration `yaml:"provider_call"`
	FanoutBatch  time.Duration `yaml:"fanout_batch"`
}

// LoadFromFile reads and validates a YAML configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider with empty name")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate provider name: %s", p.Name)
		}
		names[p.Name] = true
	}

	for requestType, rule := range c.Routing {
		for _, pinned := range rule.Chain {
			if !names[pinned] {
				return fmt.Errorf("routing rule %q pins unknown provider %q", requestType, pinned)
			}
		}
		if len(rule.Chain) == 0 && rule.Capability == "" {
			return fmt.Errorf("routing rule %q needs a chain or a capability", requestType)
		}
	}

	return nil
}
