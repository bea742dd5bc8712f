// Package types defines the core request/response types shared by the
// queryplex gateway components: normalized requests, provider call results,
// extracted essences, and the final handle result returned to callers.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Request is a normalized query flowing through the gateway.
// It is created per incoming call and never mutated.
type Request struct {
	// Text is the raw query text.
	Text string `json:"text"`

	// Type is a free-form classification tag used for routing
	// (e.g. "code", "reasoning", "general").
	Type string `json:"type"`
}

// Fingerprint returns a stable content-addressed key for the request.
// Two requests whose text differs only in casing or whitespace map to the
// same fingerprint.
func (r Request) Fingerprint() string {
	return Fingerprint(r.Text, r.Type)
}

// Normalize canonicalizes query text: Unicode NFC, case folding, and
// whitespace collapsing.
func Normalize(text string) string {
	folded := cases.Fold().String(norm.NFC.String(text))
	return strings.Join(strings.Fields(folded), " ")
}

// Fingerprint computes the stable hash of normalized text plus request type.
// It is a pure function; cache correctness depends on this.
func Fingerprint(text, requestType string) string {
	h := sha256.New()
	h.Write([]byte(Normalize(text)))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(requestType)))
	return hex.EncodeToString(h.Sum(nil))
}

// ProviderCallResult is the outcome of a single provider invocation.
// It is consumed immediately by the stats store and the synthesis engine.
type ProviderCallResult struct {
	Provider     string        `json:"provider"`
	Success      bool          `json:"success"`
	Text         string        `json:"text,omitempty"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
	Cost         float64       `json:"cost"`
	Err          error         `json:"-"`
}

// Finding is a single tagged observation extracted from a provider response.
type Finding struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// Essence is a structured summary extracted from one successful provider
// response, used to enrich the base response during synthesis.
type Essence struct {
	Provider string    `json:"provider"`
	Findings []Finding `json:"findings"`

	// Quality is a heuristic score in [0,1].
	Quality float64 `json:"quality"`
}

// HandleResult is the caller-facing result of a handled request.
type HandleResult struct {
	Text               string        `json:"text"`
	TotalCost          float64       `json:"total_cost"`
	TotalLatency       time.Duration `json:"total_latency"`
	EssencesIntegrated int           `json:"essences_integrated"`
	CacheHit           bool          `json:"cache_hit"`
}
