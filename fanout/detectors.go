package fanout

import (
	"strings"

	"github.com/queryplex/queryplex/pkg/types"
)

// Detector is one pattern probe applied to a provider response. Detectors
// are data, not control flow: adding one never touches the extractor.
type Detector struct {
	Name     string
	Category string
	Match    func(text string) bool
}

// Finding categories.
const (
	CategoryPattern      = "patterns"
	CategoryPrinciple    = "principles"
	CategoryOptimization = "optimizations"
	CategoryQuality      = "quality_markers"
)

// containsAny reports whether text contains any of the given substrings,
// case-insensitively.
func containsAny(terms ...string) func(string) bool {
	return func(text string) bool {
		lower := strings.ToLower(text)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return true
			}
		}
		return false
	}
}

// structuralDetectors apply to every request type.
var structuralDetectors = []Detector{
	{
		Name:     "code_fence",
		Category: CategoryQuality,
		Match: func(text string) bool {
			return strings.Contains(text, "```")
		},
	},
	{
		Name:     "headers",
		Category: CategoryQuality,
		Match: func(text string) bool {
			for _, line := range strings.Split(text, "\n") {
				if strings.HasPrefix(strings.TrimSpace(line), "#") {
					return true
				}
			}
			return false
		},
	},
	{
		Name:     "bullet_list",
		Category: CategoryQuality,
		Match: func(text string) bool {
			for _, line := range strings.Split(text, "\n") {
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
					return true
				}
			}
			return false
		},
	},
}

// typeDetectors maps request types to their vocabulary probes.
var typeDetectors = map[string][]Detector{
	"code": {
		{Name: "binary_search", Category: CategoryPattern, Match: containsAny("binary search")},
		{Name: "recursion", Category: CategoryPattern, Match: containsAny("recursion", "recursive")},
		{Name: "hash_map", Category: CategoryPattern, Match: containsAny("hash map", "hashmap", "dictionary")},
		{Name: "two_pointers", Category: CategoryPattern, Match: containsAny("two pointer", "two-pointer")},
		{Name: "dynamic_programming", Category: CategoryPattern, Match: containsAny("dynamic programming", "memoization")},
		{Name: "singleton", Category: CategoryPattern, Match: containsAny("singleton")},
		{Name: "factory_pattern", Category: CategoryPattern, Match: containsAny("factory pattern", "factory method")},
		{Name: "error_handling", Category: CategoryPrinciple, Match: containsAny("error handling", "exception", "edge case")},
		{Name: "immutability", Category: CategoryPrinciple, Match: containsAny("immutable", "immutability")},
		{Name: "separation_of_concerns", Category: CategoryPrinciple, Match: containsAny("separation of concerns", "single responsibility")},
		{Name: "complexity_analysis", Category: CategoryOptimization, Match: containsAny("o(log n)", "o(n log n)", "o(n)", "time complexity")},
		{Name: "early_exit", Category: CategoryOptimization, Match: containsAny("early return", "early exit", "short circuit")},
		{Name: "caching", Category: CategoryOptimization, Match: containsAny("cache", "memoize")},
	},
	"reasoning": {
		{Name: "step_by_step", Category: CategoryPrinciple, Match: containsAny("step by step", "first,", "second,", "finally")},
		{Name: "assumptions", Category: CategoryPrinciple, Match: containsAny("assume", "assumption", "given that")},
		{Name: "tradeoffs", Category: CategoryPrinciple, Match: containsAny("trade-off", "tradeoff", "on the other hand")},
		{Name: "counterexample", Category: CategoryPattern, Match: containsAny("counterexample", "counter-example", "however")},
		{Name: "conclusion", Category: CategoryQuality, Match: containsAny("in conclusion", "therefore", "thus")},
	},
	"general": {
		{Name: "examples", Category: CategoryQuality, Match: containsAny("for example", "e.g.", "such as")},
		{Name: "definitions", Category: CategoryQuality, Match: containsAny("is defined as", "refers to", "means that")},
		{Name: "caveats", Category: CategoryPrinciple, Match: containsAny("note that", "keep in mind", "be aware")},
	},
}

// DetectorsFor returns the detector table for a request type: the structural
// probes plus the type's vocabulary. Unknown types fall back to "general".
func DetectorsFor(requestType string) []Detector {
	typed, ok := typeDetectors[requestType]
	if !ok {
		typed = typeDetectors["general"]
	}

	out := make([]Detector, 0, len(structuralDetectors)+len(typed))
	out = append(out, structuralDetectors...)
	out = append(out, typed...)
	return out
}

// RegisterDetectors replaces the detector table for a request type.
// Intended for setup time, before the extractor handles traffic.
func RegisterDetectors(requestType string, detectors []Detector) {
	typeDetectors[requestType] = detectors
}

// extractEssence applies the detector table to one successful response.
// Quality is the fraction of detectors that matched, clamped to [0,1].
func extractEssence(providerName, text, requestType string) types.Essence {
	detectors := DetectorsFor(requestType)

	var findings []types.Finding
	for _, d := range detectors {
		if d.Match(text) {
			findings = append(findings, types.Finding{Category: d.Category, Name: d.Name})
		}
	}

	quality := 0.0
	if len(detectors) > 0 {
		quality = float64(len(findings)) / float64(len(detectors))
	}
	if quality > 1 {
		quality = 1
	}

	return types.Essence{
		Provider: providerName,
		Findings: findings,
		Quality:  quality,
	}
}
