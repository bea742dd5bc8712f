// Package synthesis merges a base response with extracted essences into one
// output artifact. Merging is pure and deterministic: the same set of
// essences always produces byte-identical output, regardless of the order
// they arrived in.
package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/queryplex/queryplex/pkg/types"
)

// MaxFindingsPerCategory caps output size per finding category.
const MaxFindingsPerCategory = 10

// notesDelimiter separates the untouched base response from the appended
// synthesis notes.
const notesDelimiter = "\n\n---\nSynthesis notes"

// categoryOrder fixes the section order in the notes.
var categoryOrder = []string{"patterns", "principles", "optimizations", "quality_markers"}

// Merge combines the base response text with zero or more essences.
// The base text is never altered, only appended to. Returns the merged text
// and the number of findings integrated.
func Merge(baseText string, essences []types.Essence) (string, int) {
	if len(essences) == 0 {
		return baseText, 0
	}

	// Sort by provider for determinism before deduplication.
	sorted := make([]types.Essence, len(essences))
	copy(sorted, essences)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Provider < sorted[j].Provider
	})

	byCategory := make(map[string][]string)
	seen := make(map[string]bool)
	sources := make(map[string]bool)
	integrated := 0

	for _, e := range sorted {
		contributed := false
		for _, f := range e.Findings {
			key := f.Category + "/" + f.Name
			if seen[key] {
				continue
			}
			if len(byCategory[f.Category]) >= MaxFindingsPerCategory {
				continue
			}
			seen[key] = true
			byCategory[f.Category] = append(byCategory[f.Category], f.Name)
			integrated++
			contributed = true
		}
		if contributed {
			sources[e.Provider] = true
		}
	}

	if integrated == 0 {
		return baseText, 0
	}

	var b strings.Builder
	b.WriteString(baseText)
	b.WriteString(notesDelimiter)
	fmt.Fprintf(&b, " (%d findings from %d sources)\n", integrated, len(sources))

	for _, category := range categoryOrder {
		names := byCategory[category]
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(names, ", "))
	}

	// Categories outside the fixed order still render, alphabetically.
	var extra []string
	for category := range byCategory {
		if !contains(categoryOrder, category) {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)
	for _, category := range extra {
		names := byCategory[category]
		sort.Strings(names)
		fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(names, ", "))
	}

	return b.String(), integrated
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
