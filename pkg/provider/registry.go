package provider

import (
	"sort"
	"sync"

	qperrors "github.com/queryplex/queryplex/pkg/errors"
)

// Registry is the catalog of callable providers. Writes are expected only at
// startup/configuration time; reads are safe under concurrent access from the
// router.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	order   []string // registration order, for deterministic tie-breaking
}

type registryEntry struct {
	info     Info
	provider Provider
	seq      int
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
	}
}

// Register adds or replaces a provider by identifier. Replacing keeps the
// original registration order so capability listings stay stable.
func (r *Registry) Register(info Info, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[info.Name]; ok {
		existing.info = info
		existing.provider = p
		return
	}

	r.entries[info.Name] = &registryEntry{
		info:     info,
		provider: p,
		seq:      len(r.order),
	}
	r.order = append(r.order, info.Name)
}

// Get returns the provider and its catalog record for the given identifier.
func (r *Registry) Get(name string) (Provider, Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, Info{}, &qperrors.UnknownProviderError{Provider: name}
	}
	return e.provider, e.info, nil
}

// Info returns the catalog record for the given identifier.
func (r *Registry) Info(name string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Info{}, &qperrors.UnknownProviderError{Provider: name}
	}
	return e.info, nil
}

// ListByCapability returns the infos of providers declaring the given tag,
// ordered by ascending priority rank, ties broken by registration order.
func (r *Registry) ListByCapability(tag string) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*registryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.info.HasCapability(tag) {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].info.Priority != matched[j].info.Priority {
			return matched[i].info.Priority < matched[j].info.Priority
		}
		return matched[i].seq < matched[j].seq
	})

	infos := make([]Info, 0, len(matched))
	for _, e := range matched {
		infos = append(infos, e.info)
	}
	return infos
}

// List returns the identifiers of all registered providers in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
