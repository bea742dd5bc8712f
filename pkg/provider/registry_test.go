package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qperrors "github.com/queryplex/queryplex/pkg/errors"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Invoke(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	return &GenerationResult{Text: "ok"}, nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Name: "alpha", Capabilities: []string{"code"}}, &stubProvider{name: "alpha"})

	p, info, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", p.Name())
	assert.Equal(t, "alpha", info.Name)
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Get("ghost")
	require.Error(t, err)

	var unknown *qperrors.UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Provider)
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Name: "alpha", Priority: 1, Capabilities: []string{"code"}}, &stubProvider{name: "alpha"})
	r.Register(Info{Name: "beta", Priority: 2, Capabilities: []string{"code"}}, &stubProvider{name: "beta"})
	r.Register(Info{Name: "alpha", Priority: 3, Capabilities: []string{"code"}}, &stubProvider{name: "alpha"})

	require.Equal(t, 2, r.Len())

	info, err := r.Info("alpha")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Priority)

	// Replacing must not change registration order.
	assert.Equal(t, []string{"alpha", "beta"}, r.List())
}

func TestListByCapabilityOrdering(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Name: "expensive", Priority: 10, Capabilities: []string{"code"}}, &stubProvider{name: "expensive"})
	r.Register(Info{Name: "cheap", Priority: 1, Capabilities: []string{"code"}}, &stubProvider{name: "cheap"})
	r.Register(Info{Name: "chat-only", Priority: 0, Capabilities: []string{"general"}}, &stubProvider{name: "chat-only"})

	infos := r.ListByCapability("code")
	require.Len(t, infos, 2)
	assert.Equal(t, "cheap", infos[0].Name)
	assert.Equal(t, "expensive", infos[1].Name)
}

func TestListByCapabilityTieBreak(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Name: "first", Priority: 5, Capabilities: []string{"code"}}, &stubProvider{name: "first"})
	r.Register(Info{Name: "second", Priority: 5, Capabilities: []string{"code"}}, &stubProvider{name: "second"})

	infos := r.ListByCapability("code")
	require.Len(t, infos, 2)

	// Equal priority falls back to registration order.
	assert.Equal(t, "first", infos[0].Name)
	assert.Equal(t, "second", infos[1].Name)
}

func TestHasCapability(t *testing.T) {
	info := Info{Capabilities: []string{"code", "reasoning"}}
	assert.True(t, info.HasCapability("code"))
	assert.False(t, info.HasCapability("vision"))
}
