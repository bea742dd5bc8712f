package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryplex/queryplex/pkg/types"
)

// fakeCache is a minimal map-backed backend for contract tests.
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }
func (f *fakeCache) Stats() Stats                   { return Stats{} }

func testEntry(ttl time.Duration) *Entry {
	return &Entry{
		Essences: []types.Essence{
			{Provider: "openai", Findings: []types.Finding{{Category: "patterns", Name: "binary_search"}}},
		},
		Cost:      0.004,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}
}

func TestEntryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newFakeCache()

	entry := testEntry(time.Hour)
	require.NoError(t, PutEntry(ctx, c, "fp", entry))

	got, err := GetEntry(ctx, c, "fp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Essences, got.Essences)
	assert.InDelta(t, entry.Cost, got.Cost, 1e-9)
}

func TestGetEntryMiss(t *testing.T) {
	got, err := GetEntry(context.Background(), newFakeCache(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetEntryCorruptedIsMiss(t *testing.T) {
	ctx := context.Background()
	c := newFakeCache()
	c.data["fp"] = []byte("{not json")

	got, err := GetEntry(ctx, c, "fp")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetEntryExpiredIsMiss(t *testing.T) {
	ctx := context.Background()
	c := newFakeCache()

	entry := testEntry(time.Minute)
	entry.CreatedAt = time.Now().Add(-2 * time.Minute)
	require.NoError(t, PutEntry(ctx, c, "fp", entry))

	got, err := GetEntry(ctx, c, "fp")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeEntryCorruption(t *testing.T) {
	_, err := DecodeEntry("fp", []byte("garbage"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "corrupted cache entry fp")
}

func TestEntryExpired(t *testing.T) {
	now := time.Now()

	fresh := &Entry{CreatedAt: now, TTL: time.Hour}
	assert.False(t, fresh.Expired(now.Add(30*time.Minute)))
	assert.True(t, fresh.Expired(now.Add(2*time.Hour)))

	// Zero TTL never expires; backends enforce their own default.
	forever := &Entry{CreatedAt: now}
	assert.False(t, forever.Expired(now.Add(1000*time.Hour)))
}
