package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playtrack-dev/playtrack/internal/core/retry"
)

// fakeClient serves scripted listing pages and entry documents.
type fakeClient struct {
	pages      map[string]Page // keyed by cursor
	pageErrs   map[string]error
	entries    map[string][]byte
	entryErrs  map[string]error
	listCalls  int
	entryCalls int
}

func (f *fakeClient) ListKeys(_ context.Context, _ string, cursor string) (Page, error) {
	f.listCalls++
	if err, ok := f.pageErrs[cursor]; ok {
		return Page{}, err
	}
	return f.pages[cursor], nil
}

func (f *fakeClient) GetEntry(_ context.Context, key string) ([]byte, error) {
	f.entryCalls++
	if err, ok := f.entryErrs[key]; ok {
		return nil, err
	}
	body, ok := f.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return body, nil
}

func quickPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond}
}

func TestEnumerator_WalksAllPages(t *testing.T) {
	client := &fakeClient{
		pages: map[string]Page{
			"":   {Keys: []string{"alice-2024-05-01"}, NextCursor: "c1"},
			"c1": {Keys: []string{"alice-2024-05-01-2"}, NextCursor: "c2"},
			"c2": {Keys: []string{"alice-2024-05-01-3"}},
		},
	}
	enum := NewEnumerator(client, quickPolicy(), 0, clockwork.NewRealClock())

	keys, err := enum.List(context.Background(), "alice", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, "alice-2024-05-01", keys[0].Raw)
	assert.Equal(t, "alice-2024-05-01-2", keys[1].Raw)
	assert.Equal(t, "alice-2024-05-01-3", keys[2].Raw)
	assert.Equal(t, 3, client.listCalls)
}

func TestEnumerator_ReturnsPartialOnExhaustedRetries(t *testing.T) {
	client := &fakeClient{
		pages: map[string]Page{
			"": {Keys: []string{"alice-2024-05-01"}, NextCursor: "c1"},
		},
		pageErrs: map[string]error{
			"c1": errors.New("store unavailable"),
		},
	}
	enum := NewEnumerator(client, quickPolicy(), 0, clockwork.NewRealClock())

	keys, err := enum.List(context.Background(), "alice", "2024-05-01")
	require.Error(t, err)
	require.Len(t, keys, 1, "first page should survive the second page failing")
	assert.Equal(t, "alice-2024-05-01", keys[0].Raw)
	// First page once, failing page retried to the attempt budget.
	assert.Equal(t, 3, client.listCalls)
}

func TestEnumerator_SkipsForeignKeys(t *testing.T) {
	// A store prefix match can include a longer principal name; those keys
	// must not be attributed to the shorter one.
	client := &fakeClient{
		pages: map[string]Page{
			"": {Keys: []string{"al-2024-05-01", "al-2024-05-011"}},
		},
	}
	enum := NewEnumerator(client, quickPolicy(), 0, clockwork.NewRealClock())

	keys, err := enum.List(context.Background(), "al", "2024-05-01")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "al-2024-05-01", keys[0].Raw)
}
