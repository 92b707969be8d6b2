package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playtrack-dev/playtrack/internal/core/session"
)

func TestFetcher_Get_CompletedRecord(t *testing.T) {
	client := &fakeClient{
		entries: map[string][]byte{
			"alice-2024-05-01": []byte(`{"joinTime":1714521600,"leaveTime":1714522500}`),
		},
	}
	fetcher := NewFetcher(client, quickPolicy())

	key := session.Key{Principal: "alice", DateKey: "2024-05-01", Raw: "alice-2024-05-01"}
	rec, err := fetcher.Get(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, "alice", rec.Principal)
	assert.Equal(t, "2024-05-01", rec.DateKey)
	assert.True(t, rec.Completed())
	minutes, ok := rec.DurationMinutes()
	require.True(t, ok)
	assert.Equal(t, int64(15), minutes)
}

func TestFetcher_Get_OpenRecord(t *testing.T) {
	client := &fakeClient{
		entries: map[string][]byte{
			"bob-2024-05-01": []byte(`{"joinTime":1714521600}`),
		},
	}
	fetcher := NewFetcher(client, quickPolicy())

	key := session.Key{Principal: "bob", DateKey: "2024-05-01", Raw: "bob-2024-05-01"}
	rec, err := fetcher.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, rec.Completed())
}

func TestFetcher_Get_NotFoundIsNotRetried(t *testing.T) {
	client := &fakeClient{}
	fetcher := NewFetcher(client, quickPolicy())

	key := session.Key{Principal: "alice", DateKey: "2024-05-01", Raw: "alice-2024-05-01"}
	_, err := fetcher.Get(context.Background(), key)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, client.entryCalls)
}

func TestFetcher_Get_TransientFailureRetriedThenSurfaced(t *testing.T) {
	transient := errors.New("connection reset")
	client := &fakeClient{
		entryErrs: map[string]error{"alice-2024-05-01": transient},
	}
	fetcher := NewFetcher(client, quickPolicy())

	key := session.Key{Principal: "alice", DateKey: "2024-05-01", Raw: "alice-2024-05-01"}
	_, err := fetcher.Get(context.Background(), key)
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 2, client.entryCalls)
}
