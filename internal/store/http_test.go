package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(HTTPClientOptions{
		BaseURL:        srv.URL,
		Datastore:      "PlaySessions",
		APIKey:         "test-key",
		PageLimit:      50,
		RequestTimeout: 2 * time.Second,
	})
}

func TestHTTPClient_ListKeys(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "/standard-datastores/datastore/entries", r.URL.Path)
		assert.Equal(t, "PlaySessions", r.URL.Query().Get("datastoreName"))
		assert.Equal(t, "alice-2024-05-01", r.URL.Query().Get("prefix"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		w.Write([]byte(`{"keys":[{"key":"alice-2024-05-01"},{"key":"alice-2024-05-01-2"}],"nextPageCursor":"abc"}`))
	})

	page, err := client.ListKeys(context.Background(), "alice-2024-05-01", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice-2024-05-01", "alice-2024-05-01-2"}, page.Keys)
	assert.Equal(t, "abc", page.NextCursor)
}

func TestHTTPClient_ListKeys_PassesCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		w.Write([]byte(`{"keys":[]}`))
	})

	page, err := client.ListKeys(context.Background(), "alice-2024-05-01", "abc")
	require.NoError(t, err)
	assert.Empty(t, page.Keys)
	assert.Empty(t, page.NextCursor)
}

func TestHTTPClient_GetEntry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/standard-datastores/datastore/entries/entry", r.URL.Path)
		assert.Equal(t, "alice-2024-05-01", r.URL.Query().Get("entryKey"))
		w.Write([]byte(`{"joinTime":100,"leaveTime":200}`))
	})

	body, err := client.GetEntry(context.Background(), "alice-2024-05-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{"joinTime":100,"leaveTime":200}`, string(body))
}

func TestHTTPClient_GetEntry_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetEntry(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPClient_GetEntry_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetEntry(context.Background(), "alice-2024-05-01")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
