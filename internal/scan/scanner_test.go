package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playtrack-dev/playtrack/internal/core/session"
	"github.com/playtrack-dev/playtrack/internal/store"
)

type stubLister struct {
	keys []session.Key
	err  error
}

func (s *stubLister) List(_ context.Context, _, _ string) ([]session.Key, error) {
	return s.keys, s.err
}

type stubGetter struct {
	records map[string]session.Record
	errs    map[string]error
}

func (s *stubGetter) Get(_ context.Context, key session.Key) (session.Record, error) {
	if err, ok := s.errs[key.Raw]; ok {
		return session.Record{}, err
	}
	rec, ok := s.records[key.Raw]
	if !ok {
		return session.Record{}, store.ErrNotFound
	}
	return rec, nil
}

func key(raw string) session.Key {
	return session.Key{Principal: "alice", DateKey: "2024-05-01", Raw: raw}
}

func TestScanner_FiltersToCompletedSessions(t *testing.T) {
	lister := &stubLister{keys: []session.Key{
		key("alice-2024-05-01"),
		key("alice-2024-05-01-2"),
		key("alice-2024-05-01-3"),
		key("alice-2024-05-01-4"),
	}}
	getter := &stubGetter{records: map[string]session.Record{
		"alice-2024-05-01":   {Principal: "alice", DateKey: "2024-05-01", JoinTime: 100, LeaveTime: 1000},
		"alice-2024-05-01-2": {Principal: "alice", DateKey: "2024-05-01", JoinTime: 2000}, // still open
		"alice-2024-05-01-3": {Principal: "alice", DateKey: "2024-05-01", JoinTime: 3000, LeaveTime: 2500}, // clock skew
		"alice-2024-05-01-4": {Principal: "alice", DateKey: "2024-05-01", JoinTime: 4000, LeaveTime: 9000},
	}}

	scanner := NewScanner(lister, getter)
	results, complete := scanner.Scan(context.Background(), "alice", "2024-05-01")

	assert.True(t, complete)
	require.Len(t, results, 2)
	// Enumeration order is preserved, never re-sorted.
	assert.Equal(t, "alice-2024-05-01", results[0].Key.Raw)
	assert.Equal(t, "alice-2024-05-01-4", results[1].Key.Raw)
}

func TestScanner_AbsentRecordIsNotDegraded(t *testing.T) {
	lister := &stubLister{keys: []session.Key{key("alice-2024-05-01")}}
	getter := &stubGetter{} // every fetch reports not found

	scanner := NewScanner(lister, getter)
	results, complete := scanner.Scan(context.Background(), "alice", "2024-05-01")

	assert.True(t, complete)
	assert.Empty(t, results)
}

func TestScanner_TransportFailureDegradesButKeepsRest(t *testing.T) {
	lister := &stubLister{keys: []session.Key{
		key("alice-2024-05-01"),
		key("alice-2024-05-01-2"),
	}}
	getter := &stubGetter{
		records: map[string]session.Record{
			"alice-2024-05-01-2": {Principal: "alice", DateKey: "2024-05-01", JoinTime: 100, LeaveTime: 1000},
		},
		errs: map[string]error{
			"alice-2024-05-01": errors.New("store unreachable"),
		},
	}

	scanner := NewScanner(lister, getter)
	results, complete := scanner.Scan(context.Background(), "alice", "2024-05-01")

	assert.False(t, complete)
	require.Len(t, results, 1)
	assert.Equal(t, "alice-2024-05-01-2", results[0].Key.Raw)
}

func TestScanner_PartialListingDegrades(t *testing.T) {
	lister := &stubLister{
		keys: []session.Key{key("alice-2024-05-01")},
		err:  errors.New("listing degraded"),
	}
	getter := &stubGetter{records: map[string]session.Record{
		"alice-2024-05-01": {Principal: "alice", DateKey: "2024-05-01", JoinTime: 100, LeaveTime: 1000},
	}}

	scanner := NewScanner(lister, getter)
	results, complete := scanner.Scan(context.Background(), "alice", "2024-05-01")

	assert.False(t, complete)
	require.Len(t, results, 1, "partial listing results are still usable")
}
