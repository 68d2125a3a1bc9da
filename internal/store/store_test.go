package store

import (
	"path/filepath"
	"testing"

	"monitor/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBaselineRoundTrip(t *testing.T) {
	st := openTestStore(t)
	key := BaselineKey{Kind: "session", WorkspaceID: "ws", SessionID: "s1"}
	baseline := types.ActivityBaseline{
		OpenedAt: 123456,
		Activity: types.ActivityCounters{MessageCount: 2, DiffCount: 1},
	}
	if err := st.PutBaseline(key, baseline); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok := st.Baseline(key)
	if !ok {
		t.Fatalf("expected baseline present")
	}
	if got != baseline {
		t.Fatalf("expected %+v, got %+v", baseline, got)
	}
}

func TestBaselineMissing(t *testing.T) {
	st := openTestStore(t)
	if _, ok := st.Baseline(BaselineKey{Kind: "session", WorkspaceID: "ws", SessionID: "nope"}); ok {
		t.Fatalf("missing key should read as absent")
	}
}

func TestBaselineZeroTimestampReadsAbsent(t *testing.T) {
	st := openTestStore(t)
	key := BaselineKey{Kind: "session", WorkspaceID: "ws", SessionID: "s1"}
	if err := st.PutBaseline(key, types.ActivityBaseline{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := st.Baseline(key); ok {
		t.Fatalf("baseline without a timestamp is malformed and should be absent")
	}
}

func TestBaselineKeysAreScoped(t *testing.T) {
	st := openTestStore(t)
	a := BaselineKey{Kind: "session", WorkspaceID: "ws1", SessionID: "s1"}
	b := BaselineKey{Kind: "session", WorkspaceID: "ws2", SessionID: "s1"}
	if err := st.PutBaseline(a, types.ActivityBaseline{OpenedAt: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := st.Baseline(b); ok {
		t.Fatalf("baselines must be scoped per workspace")
	}
}

func TestDeleteBaseline(t *testing.T) {
	st := openTestStore(t)
	key := BaselineKey{Kind: "session", WorkspaceID: "ws", SessionID: "s1"}
	if err := st.PutBaseline(key, types.ActivityBaseline{OpenedAt: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.DeleteBaseline(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := st.Baseline(key); ok {
		t.Fatalf("deleted baseline still readable")
	}
	// Deleting again is fine.
	if err := st.DeleteBaseline(key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLastActivityRoundTrip(t *testing.T) {
	st := openTestStore(t)
	if got := st.LastActivity("ws"); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	want := map[string]int64{"s1": 100, "s2": 200}
	if err := st.PutLastActivity("ws", want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got := st.LastActivity("ws")
	if len(got) != 2 || got["s1"] != 100 || got["s2"] != 200 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNilStoreDegrades(t *testing.T) {
	var st *Store
	if _, ok := st.Baseline(BaselineKey{}); ok {
		t.Fatalf("nil store should read absent")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if got := st.LastActivity("ws"); len(got) != 0 {
		t.Fatalf("nil store should read empty activity")
	}
}
