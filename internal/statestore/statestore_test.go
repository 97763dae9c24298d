package statestore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/types"
)

// blobEstimator snapshots and restores an opaque payload.
type blobEstimator struct {
	id       string
	payload  []byte
	restored bool
}

func (b *blobEstimator) ID() string { return b.id }

func (b *blobEstimator) Estimate(_ context.Context, _ types.FeatureVector) (types.ConfidenceEstimate, error) {
	return types.ConfidenceEstimate{AlgorithmID: b.id}, nil
}

func (b *blobEstimator) Update(types.LearningOutcome) error { return nil }
func (b *blobEstimator) Snapshot() ([]byte, error)          { return b.payload, nil }

func (b *blobEstimator) Restore(data []byte) error {
	b.payload = append([]byte(nil), data...)
	b.restored = true
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	st, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	saved := []interfaces.Estimator{
		&blobEstimator{id: "linucb", payload: mustJSON(t, map[string]int{"pulls": 7})},
		&blobEstimator{id: "ucbv", payload: mustJSON(t, map[string]int{"total": 3})},
	}
	if err := st.Save(ctx, saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Reopen like a process restart.
	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st.Close()

	a := &blobEstimator{id: "linucb"}
	b := &blobEstimator{id: "ucbv"}
	if err := st.Load(ctx, []interfaces.Estimator{a, b}); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !a.restored || string(a.payload) != `{"pulls":7}` {
		t.Errorf("linucb state not restored, got %q", a.payload)
	}
	if !b.restored || string(b.payload) != `{"total":3}` {
		t.Errorf("ucbv state not restored, got %q", b.payload)
	}
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	st, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer st.Close()

	est := &blobEstimator{id: "linucb", payload: []byte(`{"v":1}`)}
	if err := st.Save(ctx, []interfaces.Estimator{est}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	est.payload = []byte(`{"v":2}`)
	if err := st.Save(ctx, []interfaces.Estimator{est}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	fresh := &blobEstimator{id: "linucb"}
	if err := st.Load(ctx, []interfaces.Estimator{fresh}); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(fresh.payload) != `{"v":2}` {
		t.Errorf("expected latest snapshot, got %q", fresh.payload)
	}
}

func TestLoadSkipsMissingSnapshots(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer st.Close()

	fresh := &blobEstimator{id: "neural"}
	if err := st.Load(context.Background(), []interfaces.Estimator{fresh}); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if fresh.restored {
		t.Error("estimator without a snapshot must keep fresh state")
	}
}
