package decisionlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bandit-trading-engine/internal/types"
)

func TestAppendWritesDailyJSONL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BANDIT_LOG_DIR", dir)

	decisions := []*types.EnsembleDecision{
		{ID: "one", AggregatedConfidence: 0.7},
		{ID: "two", AggregatedConfidence: 0.55, Abstained: []string{"neural"}},
	}
	for _, d := range decisions {
		if err := Append(d); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	p := filepath.Join(dir, "decisions", time.Now().UTC().Format("2006-01-02")+".jsonl")
	f, err := os.Open(p)
	if err != nil {
		t.Fatalf("expected daily file: %v", err)
	}
	defer f.Close()

	var got []types.EnsembleDecision
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var d types.EnsembleDecision
		if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
			t.Fatalf("malformed line: %v", err)
		}
		got = append(got, d)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "one" || got[1].ID != "two" {
		t.Errorf("records out of order: %v, %v", got[0].ID, got[1].ID)
	}
	if len(got[1].Abstained) != 1 {
		t.Error("abstention list must survive the round trip")
	}
}

func TestCompressOlderSkipsRecentFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BANDIT_LOG_DIR", dir)

	sub := filepath.Join(dir, "decisions")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	old := filepath.Join(sub, "2020-01-01.jsonl")
	recent := filepath.Join(sub, time.Now().UTC().Format("2006-01-02")+".jsonl")
	for _, p := range []string{old, recent} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := CompressOlder(7); err != nil {
		t.Fatalf("compress failed: %v", err)
	}

	if _, err := os.Stat(old + ".gz"); err != nil {
		t.Error("old file should be gzipped")
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old plaintext file should be removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("recent file must be left alone")
	}
}

func TestCompressOlderZeroRetentionIsNoop(t *testing.T) {
	if err := CompressOlder(0); err != nil {
		t.Fatalf("zero retention must be a no-op, got %v", err)
	}
}
