// Package decisionlog appends every emitted ensemble decision to a daily
// JSONL audit file, including the per-algorithm breakdown the execution
// collaborator needs for audit.
package decisionlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bandit-trading-engine/internal/types"
)

var mu sync.Mutex

func logDir() string {
	if v := os.Getenv("BANDIT_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	return filepath.Join(logDir(), "decisions", t.UTC().Format("2006-01-02")+".jsonl")
}

// Append writes one decision record. Failures are the caller's to ignore:
// auditing never blocks the decision path.
func Append(dec *types.EnsembleDecision) error {
	mu.Lock()
	defer mu.Unlock()
	p := dailyFilepath(time.Now())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(dec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips decision files older than the given number of days.
func CompressOlder(days int) error {
	if days <= 0 {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	dir := filepath.Join(logDir(), "decisions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != ".jsonl" {
			continue
		}
		day, err := time.Parse("2006-01-02", name[:len(name)-len(".jsonl")])
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := gzipFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
