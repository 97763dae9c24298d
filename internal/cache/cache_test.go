package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(got) != "v" {
		t.Errorf("expected 'v', got %q", got)
	}

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Error("unexpected hit for missing key")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, "k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("entry should be live before its TTL")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("entry should expire after its TTL")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Put(ctx, "k", []byte("v"), 0)
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("deleted key should miss")
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	src := []byte("original")
	_ = m.Put(ctx, "k", src, 0)
	src[0] = 'X'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != "original" {
		t.Error("cache must not alias caller-owned buffers")
	}
}

func TestRedisPutGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr())
	defer r.Close()
	ctx := context.Background()

	if err := r.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	if err := r.Put(ctx, "decision:abc", []byte(`{"id":"abc"}`), time.Minute); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, ok, err := r.Get(ctx, "decision:abc")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(got) != `{"id":"abc"}` {
		t.Errorf("unexpected payload %q", got)
	}

	if err := r.Delete(ctx, "decision:abc"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := r.Get(ctx, "decision:abc"); ok {
		t.Error("deleted key should miss")
	}
}

func TestRedisMissIsNotAnError(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr())
	defer r.Close()

	_, ok, err := r.Get(context.Background(), "never-set")
	if err != nil {
		t.Fatalf("a miss must not error: %v", err)
	}
	if ok {
		t.Error("unexpected hit")
	}
}

func TestRedisTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr())
	defer r.Close()
	ctx := context.Background()

	if err := r.Put(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, ok, _ := r.Get(ctx, "k"); ok {
		t.Error("entry should expire after its TTL")
	}
}
