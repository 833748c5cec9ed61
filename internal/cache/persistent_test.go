package cache

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *PersistentStore {
	t.Helper()

	p, err := OpenPersistentStore(filepath.Join(t.TempDir(), "warm.db"))
	if err != nil {
		t.Fatalf("OpenPersistentStore: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPersistentStore_RoundTrip(t *testing.T) {
	p := openTestStore(t)

	want := Entry{Key: "model-response", Value: []byte("cached payload"), AccessCount: 7}
	if err := p.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := p.Get("model-response")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected stored entry to be present")
	}
	if got.Key != want.Key || string(got.Value) != string(want.Value) || got.AccessCount != want.AccessCount {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestPersistentStore_GetMissing(t *testing.T) {
	p := openTestStore(t)

	_, ok, err := p.Get("absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("missing key must report absent without error")
	}
}

func TestPersistentStore_PutReplaces(t *testing.T) {
	p := openTestStore(t)

	_ = p.Put(Entry{Key: "k", Value: []byte("old")})
	if err := p.Put(Entry{Key: "k", Value: []byte("new"), AccessCount: 3}); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	got, ok, _ := p.Get("k")
	if !ok || string(got.Value) != "new" || got.AccessCount != 3 {
		t.Errorf("replace did not take effect: %+v", got)
	}

	n, err := p.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 1 {
		t.Errorf("replace must not duplicate rows, count=%d", n)
	}
}

func TestPersistentStore_ExpiredEntriesHidden(t *testing.T) {
	p := openTestStore(t)

	_ = p.Put(Entry{Key: "gone", Value: []byte("v"), ExpiresAt: time.Now().Add(-time.Minute)})
	_ = p.Put(Entry{Key: "live", Value: []byte("v"), ExpiresAt: time.Now().Add(time.Hour)})

	if _, ok, _ := p.Get("gone"); ok {
		t.Error("expired entry must not be returned")
	}
	if _, ok, _ := p.Get("live"); !ok {
		t.Error("unexpired entry must be returned")
	}

	hot, err := p.HotEntries(10)
	if err != nil {
		t.Fatalf("HotEntries: %v", err)
	}
	for _, e := range hot {
		if e.Key == "gone" {
			t.Error("expired entry must be excluded from hot entries")
		}
	}
}

func TestPersistentStore_HotEntriesOrdering(t *testing.T) {
	p := openTestStore(t)

	for i, counts := range []int64{2, 9, 5, 9} {
		if err := p.Put(Entry{
			Key:         fmt.Sprintf("key-%d", i),
			Value:       []byte("v"),
			AccessCount: counts,
		}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	hot, err := p.HotEntries(3)
	if err != nil {
		t.Fatalf("HotEntries: %v", err)
	}
	if len(hot) != 3 {
		t.Fatalf("expected 3 hot entries, got %d", len(hot))
	}
	if hot[0].AccessCount != 9 || hot[1].AccessCount != 9 {
		t.Errorf("hot entries not ordered by access count: %d, %d", hot[0].AccessCount, hot[1].AccessCount)
	}
	if hot[2].AccessCount != 5 {
		t.Errorf("expected third hottest with count 5, got %d", hot[2].AccessCount)
	}
}

func TestPersistentStore_HotEntriesEmpty(t *testing.T) {
	p := openTestStore(t)

	if hot, err := p.HotEntries(5); err != nil || len(hot) != 0 {
		t.Errorf("empty store: hot=%v err=%v", hot, err)
	}
	if hot, err := p.HotEntries(0); err != nil || hot != nil {
		t.Errorf("n<=0 must return nothing: hot=%v err=%v", hot, err)
	}
}

func TestPersistentStore_PutAll(t *testing.T) {
	p := openTestStore(t)

	batch := []Entry{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
		{Key: "c", Value: []byte("3")},
	}
	if err := p.PutAll(batch); err != nil {
		t.Fatalf("PutAll: %v", err)
	}

	n, _ := p.Len()
	if n != 3 {
		t.Errorf("expected 3 entries after batch put, got %d", n)
	}
}

func TestPersistentStore_DeleteAndClear(t *testing.T) {
	p := openTestStore(t)

	_ = p.Put(Entry{Key: "a", Value: []byte("1")})
	_ = p.Put(Entry{Key: "b", Value: []byte("2")})

	if err := p.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := p.Delete("absent"); err != nil {
		t.Errorf("deleting an absent key must not fail: %v", err)
	}
	if _, ok, _ := p.Get("a"); ok {
		t.Error("deleted entry must be absent")
	}

	if err := p.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := p.Len(); n != 0 {
		t.Errorf("expected empty store after clear, got %d", n)
	}
}

func TestPersistentStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warm.db")

	p, err := OpenPersistentStore(path)
	if err != nil {
		t.Fatalf("OpenPersistentStore: %v", err)
	}
	_ = p.Put(Entry{Key: "k", Value: []byte("survives"), AccessCount: 4})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := OpenPersistentStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p2.Close()

	got, ok, err := p2.Get("k")
	if err != nil || !ok {
		t.Fatalf("entry lost across reopen: ok=%v err=%v", ok, err)
	}
	if string(got.Value) != "survives" {
		t.Errorf("value mismatch after reopen: %q", string(got.Value))
	}
}
