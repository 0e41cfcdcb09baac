package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	tmp := t.TempDir()
	store, err := Open(filepath.Join(tmp, "objects.db"), filepath.Join(tmp, "objects.lock"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLookupFreshAndExpired(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set("sui:shared:0x1", []byte(`{"initial_shared_version":7}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := store.Lookup("sui:shared:0x1")
	if err != nil || !ok || string(value) != `{"initial_shared_version":7}` {
		t.Fatalf("expected fresh hit, got ok=%v value=%s err=%v", ok, value, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, err := store.Lookup("sui:shared:0x1"); err != nil || ok {
		t.Fatalf("expected expired miss, got ok=%v err=%v", ok, err)
	}
	entry, ok, err := store.Entry("sui:shared:0x1")
	if err != nil || !ok || !entry.Expired(now) {
		t.Fatalf("expected raw expired entry, got %+v ok=%v err=%v", entry, ok, err)
	}
}

func TestLookupMissingKey(t *testing.T) {
	store := openTestStore(t)
	if _, ok, err := store.Lookup("absent"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestSetRejectsEmptyKey(t *testing.T) {
	store := openTestStore(t)
	if err := store.Set("  ", []byte("x"), time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestPruneRemovesExpiredRows(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set("short", []byte("a"), time.Second); err != nil {
		t.Fatalf("Set short failed: %v", err)
	}
	if err := store.Set("long", []byte("b"), time.Hour); err != nil {
		t.Fatalf("Set long failed: %v", err)
	}
	now = now.Add(time.Minute)
	removed, err := store.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one pruned row, got %d", removed)
	}
	if _, ok, _ := store.Entry("long"); !ok {
		t.Fatal("expected unexpired row to survive prune")
	}
}

func TestDeleteByPrefix(t *testing.T) {
	store := openTestStore(t)
	for _, key := range []string{"sui:shared:0x1", "sui:shared:0x2", "creek:obligation:0xa"} {
		if err := store.Set(key, []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}
	removed, err := store.Delete("sui:shared:")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected two removed rows, got %d", removed)
	}
	if _, ok, _ := store.Lookup("creek:obligation:0xa"); !ok {
		t.Fatal("expected other prefixes untouched")
	}
}

func TestConcurrentSet(t *testing.T) {
	store := openTestStore(t)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Set(fmt.Sprintf("k%d", i), []byte("v"), time.Hour)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Set failed: %v", err)
		}
	}
}
