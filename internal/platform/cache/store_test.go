package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStore_SetGetRespectsTTL(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "k", []byte("v1"), time.Minute)
	got, ok := store.Get(context.Background(), "k")
	if !ok || string(got) != "v1" {
		t.Fatalf("unexpected get result got=%q ok=%v", got, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected entry to expire at ttl boundary")
	}
	if store.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", store.Len())
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	value := []byte("feed")
	store.Set(context.Background(), "k", value, 0)
	value[0] = 'X'

	got, _ := store.Get(context.Background(), "k")
	got[1] = 'Y'
	again, _ := store.Get(context.Background(), "k")
	if string(again) != "feed" {
		t.Fatalf("store value mutated: %q", again)
	}
}

func TestStore_EvictsWhenFull(t *testing.T) {
	t.Parallel()

	store := NewStore(2)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "short", []byte("a"), time.Minute)
	store.Set(context.Background(), "long", []byte("b"), time.Hour)
	store.Set(context.Background(), "new", []byte("c"), time.Hour)

	if store.Len() != 2 {
		t.Fatalf("len got=%d want=2", store.Len())
	}
	if _, ok := store.Get(context.Background(), "short"); ok {
		t.Fatalf("expected soonest-expiring entry to be evicted")
	}
	if _, ok := store.Get(context.Background(), "long"); !ok {
		t.Fatalf("expected long entry to survive")
	}

	// Overwriting an existing key never evicts.
	store.Set(context.Background(), "long", []byte("b2"), time.Hour)
	if store.Len() != 2 {
		t.Fatalf("len after overwrite got=%d want=2", store.Len())
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewStore(8)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%12))
			store.Set(context.Background(), key, []byte(key), time.Minute)
			store.Get(context.Background(), key)
		}(i)
	}
	wg.Wait()

	if store.Len() > 8 {
		t.Fatalf("store exceeded bound: %d", store.Len())
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	store.Set(ctx, "short", []byte("1"), time.Minute)
	store.Set(ctx, "long", []byte("2"), time.Hour)
	store.Set(ctx, "forever", []byte("3"), 0)

	now = now.Add(2 * time.Minute)
	if got := store.PurgeExpired(); got != 1 {
		t.Fatalf("unexpected purge count: got=%d want=1", got)
	}
	if store.Len() != 2 {
		t.Fatalf("unexpected remaining entries: got=%d want=2", store.Len())
	}
}
