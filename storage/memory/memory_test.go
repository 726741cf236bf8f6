package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStorage(t *testing.T) {
	s := New()
	defer s.Close()

	t.Run("SetAndGet", func(t *testing.T) {
		ctx := context.Background()
		data := []byte(`[{"id":1}]`)
		if err := s.Set(ctx, "users.json", data); err != nil {
			t.Fatalf("Failed to set data: %v", err)
		}
		// Mutating the caller's slice must not leak into the store.
		data[0] = '{'

		item, err := s.Get(ctx, "users.json")
		if err != nil {
			t.Fatalf("Failed to get data: %v", err)
		}
		if item == nil {
			t.Fatal("Expected item to exist, got nil")
		}
		if string(item.Data) != `[{"id":1}]` {
			t.Errorf("unexpected data %s", item.Data)
		}
		if item.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should not be zero")
		}
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		item, err := s.Get(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item != nil {
			t.Error("Expected nil for non-existent key, got item")
		}
	})

	t.Run("UpdateAbortsOnError", func(t *testing.T) {
		ctx := context.Background()
		_ = s.Set(ctx, "k", []byte("before"))
		boom := errors.New("boom")
		if err := s.Update(ctx, "k", func([]byte) ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		item, _ := s.Get(ctx, "k")
		if string(item.Data) != "before" {
			t.Fatalf("document changed after aborted update: %s", item.Data)
		}
	})
}

func TestMemoryStorage_ConcurrentUpdates(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, "counter", func(current []byte) ([]byte, error) {
				return append(current, 'x'), nil
			})
		}()
	}
	wg.Wait()

	item, err := s.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(item.Data) != n {
		t.Fatalf("expected %d updates, got %d", n, len(item.Data))
	}
}
