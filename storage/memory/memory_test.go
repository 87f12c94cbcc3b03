package memory

import (
	"context"
	"testing"
	"time"

	"github.com/taskm-dev/mcp-authd/storage"
)

func TestNew(t *testing.T) {
	s, err := New(100)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	if s == nil {
		t.Fatal("New() returned nil storage")
	}
}

func TestSetGet(t *testing.T) {
	s, err := New(100)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	key := "client:abc"
	data := []byte(`{"client_id":"abc"}`)

	if err := s.Set(ctx, key, data); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if item == nil {
		t.Fatal("Get() returned nil item")
	}
	if string(item.Data) != string(data) {
		t.Fatalf("Get() returned wrong data: got %s, want %s", string(item.Data), string(data))
	}
}

func TestTTL(t *testing.T) {
	s, err := New(100)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	key := "auth_code:ttl"
	data := []byte("ttl-data")
	ttl := 50 * time.Millisecond

	if err := s.Set(ctx, key, data, storage.WithTTL(ttl)); err != nil {
		t.Fatalf("Set() with TTL failed: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if item == nil {
		t.Fatal("Get() returned nil item before expiration")
	}
	if item.ExpiresAt == nil {
		t.Fatal("item should carry an expiry")
	}

	time.Sleep(ttl + 20*time.Millisecond)

	// Expired keys read back identically to never-written keys.
	item, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed after expiration: %v", err)
	}
	if item != nil {
		t.Fatal("Get() returned non-nil item after expiration")
	}
}

func TestDelete(t *testing.T) {
	s, err := New(100)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	key := "refresh_token:xyz"

	if err := s.Set(ctx, key, []byte("data")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() failed after deletion: %v", err)
	}
	if item != nil {
		t.Fatal("Data should not exist after deletion")
	}

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() of absent key failed: %v", err)
	}
}

func TestNotFound(t *testing.T) {
	s, err := New(100)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	item, err := s.Get(context.Background(), "non-existent-key")
	if err != nil {
		t.Fatalf("Get() should not return error for non-existent key: %v", err)
	}
	if item != nil {
		t.Fatal("Get() should return nil for non-existent key")
	}
}

func TestOverwrite(t *testing.T) {
	s, err := New(100)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	key := "access_token:tok"

	if err := s.Set(ctx, key, []byte("one"), storage.WithTTL(time.Hour)); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := s.Set(ctx, key, []byte("two")); err != nil {
		t.Fatalf("Set() overwrite failed: %v", err)
	}

	item, err := s.Get(ctx, key)
	if err != nil || item == nil {
		t.Fatalf("Get() after overwrite failed: item=%v err=%v", item, err)
	}
	if string(item.Data) != "two" {
		t.Fatalf("overwrite did not take: got %s", string(item.Data))
	}
	if item.ExpiresAt != nil {
		t.Fatal("overwrite without TTL should clear expiry")
	}
}

func TestCloseTwice(t *testing.T) {
	s, err := New(16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
