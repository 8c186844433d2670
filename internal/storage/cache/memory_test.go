package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_Set_Get_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "v1" {
		t.Errorf("Get: got %q", v)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after Delete: got %v, want ErrMiss", err)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Errorf("Delete missing should not error: %v", err)
	}
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "title", "Zelda", time.Minute)
	if v, err := s.Get(ctx, "title"); err != nil || v != "Zelda" {
		t.Fatalf("before expiry: v=%q err=%v", v, err)
	}
	now = now.Add(time.Minute)
	if _, err := s.Get(ctx, "title"); !errors.Is(err, ErrMiss) {
		t.Errorf("after expiry: got %v, want ErrMiss", err)
	}
	if s.Len() != 0 {
		t.Errorf("expired item should be evicted on read, len=%d", s.Len())
	}
}
