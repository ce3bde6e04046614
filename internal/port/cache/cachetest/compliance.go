// Package cachetest provides a compliance suite for cache.Cache
// implementations.
package cachetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/ChatForge/internal/port/cache"
)

// Run runs the standard compliance test suite against c. settle is called
// after every write for caches that apply writes asynchronously; it may be nil.
func Run(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "idem:compliance", []byte(`{"status":201}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		settle()
		val, found, err := c.Get(ctx, "idem:compliance")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"status":201}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "idem:nonexistent")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "idem:delete", []byte("v"), time.Minute)
		settle()
		if err := c.Delete(ctx, "idem:delete"); err != nil {
			t.Fatal(err)
		}
		settle()
		_, found, err := c.Get(ctx, "idem:delete")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "idem:never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "idem:overwrite", []byte("v1"), time.Minute)
		settle()
		_ = c.Set(ctx, "idem:overwrite", []byte("v2"), time.Minute)
		settle()
		val, found, err := c.Get(ctx, "idem:overwrite")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})
}

// Mem is a map-backed cache for tests. It ignores TTLs.
type Mem struct {
	mu   sync.Mutex
	Data map[string][]byte
	Err  error // returned by every call when set
}

// NewMem returns an empty Mem.
func NewMem() *Mem {
	return &Mem{Data: make(map[string][]byte)}
}

// Get implements cache.Cache.
func (m *Mem) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	v, ok := m.Data[key]
	return v, ok, nil
}

// Set implements cache.Cache.
func (m *Mem) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Data[key] = value
	return nil
}

// Delete implements cache.Cache.
func (m *Mem) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.Data, key)
	return nil
}
