package ninjadb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// TestBackendCompliance runs the shared suite against the filesystem backend.
// Object-store backends run it from their integration tests.
func TestBackendCompliance(t *testing.T) {
	runBackendComplianceTests(t, context.Background(), newTestFilesystemBackend(t), "")
}

func runBackendComplianceTests(t *testing.T, ctx context.Context, backend Backend, prefix string) {
	t.Run("BasicCRUD", func(t *testing.T) {
		testBasicCRUD(t, ctx, backend, prefix)
	})
	t.Run("ETagOperations", func(t *testing.T) {
		testETagOperations(t, ctx, backend, prefix)
	})
	t.Run("PutIfAbsent", func(t *testing.T) {
		testPutIfAbsent(t, ctx, backend, prefix)
	})
	t.Run("ListOperations", func(t *testing.T) {
		testListOperations(t, ctx, backend, prefix)
	})
	t.Run("ErrorHandling", func(t *testing.T) {
		testErrorHandling(t, ctx, backend, prefix)
	})
	t.Run("HealthCheck", func(t *testing.T) {
		if err := backend.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func testBasicCRUD(t *testing.T, ctx context.Context, backend Backend, prefix string) {
	key := prefix + "test/basic.json"
	data := []byte(`{"name": "test", "value": 123}`)

	if err := backend.Put(ctx, key, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exists, err := backend.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Expected key to exist")
	}

	retrieved, err := backend.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved) != string(data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved, data)
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err = backend.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists after delete failed: %v", err)
	}
	if exists {
		t.Error("Expected key to not exist after delete")
	}
}

func testETagOperations(t *testing.T, ctx context.Context, backend Backend, prefix string) {
	key := prefix + "test/etag.json"
	defer backend.Delete(ctx, key)

	if err := backend.Put(ctx, key, []byte(`{"version": 1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, etag1, err := backend.GetWithETag(ctx, key)
	if err != nil {
		t.Fatalf("GetWithETag failed: %v", err)
	}
	if string(data) != `{"version": 1}` {
		t.Errorf("unexpected data %s", data)
	}
	if etag1 == "" {
		t.Fatal("Expected non-empty ETag")
	}

	etag2, err := backend.PutIfMatch(ctx, key, []byte(`{"version": 2}`), etag1)
	if err != nil {
		t.Fatalf("PutIfMatch with current ETag failed: %v", err)
	}
	if etag2 == "" || etag2 == etag1 {
		t.Errorf("Expected a new ETag, got %q (was %q)", etag2, etag1)
	}

	_, err = backend.PutIfMatch(ctx, key, []byte(`{"version": 3}`), etag1)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("PutIfMatch with stale ETag: got %v, want ErrConflict", err)
	}

	data, _ = backend.Get(ctx, key)
	if string(data) != `{"version": 2}` {
		t.Errorf("stale write must not land, got %s", data)
	}
}

func testPutIfAbsent(t *testing.T, ctx context.Context, backend Backend, prefix string) {
	key := prefix + "test/absent.json"
	defer backend.Delete(ctx, key)

	etag, err := backend.PutIfAbsent(ctx, key, []byte("1"))
	if err != nil {
		t.Fatalf("PutIfAbsent on a new key failed: %v", err)
	}
	if etag == "" {
		t.Error("Expected non-empty ETag")
	}

	if _, err := backend.PutIfAbsent(ctx, key, []byte("2")); !errors.Is(err, ErrConflict) {
		t.Errorf("PutIfAbsent on an existing key: got %v, want ErrConflict", err)
	}

	// Exactly one of several racing writers wins
	raceKey := prefix + "test/absent-race.json"
	defer backend.Delete(ctx, raceKey)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := backend.PutIfAbsent(ctx, raceKey, []byte(fmt.Sprint(i))); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func testListOperations(t *testing.T, ctx context.Context, backend Backend, prefix string) {
	listPrefix := prefix + "list/"
	keys := []string{
		listPrefix + "a.json",
		listPrefix + "b.json",
		listPrefix + "c.json",
	}
	for _, key := range keys {
		if err := backend.Put(ctx, key, []byte(`{}`)); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
		defer backend.Delete(ctx, key)
	}
	other := prefix + "other/z.json"
	if err := backend.Put(ctx, other, []byte(`{}`)); err != nil {
		t.Fatalf("Put %s failed: %v", other, err)
	}
	defer backend.Delete(ctx, other)

	listed, err := backend.List(ctx, listPrefix)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != len(keys) {
		t.Fatalf("List returned %d keys, want %d: %v", len(listed), len(keys), listed)
	}
	for i, key := range keys {
		if listed[i] != key {
			t.Errorf("listed[%d] = %s, want %s", i, listed[i], key)
		}
	}

	empty, err := backend.List(ctx, prefix+"nothing-here/")
	if err != nil {
		t.Fatalf("List of empty prefix failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no keys, got %v", empty)
	}
}

func testErrorHandling(t *testing.T, ctx context.Context, backend Backend, prefix string) {
	missing := prefix + "test/missing.json"

	if _, err := backend.Get(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
	if _, _, err := backend.GetWithETag(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetWithETag missing: got %v, want ErrNotFound", err)
	}
	if err := backend.Delete(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing: got %v, want ErrNotFound", err)
	}
}

func TestFilesystemBackendSkipsTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewFilesystemBackend(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := backend.Put(ctx, "User/1.json", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "User", ".tmp-123"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	keys, err := backend.List(ctx, "User/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "User/1.json" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestOpenBackendFilesystem(t *testing.T) {
	backend, err := OpenBackend(context.Background(), BackendConfig{
		Type:   BackendFilesystem,
		Bucket: filepath.Join(t.TempDir(), "nested", "data"),
	})
	if err != nil {
		t.Fatalf("OpenBackend failed: %v", err)
	}
	defer backend.Close()

	if err := backend.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestOpenBackendRejectsInvalidConfig(t *testing.T) {
	_, err := OpenBackend(context.Background(), BackendConfig{Type: BackendMinIO, Bucket: "docs"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}
