package ninjadb

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FilesystemBackend implements Backend using local filesystem
type FilesystemBackend struct {
	basePath string
	locks    *StripedLocks // Fine-grained locking per key
}

// NewFilesystemBackend creates a filesystem backend rooted at basePath,
// creating the directory if needed. Uses 32 lock stripes.
func NewFilesystemBackend(basePath string) (*FilesystemBackend, error) {
	return NewFilesystemBackendWithStripes(basePath, 32)
}

// NewFilesystemBackendWithStripes creates a filesystem backend with custom stripe count
func NewFilesystemBackendWithStripes(basePath string, stripes int) (*FilesystemBackend, error) {
	if err := os.MkdirAll(basePath, DefaultDirPermissions); err != nil {
		return nil, WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "DATA_PATH",
			"value":  basePath,
			"reason": err.Error(),
		})
	}
	return &FilesystemBackend{
		basePath: basePath,
		locks:    NewStripedLocks(stripes),
	}, nil
}

func (b *FilesystemBackend) getPath(key string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(key))
}

func (b *FilesystemBackend) Get(ctx context.Context, key string) ([]byte, error) {
	unlock := b.locks.RLock(key)
	defer unlock()
	return b.read(key)
}

func (b *FilesystemBackend) read(key string) ([]byte, error) {
	data, err := os.ReadFile(b.getPath(key))
	if err != nil {
		return nil, mapFSError(err)
	}
	return data, nil
}

func (b *FilesystemBackend) Put(ctx context.Context, key string, data []byte) error {
	unlock := b.locks.Lock(key)
	defer unlock()
	return b.write(key, data)
}

// write replaces the file atomically via rename so readers never see a partial document.
func (b *FilesystemBackend) write(key string, data []byte) error {
	path := b.getPath(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return mapFSError(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), DefaultFilePermissions); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	unlock := b.locks.Lock(key)
	defer unlock()

	if err := os.Remove(b.getPath(key)); err != nil {
		return mapFSError(err)
	}
	return nil
}

func (b *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.getPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *FilesystemBackend) GetWithETag(ctx context.Context, key string) ([]byte, string, error) {
	unlock := b.locks.RLock(key)
	defer unlock()

	data, err := b.read(key)
	if err != nil {
		return nil, "", err
	}
	return data, etagOf(data), nil
}

func (b *FilesystemBackend) PutIfMatch(ctx context.Context, key string, data []byte, expectedETag string) (string, error) {
	// Lock this specific key to ensure atomic check-and-write
	unlock := b.locks.Lock(key)
	defer unlock()

	current, err := b.read(key)
	if err != nil {
		return "", err
	}
	if currentETag := etagOf(current); currentETag != expectedETag {
		return "", WithContext(ErrConflict, map[string]interface{}{
			"key":      key,
			"expected": expectedETag,
			"actual":   currentETag,
		})
	}

	if err := b.write(key, data); err != nil {
		return "", err
	}
	return etagOf(data), nil
}

func (b *FilesystemBackend) PutIfAbsent(ctx context.Context, key string, data []byte) (string, error) {
	unlock := b.locks.Lock(key)
	defer unlock()

	if _, err := os.Stat(b.getPath(key)); err == nil {
		return "", WithContext(ErrConflict, map[string]interface{}{
			"key":    key,
			"reason": "already exists",
		})
	}

	if err := b.write(key, data); err != nil {
		return "", err
	}
	return etagOf(data), nil
}

// List returns keys under prefix in lexical order, skipping temp files.
func (b *FilesystemBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	searchPath := b.getPath(prefix)

	if _, err := os.Stat(searchPath); os.IsNotExist(err) {
		return keys, nil
	}

	err := filepath.WalkDir(searchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Base(path)[0] == '.' {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		relPath, err := filepath.Rel(b.basePath, path)
		if err != nil {
			return err
		}
		// Forward slashes for consistency with object stores
		keys = append(keys, filepath.ToSlash(relPath))
		return nil
	})

	sort.Strings(keys)
	return keys, err
}

func (b *FilesystemBackend) Ping(ctx context.Context) error {
	info, err := os.Stat(b.basePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("base path is not a directory: %s", b.basePath)
	}

	// Try to create a temp file to verify write access
	testFile := filepath.Join(b.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), DefaultFilePermissions); err != nil {
		return fmt.Errorf("cannot write to base path: %w", err)
	}
	os.Remove(testFile)

	return nil
}

func (b *FilesystemBackend) Close() error {
	return nil
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func mapFSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrUnauthorized
	}
	return err
}
