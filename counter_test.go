package ninjadb

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestFilesystemBackend(t *testing.T) *FilesystemBackend {
	t.Helper()
	backend, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)
	return backend
}

func TestBlobSequenceStartsAtOne(t *testing.T) {
	ctx := context.Background()
	seq := NewBlobSequence(newTestFilesystemBackend(t), DefaultRetryConfig(), nil, nil)

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, "User")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := seq.Next(ctx, "Message")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "collections have independent sequences")
}

func TestBlobSequenceConcurrent(t *testing.T) {
	ctx := context.Background()
	metrics := NewInMemoryMetrics()
	seq := NewBlobSequence(newTestFilesystemBackend(t), DefaultRetryConfig(), nil, metrics)

	const workers, perWorker = 8, 5
	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := seq.Next(ctx, "User")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, seen[id], "id %d issued twice", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for id := int64(1); id <= workers*perWorker; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}
	assert.Equal(t, workers*perWorker, metrics.Count(MetricSequenceNext))
}

func TestBlobSequenceCorruptValue(t *testing.T) {
	ctx := context.Background()
	backend := newTestFilesystemBackend(t)
	require.NoError(t, backend.Put(ctx, SequenceKey("User"), []byte("seven")))

	_, err := NewBlobSequence(backend, DefaultRetryConfig(), nil, nil).Next(ctx, "User")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestRedisSequence(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	seq := NewRedisSequence(client, "ninjadb:seq:", nil)

	require.NoError(t, seq.Ping(ctx))

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, "User")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	current, err := client.Get(ctx, "ninjadb:seq:User").Result()
	require.NoError(t, err)
	assert.Equal(t, "3", current)
}

func TestRedisSequenceNilClient(t *testing.T) {
	seq := NewRedisSequence(nil, "", nil)
	_, err := seq.Next(context.Background(), "User")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
