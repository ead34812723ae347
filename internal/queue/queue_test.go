package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/forge/internal/queue"
)

func TestFIFOOrder(t *testing.T) {
	q := queue.New[int]()
	for i := 1; i <= 5; i++ {
		q.Push(i)
	}
	assert.Equal(t, 5, q.Len())

	for want := 1; want <= 5; want++ {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestPopTimesOut(t *testing.T) {
	q := queue.New[string]()

	start := time.Now()
	_, err := q.Pop(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrEmpty)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPopZeroWait(t *testing.T) {
	q := queue.New[string]()
	_, err := q.Pop(context.Background(), 0)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestPopWakesOnPush(t *testing.T) {
	q := queue.New[string]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push("hello")
	}()

	got, err := q.Pop(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestPopWakesOnCancel(t *testing.T) {
	q := queue.New[string]()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := q.Pop(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPopCancelledContextSkipsItems(t *testing.T) {
	q := queue.New[int]()
	q.Push(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, q.Len(), "item must stay queued")
}

func TestConcurrentConsumersTakeEachItemOnce(t *testing.T) {
	const items = 500
	q := queue.New[int]()

	var (
		mu   sync.Mutex
		seen = make(map[int]int)
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Go(func() {
			for {
				v, err := q.Pop(context.Background(), 100*time.Millisecond)
				if err != nil {
					return
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		})
	}

	for i := range items {
		q.Push(i)
	}
	wg.Wait()

	require.Len(t, seen, items)
	for v, n := range seen {
		assert.Equal(t, 1, n, "item %d", v)
	}
}
