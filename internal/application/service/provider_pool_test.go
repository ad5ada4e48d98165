package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderPool_Unlimited(t *testing.T) {
	pool := NewProviderPool(map[string]int{"keyword": 0})

	for i := 0; i < 10; i++ {
		assert.True(t, pool.TryAcquire("keyword"))
	}
	require.NoError(t, pool.Acquire(context.Background(), "anthropic"))
	pool.Release("anthropic")
	assert.Empty(t, pool.Stats())
}

func TestProviderPool_TryAcquire(t *testing.T) {
	pool := NewProviderPool(map[string]int{"claude-cli": 2})

	assert.True(t, pool.TryAcquire("claude-cli"))
	assert.True(t, pool.TryAcquire("claude-cli"))
	assert.False(t, pool.TryAcquire("claude-cli"), "third slot should be refused")

	stats := pool.Stats()["claude-cli"]
	assert.Equal(t, 2, stats.Current)
	assert.Equal(t, 2, stats.Max)
	assert.False(t, stats.IsAvailable())

	pool.Release("claude-cli")
	assert.True(t, pool.Stats()["claude-cli"].IsAvailable())
	assert.True(t, pool.TryAcquire("claude-cli"))
}

func TestProviderPool_ReleaseWithoutAcquire(t *testing.T) {
	pool := NewProviderPool(map[string]int{"openai": 1})

	pool.Release("openai")
	assert.Equal(t, 0, pool.Stats()["openai"].Current)
}

func TestProviderPool_AcquireHonoursContext(t *testing.T) {
	pool := NewProviderPool(map[string]int{"openai": 1})
	require.True(t, pool.TryAcquire("openai"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Acquire(ctx, "openai")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProviderPool_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	const limit = 3
	pool := NewProviderPool(map[string]int{"anthropic": limit})

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, pool.Acquire(context.Background(), "anthropic")) {
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			pool.Release("anthropic")
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(peak), limit)
	assert.Equal(t, 0, pool.Stats()["anthropic"].Current)
}
