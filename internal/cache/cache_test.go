package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func TestLoad_TTL(t *testing.T) {
	t0 := time.Date(2024, 7, 19, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: t0}
	c := New(WithClock(clock.Now))

	var calls int
	loader := func(context.Context) ([]string, error) {
		calls++
		return []string{"AAPL", "MSFT"}, nil
	}
	ctx := context.Background()

	v, err := Load(ctx, c, "companies", 60*time.Second, loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, v)
	assert.Equal(t, 1, calls)

	clock.Set(t0.Add(59 * time.Second))
	_, err = Load(ctx, c, "companies", 60*time.Second, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "a hit within the TTL must not invoke the loader")

	clock.Set(t0.Add(61 * time.Second))
	_, err = Load(ctx, c, "companies", 60*time.Second, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "an expired entry must be reloaded")

	clock.Set(t0.Add(100 * time.Second))
	_, err = Load(ctx, c, "companies", 60*time.Second, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "the reload starts a new TTL window")
}

func TestLoad_KeysAreIndependent(t *testing.T) {
	c := New()
	ctx := context.Background()

	a, err := Load(ctx, c, "companies", time.Minute, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	b, err := Load(ctx, c, "prices", time.Minute, func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestLoad_ErrorsNotCached(t *testing.T) {
	c := New()
	ctx := context.Background()
	boom := errors.New("db down")

	_, err := Load(ctx, c, "prices", time.Minute, func(context.Context) ([]int, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := Load(ctx, c, "prices", time.Minute, func(context.Context) ([]int, error) { return []int{1}, nil })
	require.NoError(t, err)
	assert.Equal(t, []int{1}, v)
}

func TestGetOrLoad(t *testing.T) {
	c := New()
	v, err := c.GetOrLoad(context.Background(), "companies", time.Minute, func(context.Context) (any, error) {
		return "payload", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestLoad_ConcurrentAccess(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Load(ctx, c, "prices", time.Minute, func(context.Context) (int, error) {
				calls.Add(1)
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	_, err := Load(ctx, c, "prices", time.Minute, func(context.Context) (int, error) {
		t.Fatal("loader must not run once the entry is populated")
		return 0, nil
	})
	require.NoError(t, err)
}
