package otpstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore[string](clock.Now)

	require.NoError(t, store.Put(ctx, "a@x.com", "first", time.Minute))
	require.NoError(t, store.Put(ctx, "a@x.com", "second", time.Minute))

	got, ok, err := store.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreEvictsAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore[int](clock.Now)

	require.NoError(t, store.Put(ctx, "k", 42, 10*time.Second))
	clock.Advance(9 * time.Second)
	_, ok, _ := store.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreDeleteClaimsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[string](nil)
	require.NoError(t, store.Put(ctx, "k", "v", time.Minute))

	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Delete(ctx, "k")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claimed)
}

func TestMemoryStoreClaimChecksCurrentValue(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore[string](clock.Now)
	is := func(want string) func(string) bool {
		return func(v string) bool { return v == want }
	}

	require.NoError(t, store.Put(ctx, "a@x.com", "123456", time.Minute))
	require.NoError(t, store.Put(ctx, "a@x.com", "654321", time.Minute))

	ok, err := store.Claim(ctx, "a@x.com", is("123456"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())

	ok, err = store.Claim(ctx, "a@x.com", is("654321"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Put(ctx, "b@x.com", "111111", time.Minute))
	clock.Advance(time.Minute)
	ok, err = store.Claim(ctx, "b@x.com", is("111111"))
	require.NoError(t, err)
	assert.False(t, ok)
}
