package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory(10)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryTTLExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemory(10).WithNow(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))

	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(61 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "expired entry is a miss")
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestMemoryCapEviction(t *testing.T) {
	c := NewMemory(3)
	ctx := context.Background()

	// "short" expires soonest and should be the eviction victim.
	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "mid", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "long", []byte("3"), 2*time.Hour))

	require.NoError(t, c.Set(ctx, "new", []byte("4"), time.Hour))
	assert.Equal(t, 3, c.Len())

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "new")
	assert.True(t, ok)
}

func TestMemoryOverwriteDoesNotEvict(t *testing.T) {
	c := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "a", []byte("3"), time.Hour))

	assert.Equal(t, 2, c.Len())
	val, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("3"), val)
}

func TestMemoryDelete(t *testing.T) {
	c := NewMemory(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	c := NewMemory(50)
	ctx := context.Background()
	done := make(chan struct{})

	for i := 0; i < 4; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				_ = c.Set(ctx, key, []byte{byte(n)}, time.Minute)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	assert.LessOrEqual(t, c.Len(), 50)
}
