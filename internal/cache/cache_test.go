package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheBasic(t *testing.T) {
	c, err := NewMemoryCache(DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	value, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)

	require.NoError(t, c.Delete(ctx, "k"))
	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheExpiration(t *testing.T) {
	c, err := NewMemoryCache(Config{
		DefaultTTL:      50 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ephemeral", "v", 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)

	_, found, err := c.Get(ctx, "ephemeral")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheClear(t *testing.T) {
	c, err := NewMemoryCache(DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	require.NoError(t, c.Clear(ctx))

	_, found, _ := c.Get(ctx, "a")
	assert.False(t, found)
	_, found, _ = c.Get(ctx, "b")
	assert.False(t, found)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	value, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)

	// TTL到期后自动失效
	mr.FastForward(2 * time.Minute)
	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k2", "v2", time.Minute))
	require.NoError(t, c.Clear(ctx))
	_, found, _ = c.Get(ctx, "k2")
	assert.False(t, found)
}

func TestNewCacheFactory(t *testing.T) {
	c, err := NewCache(Config{Type: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	// 未知类型回退到内存缓存
	c, err = NewCache(Config{Type: ""})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestAnswerKey(t *testing.T) {
	k1 := AnswerKey("notes", "What is attention?")
	k2 := AnswerKey("notes", "  what is attention?  ")
	k3 := AnswerKey("notes", "What is BERT?")
	k4 := AnswerKey("papers", "What is attention?")

	// 同一集合下规范化后相同的问题命中同一个键
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
	assert.Contains(t, k1, "qa:notes:")
}
