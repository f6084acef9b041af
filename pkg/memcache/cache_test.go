package memcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyStability(t *testing.T) {
	k1 := Key("hello world", "model-a", 1024)
	k2 := Key("hello world", "model-a", 1024)
	require.Equal(t, k1, k2)

	k3 := Key("hello world", "model-b", 1024)
	require.NotEqual(t, k1, k3)

	k4 := Key("hello world", "model-a", 384)
	require.NotEqual(t, k1, k4)
}

func TestCacheGetPutRoundTrip(t *testing.T) {
	c := New(time.Hour, 10)
	key := Key("text", "m1", 4)

	_, ok := c.Get(key)
	require.False(t, ok)

	c.Put(key, []float32{1, 2, 3, 4}, "m1")
	entry, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, []float32{1, 2, 3, 4}, entry.Vector)
	require.Equal(t, "m1", entry.ModelID)
}

func TestCacheExpiry(t *testing.T) {
	c := New(time.Millisecond, 10)
	key := Key("text", "m1", 4)
	c.Put(key, []float32{1}, "m1")
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(key)
	require.False(t, ok)
}

func TestCacheEviction(t *testing.T) {
	c := New(time.Hour, 2)
	c.Put("a", []float32{1}, "m")
	c.Put("b", []float32{2}, "m")
	c.Put("c", []float32{3}, "m")
	require.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok, "oldest entry should be evicted")
}
