package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	v, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(2 * time.Minute)
	_, found, _ = s.Get(ctx, "a")
	assert.False(t, found)
	_, found, _ = s.Get(ctx, "b")
	assert.True(t, found)

	require.NoError(t, s.Delete(ctx, "b"))
	_, found, _ = s.Get(ctx, "b")
	assert.False(t, found)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, SetJSON(ctx, s, "k", payload{Name: "x", Count: 3}, time.Minute))

	var out payload
	found, err := GetJSON(ctx, s, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "x", Count: 3}, out)

	found, err = GetJSON(ctx, s, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_ExpiredGetKeepsConcurrentSet(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return start }
	require.NoError(t, s.Set(ctx, "a", []byte("old"), time.Minute))

	// the first expiry check happens between the read and the write lock;
	// replace the key right there
	replaced := false
	s.now = func() time.Time {
		if !replaced {
			replaced = true
			require.NoError(t, s.Set(ctx, "a", []byte("new"), 0))
		}
		return start.Add(time.Hour)
	}

	_, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found)

	v, found, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("new"), v)
}
