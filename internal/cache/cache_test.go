package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestGetSetExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewTTL[string, int](time.Minute, WithClock[string, int](clock.Now))

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestSetRefreshesTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewTTL[string, int](time.Minute, WithClock[string, int](clock.Now))

	c.Set("a", 1)
	clock.Advance(45 * time.Second)
	c.Set("a", 2)
	clock.Advance(45 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetOrLoad(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewTTL[string, int](time.Minute, WithClock[string, int](clock.Now))

	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrLoad("a", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	_, err = c.GetOrLoad("a", load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	clock.Advance(2 * time.Minute)
	_, err = c.GetOrLoad("a", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := NewTTL[string, int](time.Minute)

	boom := errors.New("boom")
	_, err := c.GetOrLoad("a", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrLoad("a", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestDelete(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}
