package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID int
}

func TestCheckAfterSetReturnsValue(t *testing.T) {
	c := New[*payload](4, time.Minute)

	_, ok := c.Check("prod|24h", false)
	assert.False(t, ok, "empty cache should miss")

	c.Set("prod|24h", &payload{ID: 1})
	got, ok := c.Check("prod|24h", false)
	require.True(t, ok)
	assert.Equal(t, 1, got.ID)
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New[*payload](4, time.Minute, WithClock[*payload](clock))

	c.Set("prod|24h", &payload{ID: 1})

	now = now.Add(59 * time.Second)
	_, ok := c.Check("prod|24h", false)
	assert.True(t, ok, "entry should survive inside the TTL")

	now = now.Add(time.Second)
	_, ok = c.Check("prod|24h", false)
	assert.False(t, ok, "entry at exactly the TTL is expired")
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on read")
}

func TestSetResetsEntryAge(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New[*payload](4, time.Minute, WithClock[*payload](clock))

	c.Set("prod|24h", &payload{ID: 1})
	now = now.Add(45 * time.Second)
	c.Set("prod|24h", &payload{ID: 2})
	now = now.Add(45 * time.Second)

	got, ok := c.Check("prod|24h", false)
	require.True(t, ok, "rewritten entry should get a fresh TTL")
	assert.Equal(t, 2, got.ID)
}

func TestBypassSkipsReadButKeepsEntry(t *testing.T) {
	c := New[*payload](4, time.Minute)
	c.Set("prod|24h", &payload{ID: 1})

	_, ok := c.Check("prod|24h", true)
	assert.False(t, ok, "bypass must report a miss")

	_, ok = c.Check("prod|24h", false)
	assert.True(t, ok, "bypass must not evict the entry")
}

func TestLRUEvictsOldestWhenFull(t *testing.T) {
	c := New[*payload](2, time.Minute)
	c.Set("prod|1h", &payload{ID: 1})
	c.Set("prod|6h", &payload{ID: 2})
	c.Set("prod|24h", &payload{ID: 3})

	_, ok := c.Check("prod|1h", false)
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Check("prod|6h", false)
	assert.True(t, ok)
	_, ok = c.Check("prod|24h", false)
	assert.True(t, ok)
}

func TestInvalidateAndPurge(t *testing.T) {
	c := New[*payload](8, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("prod|%dh", i+1), &payload{ID: i})
	}

	c.Invalidate("prod|1h")
	_, ok := c.Check("prod|1h", false)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestKeySeparatesEnvironments(t *testing.T) {
	assert.Equal(t, "prod|24h", Key("prod", "24h"))
	assert.NotEqual(t, Key("prod", "24h"), Key("test", "24h"))

	c := New[*payload](8, time.Minute)
	c.Set(Key("prod", "24h"), &payload{ID: 1})
	_, ok := c.Check(Key("test", "24h"), false)
	assert.False(t, ok, "environments must not share entries")
}

func TestNoopNeverRetains(t *testing.T) {
	var s Store[*payload] = Noop[*payload]{}
	s.Set("prod|24h", &payload{ID: 1})
	_, ok := s.Check("prod|24h", false)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
