package port

import (
	"fmt"
	"sync"
	"testing"

	"github.com/nobletooth/dlist/pkg/list"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendValues appends the values to the list stored under `key`.
func appendValues(ks *Keyspace, key string, values ...string) {
	ks.With(key, func(l *list.List[string]) {
		for _, value := range values {
			l.Append(value)
		}
	})
}

// listValues returns the values stored under `key`.
func listValues(ks *Keyspace, key string) []string {
	var values []string
	ks.With(key, func(l *list.List[string]) { values = l.Values() })
	return values
}

func TestKeyspace_With(t *testing.T) {
	ks := NewKeyspace(4)

	t.Run("missing key is not stored when left empty", func(t *testing.T) {
		ks.With("ghost", func(l *list.List[string]) { assert.Zero(t, l.Len()) })
		assert.Empty(t, ks.Keys())
	})
	t.Run("new key is stored", func(t *testing.T) {
		appendValues(ks, "k1", "a", "b")
		assert.Equal(t, []string{"a", "b"}, listValues(ks, "k1"))
		assert.Equal(t, []string{"k1"}, ks.Keys())
	})
	t.Run("existing key is updated in place", func(t *testing.T) {
		appendValues(ks, "k1", "c")
		assert.Equal(t, []string{"a", "b", "c"}, listValues(ks, "k1"))
	})
	t.Run("emptied key is dropped", func(t *testing.T) {
		ks.With("k1", func(l *list.List[string]) {
			for l.Len() > 0 {
				_, err := l.Shift()
				require.NoError(t, err)
			}
		})
		assert.Empty(t, ks.Keys())
	})
}

func TestKeyspace_Delete(t *testing.T) {
	ks := NewKeyspace(2)
	appendValues(ks, "k1", "a")
	assert.True(t, ks.Delete("k1"))
	assert.False(t, ks.Delete("k1"))
	assert.Empty(t, listValues(ks, "k1"))
}

func TestKeyspace_Keys(t *testing.T) {
	ks := NewKeyspace(3 /*shards*/)
	for _, key := range []string{"d", "b", "a", "c"} {
		appendValues(ks, key, "v")
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ks.Keys())
}

func TestKeyspace_ConcurrentWriters(t *testing.T) {
	ks := NewKeyspace(4)
	const writers, perWriter = 8, 500
	var wg sync.WaitGroup
	for writer := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				value := fmt.Sprintf("%d-%d", writer, i)
				if i%2 == 0 {
					appendValues(ks, "shared", value)
				} else {
					ks.With("shared", func(l *list.List[string]) { l.Prepend(value) })
				}
			}
		}()
	}
	wg.Wait()

	ks.With("shared", func(l *list.List[string]) {
		assert.Equal(t, writers*perWriter, l.Len())
		assert.NoError(t, l.CheckIntegrity())
	})
}

// TestKeyspace_ShardDistribution verifies that keys are distributed across all shards.
func TestKeyspace_ShardDistribution(t *testing.T) {
	shardCount := 10
	ks := NewKeyspace(shardCount)
	// keyCount should be large enough compared to shardCount so it becomes virtually impossible to have a shard with
	// less than 50% of `keyCount/shardCount` keys.
	keyCount := 50_000
	for i := range keyCount {
		appendValues(ks, fmt.Sprintf("key-%d", i), "v")
	}
	assert.Len(t, ks.Keys(), keyCount)
	for _, shard := range ks.shards {
		assert.Greater(t, len(shard.lists), keyCount/(2*shardCount),
			"Expected keys in each shard to be at least half the keys compared to the uniform distribution.")
	}
}

func TestKeyspace_SameKeySameShard(t *testing.T) {
	ks := NewKeyspace(8)
	assert.Same(t, ks.getShard("stable"), ks.getShard("stable"))
}
