// The keyspace holds the named lists served over the Redis port. Lists themselves are not thread-safe, so keys are
// spread over shards and each shard guards all of its lists with one mutex. A command only ever locks the shard that
// its key belongs to, so commands on keys of different shards don't wait on each other.

package port

import (
	"flag"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/nobletooth/dlist/pkg/list"
	"github.com/nobletooth/dlist/pkg/utils"
)

var shardCount = flag.Int("shard_count", 16, "Number of keyspace shards, each guarded by its own lock.")

// keyspaceShard owns a subset of the keys. All access to `lists` (and the lists in it) must hold `mux`.
type keyspaceShard struct {
	mux   sync.Mutex
	lists map[string]*list.List[string]
}

// Keyspace maps keys to lists of strings.
type Keyspace struct {
	shards []*keyspaceShard
}

// NewKeyspace creates an empty keyspace with the given number of shards.
func NewKeyspace(shards int) *Keyspace {
	// Ensure there is at least one shard.
	if shards <= 0 {
		utils.RaiseInvariant("keyspace", "non_positive_shard_count",
			"Invalid shard count has been given to keyspace.", "shardCount", shards)
		shards = 1
	}
	ks := &Keyspace{shards: make([]*keyspaceShard, shards)}
	for i := range shards {
		ks.shards[i] = &keyspaceShard{lists: make(map[string]*list.List[string])}
	}
	return ks
}

// NewKeyspaceFromFlags creates a keyspace sized by the --shard_count flag.
func NewKeyspaceFromFlags() *Keyspace {
	return NewKeyspace(*shardCount)
}

// getShard hashes the key and maps the hash onto one of the shards.
func (ks *Keyspace) getShard(key string) *keyspaceShard {
	return ks.shards[xxhash.Sum64String(key)%uint64(len(ks.shards))]
}

// With runs `fn` on the list stored under `key` while holding the key's shard lock. A missing key is handed to `fn`
// as a new empty list which is only stored if `fn` leaves something in it. Lists emptied by `fn` are dropped.
// `fn` must not keep the list or any of its nodes after it returns.
func (ks *Keyspace) With(key string, fn func(l *list.List[string])) {
	shard := ks.getShard(key)
	shard.mux.Lock()
	defer shard.mux.Unlock()

	l, exists := shard.lists[key]
	if !exists {
		l = list.NewComparable[string]()
	}
	fn(l)
	switch {
	case l.Len() == 0:
		delete(shard.lists, key)
	case !exists:
		shard.lists[key] = l
	}
}

// Delete drops the list stored under `key` and reports whether there was one.
func (ks *Keyspace) Delete(key string) bool /*existed*/ {
	shard := ks.getShard(key)
	shard.mux.Lock()
	defer shard.mux.Unlock()

	if _, exists := shard.lists[key]; !exists {
		return false
	}
	delete(shard.lists, key)
	return true
}

// Keys returns all keys holding a non-empty list, sorted. It locks the shards one at a time, so it is not a
// consistent snapshot while other commands run.
func (ks *Keyspace) Keys() []string {
	keys := make([]string, 0)
	for _, shard := range ks.shards {
		shard.mux.Lock()
		for key := range shard.lists {
			keys = append(keys, key)
		}
		shard.mux.Unlock()
	}
	slices.Sort(keys)
	return keys
}
