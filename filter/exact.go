package filter

import (
	"bytes"
	"sync"

	farm "github.com/dgryski/go-farm"
)

// exact is the Exact(set of byte-vectors) variant from spec.md §3. It
// buckets entries by a farmhash of their canonical key (grounded on the
// teacher's fusion/kmer_index.go sharded-hashtable idiom) and falls back to
// a byte comparison within a bucket so the filter is exact, not
// probabilistic: farmhash collisions never produce a false "contains".
type exact struct {
	mu      sync.Mutex
	buckets map[uint64][][]byte
}

// NewExact returns a Filter backed by an exact set.
func NewExact() Filter {
	return &exact{buckets: make(map[uint64][][]byte)}
}

func (f *exact) Contains(entry Entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contains(canonicalKey(entry))
}

func (f *exact) contains(key []byte) bool {
	h := farm.Hash64(key)
	for _, b := range f.buckets[h] {
		if bytes.Equal(b, key) {
			return true
		}
	}
	return false
}

func (f *exact) Insert(entry Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := canonicalKey(entry)
	f.insert(key)
}

func (f *exact) insert(key []byte) {
	h := farm.Hash64(key)
	f.buckets[h] = append(f.buckets[h], key)
}

func (f *exact) ContainsOrInsert(entry Entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := canonicalKey(entry)
	if f.contains(key) {
		return true
	}
	f.insert(key)
	return false
}
