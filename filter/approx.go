package filter

import (
	"encoding/binary"
	"sync"

	farm "github.com/dgryski/go-farm"
	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// approx is the Approximate(scalable Cuckoo filter) variant from spec.md
// §3/§4.4: a chain of github.com/seiflotfy/cuckoofilter instances, each
// sized larger than the last, so the filter keeps accepting inserts past
// its initial capacity instead of saturating (the classic scalable-filter
// growth scheme). Entries are reduced to a seeded 8-byte farmhash before
// being handed to the cuckoo filter, which both bounds the fingerprint
// input to the library's expected key shape and gives the seed its role in
// the determinism contract: the same seed over the same input stream
// always derives the same keys, hence the same accept/reject decisions.
type approx struct {
	mu       sync.Mutex
	seed     uint64
	fpRate   float64
	nextCap  uint
	growStep uint
	filters  []*cuckoo.Filter
}

// NewApprox returns a Filter backed by a scalable Cuckoo filter. capacity
// is the initial reserve (sized by the caller from an observed block size
// times a reserve factor, per spec.md §3 Filter lifecycle). fpRate is
// recorded (0.01 when not positive) but does not affect the filters'
// capacity or when a new one is added, so the false-positive rate is that
// of the underlying cuckoo filters, not fpRate.
func NewApprox(seed uint64, capacity uint, fpRate float64) Filter {
	if capacity == 0 {
		capacity = 1024
	}
	if fpRate <= 0 {
		fpRate = 0.01
	}
	a := &approx{seed: seed, fpRate: fpRate, nextCap: capacity, growStep: capacity}
	a.filters = append(a.filters, cuckoo.NewFilter(capacity))
	return a
}

func (a *approx) key(entry Entry) []byte {
	h := farm.Hash64WithSeed(canonicalKey(entry), a.seed)
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, h)
	return b
}

func (a *approx) Contains(entry Entry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.contains(a.key(entry))
}

func (a *approx) contains(key []byte) bool {
	for _, f := range a.filters {
		if f.Lookup(key) {
			return true
		}
	}
	return false
}

func (a *approx) Insert(entry Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.insert(a.key(entry))
}

func (a *approx) insert(key []byte) {
	last := a.filters[len(a.filters)-1]
	if last.InsertUnique(key) {
		return
	}
	// Current filter is saturated for this fingerprint/bucket combination;
	// grow by adding a new, larger filter. Older filters are kept (never
	// merged) since cuckoofilter has no merge operation; lookups scan all
	// of them, oldest first, which matches insertion order for a fragment
	// seen again.
	a.growStep *= 2
	a.nextCap += a.growStep
	next := cuckoo.NewFilter(a.nextCap)
	next.InsertUnique(key)
	a.filters = append(a.filters, next)
}

func (a *approx) ContainsOrInsert(entry Entry) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := a.key(entry)
	if a.contains(key) {
		return true
	}
	a.insert(key)
	return false
}
