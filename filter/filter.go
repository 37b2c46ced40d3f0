// Package filter implements C4: the unified exact/approximate membership
// filter shared by dedup-family steps and presence tests. Entries are
// tuples of byte slices (a multi-segment fragment) treated as one key via
// canonical concatenation.
package filter

// Entry is a fragment: the sequences from one or more segments that
// together form a single dedup/presence key.
type Entry [][]byte

// canonicalKey concatenates an Entry's slices with a separator that cannot
// appear inside any one slice's alphabet in practice (a NUL byte), so a
// 2-part entry ("AC", "GT") never collides with a 2-part entry ("ACG",
// "T").
func canonicalKey(e Entry) []byte {
	n := 0
	for _, s := range e {
		n += len(s) + 1
	}
	out := make([]byte, 0, n)
	for _, s := range e {
		out = append(out, s...)
		out = append(out, 0)
	}
	return out
}

// Filter is the shared interface over an exact set and a scalable
// approximate (Cuckoo) filter (spec.md §3/§4.4).
type Filter interface {
	// Contains reports whether entry has been inserted before.
	Contains(entry Entry) bool
	// Insert records entry as seen.
	Insert(entry Entry)
	// ContainsOrInsert atomically checks and inserts, returning whether
	// entry was already present.
	ContainsOrInsert(entry Entry) (wasPresent bool)
}
