// Package readbuf implements the zero-copy read buffer model: a read's name,
// sequence, and quality strings are either owned byte slices or ranges into a
// shared per-block arena, and block-level edits reuse that arena instead of
// allocating per read.
//
// This generalizes the Read/Scanner pair in the teacher's encoding/fastq
// package (single owned strings) into an editable, arena-backed buffer
// capable of participating in a long pipeline of in-place transformations.
package readbuf

import "fmt"

// Element is one name/seq/qual field of a read. It is either a byte range
// into the owning Block's arena (Local) or an owned, heap-independent byte
// slice (Owned). Shrinking edits mutate the range in place; growing edits
// append to the arena and relocate the range.
type Element struct {
	owned []byte
	start int
	end   int
	local bool
}

// Owned constructs an Element that owns its bytes independently of any
// arena.
func Owned(b []byte) Element {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Element{owned: cp}
}

// Local constructs an Element referencing arena[start:end].
func Local(start, end int) Element {
	if end < start {
		panic(fmt.Sprintf("readbuf: invalid local range [%d,%d)", start, end))
	}
	return Element{start: start, end: end, local: true}
}

// IsLocal reports whether e references a block arena rather than owning its
// bytes.
func (e Element) IsLocal() bool { return e.local }

// Len returns the element's byte length.
func (e Element) Len() int {
	if e.local {
		return e.end - e.start
	}
	return len(e.owned)
}

// Bytes returns the element's bytes, resolving against arena if Local.
func (e Element) Bytes(arena []byte) []byte {
	if e.local {
		return arena[e.start:e.end]
	}
	return e.owned
}

// Range returns the element's (start, end) within arena; valid only when
// IsLocal is true.
func (e Element) Range() (start, end int) { return e.start, e.end }

// CutStart drops the first n bytes. Shrinking: never needs the arena.
func (e Element) CutStart(n int) Element {
	if n < 0 || n > e.Len() {
		panic("readbuf: CutStart out of range")
	}
	if e.local {
		return Local(e.start+n, e.end)
	}
	return Owned(e.owned[n:])
}

// CutEnd drops the last n bytes.
func (e Element) CutEnd(n int) Element {
	if n < 0 || n > e.Len() {
		panic("readbuf: CutEnd out of range")
	}
	if e.local {
		return Local(e.start, e.end-n)
	}
	return Owned(e.owned[:len(e.owned)-n])
}

// Prefix prepends b, appending to arena and relocating the element.
func (e Element) Prefix(b []byte, arena *[]byte) Element {
	cur := e.Bytes(*arena)
	out := make([]byte, 0, len(b)+len(cur))
	out = append(out, b...)
	out = append(out, cur...)
	return appendToArena(arena, out)
}

// Postfix appends b, appending to arena and relocating the element.
func (e Element) Postfix(b []byte, arena *[]byte) Element {
	cur := e.Bytes(*arena)
	out := make([]byte, 0, len(cur)+len(b))
	out = append(out, cur...)
	out = append(out, b...)
	return appendToArena(arena, out)
}

// Replace sets the element's bytes to b in full, reusing arena space when b
// fits within the current Local range, otherwise appending.
func (e Element) Replace(b []byte, arena *[]byte) Element {
	if e.local && len(b) <= e.end-e.start {
		copy((*arena)[e.start:e.start+len(b)], b)
		return Local(e.start, e.start+len(b))
	}
	return appendToArena(arena, b)
}

// Reverse reverses the element's bytes in place when Local (or in a fresh
// owned copy otherwise) and returns the (possibly relocated) element.
func (e Element) Reverse(arena []byte) Element {
	if e.local {
		reverseBytes(arena[e.start:e.end])
		return e
	}
	cp := append([]byte(nil), e.owned...)
	reverseBytes(cp)
	return Owned(cp)
}

// ReverseComplement reverse-complements the element's bytes, treating them
// as a DNA sequence. Grounded on the ASCII revcomp table used by the
// teacher's biosimd.ReverseComp8Inplace, reimplemented here without the
// platform-specific SIMD dispatch this module doesn't need.
func (e Element) ReverseComplement(arena []byte) Element {
	if e.local {
		revComp(arena[e.start:e.end])
		return e
	}
	cp := append([]byte(nil), e.owned...)
	revComp(cp)
	return Owned(cp)
}

func appendToArena(arena *[]byte, b []byte) Element {
	start := len(*arena)
	*arena = append(*arena, b...)
	return Local(start, start+len(b))
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

var complementTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 'N'
	}
	pairs := map[byte]byte{
		'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C',
		'a': 't', 't': 'a', 'c': 'g', 'g': 'c',
		'N': 'N', 'n': 'n',
	}
	for k, v := range pairs {
		t[k] = v
	}
	return t
}()

func revComp(b []byte) {
	n := len(b)
	half := n / 2
	for i, j := 0, n-1; i != half; i, j = i+1, j-1 {
		b[i], b[j] = complementTable[b[j]], complementTable[b[i]]
	}
	if n&1 == 1 {
		b[half] = complementTable[b[half]]
	}
}

// SwapWith exchanges the contents of e and other. Both elements may be
// Local (possibly in different arenas) or Owned; this is a four-case
// dispatch that reuses existing arena space when the incoming payload fits,
// and otherwise promotes to Owned. Returns the new (e, other).
func SwapWith(e, other Element, arenaE, arenaOther *[]byte) (Element, Element) {
	eBytes := append([]byte(nil), e.Bytes(*arenaE)...)
	otherBytes := append([]byte(nil), other.Bytes(*arenaOther)...)

	var newE, newOther Element
	if e.local && len(otherBytes) <= e.end-e.start {
		copy((*arenaE)[e.start:e.start+len(otherBytes)], otherBytes)
		newE = Local(e.start, e.start+len(otherBytes))
	} else {
		newE = Owned(otherBytes)
	}
	if other.local && len(eBytes) <= other.end-other.start {
		copy((*arenaOther)[other.start:other.start+len(eBytes)], eBytes)
		newOther = Local(other.start, other.start+len(eBytes))
	} else {
		newOther = Owned(eBytes)
	}
	return newE, newOther
}
