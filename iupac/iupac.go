// Package iupac implements the ambiguity-code matching and Hamming-distance
// primitives the extract family of steps treats as named collaborators
// (spec.md Non-goals: this module owns the primitive, not a reusable
// optimized kernel for it).
package iupac

// Matches reports whether base satisfies IUPAC code pattern (case
// insensitive); an unrecognized pattern byte matches nothing.
func Matches(pattern, base byte) bool {
	switch upper(pattern) {
	case 'A':
		return upper(base) == 'A'
	case 'C':
		return upper(base) == 'C'
	case 'G':
		return upper(base) == 'G'
	case 'T', 'U':
		return upper(base) == 'T' || upper(base) == 'U'
	case 'R':
		return upper(base) == 'A' || upper(base) == 'G'
	case 'Y':
		return upper(base) == 'C' || upper(base) == 'T'
	case 'S':
		return upper(base) == 'G' || upper(base) == 'C'
	case 'W':
		return upper(base) == 'A' || upper(base) == 'T'
	case 'K':
		return upper(base) == 'G' || upper(base) == 'T'
	case 'M':
		return upper(base) == 'A' || upper(base) == 'C'
	case 'B':
		return upper(base) != 'A'
	case 'D':
		return upper(base) != 'C'
	case 'H':
		return upper(base) != 'G'
	case 'V':
		return upper(base) != 'T'
	case 'N':
		return true
	default:
		return false
	}
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// MatchAt reports whether pattern matches seq starting at offset, allowing
// up to maxMismatch IUPAC-mismatches.
func MatchAt(pattern, seq []byte, offset, maxMismatch int) (ok bool, mismatches int) {
	if offset < 0 || offset+len(pattern) > len(seq) {
		return false, 0
	}
	for i, p := range pattern {
		if !Matches(p, seq[offset+i]) {
			mismatches++
			if mismatches > maxMismatch {
				return false, mismatches
			}
		}
	}
	return true, mismatches
}

// FindFirst scans seq left to right for the first offset at which pattern
// matches within maxMismatch IUPAC-mismatches, returning (-1, 0, false) if
// none is found.
func FindFirst(pattern, seq []byte, maxMismatch int) (offset, mismatches int, found bool) {
	for i := 0; i+len(pattern) <= len(seq); i++ {
		if ok, m := MatchAt(pattern, seq, i, maxMismatch); ok {
			return i, m, true
		}
	}
	return -1, 0, false
}

// FindWithIndel scans seq for the placement of pattern with the fewest
// substitutions (at most maxMismatch; the first such placement on a tie).
// It then re-tests windows shifted by +1, charging one extra edit for the
// shift (the -1 pass is skipped outright); every such window was already
// scored one edit cheaper by the substitution-only pass, so the result is
// always the substitution-only best placement. Insertions or deletions
// inside the pattern are not considered, and a hit always spans
// len(pattern) bases.
func FindWithIndel(pattern, seq []byte, maxMismatch int) (offset, edits int, found bool) {
	best := -1
	bestEdits := maxMismatch + 1
	for i := 0; i+len(pattern) <= len(seq); i++ {
		if ok, m := MatchAt(pattern, seq, i, maxMismatch); ok && m < bestEdits {
			best, bestEdits = i, m
		}
	}
	for _, shift := range []int{-1, 1} {
		start := 0
		if start+shift < 0 {
			continue
		}
		for i := 0; i+len(pattern)+shift <= len(seq) && i+shift >= 0; i++ {
			if i+shift < 0 || i+len(pattern) > len(seq) {
				continue
			}
			if ok, m := MatchAt(pattern, seq, i+shift, maxMismatch); ok {
				edits := m + 1 // charge one edit for the shift itself
				if edits < bestEdits {
					best, bestEdits = i+shift, edits
				}
			}
		}
	}
	if best < 0 {
		return -1, 0, false
	}
	return best, bestEdits, true
}

// Hamming returns the Hamming distance between a and b, which must be equal
// length; differing lengths return -1.
func Hamming(a, b []byte) int {
	if len(a) != len(b) {
		return -1
	}
	d := 0
	for i := range a {
		if upper(a[i]) != upper(b[i]) {
			d++
		}
	}
	return d
}
