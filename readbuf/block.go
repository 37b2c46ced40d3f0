package readbuf

import "fmt"

// Block holds one segment's worth of reads for a pipeline batch: a shared
// byte arena plus the per-read Elements that index into it (or own their
// bytes independently). All entries are heap-independent of each other;
// only the arena is shared.
type Block struct {
	Arena   []byte
	Entries []Read
}

// NewBlock returns an empty Block with an arena preallocated to
// arenaHint bytes, mirroring the teacher's bufferInitSize preallocation
// idiom in encoding/fasta/fasta.go.
func NewBlock(arenaHint int) *Block {
	return &Block{Arena: make([]byte, 0, arenaHint)}
}

// Len returns the number of reads in the block.
func (b *Block) Len() int { return len(b.Entries) }

// AppendOwned appends a read built from freshly-owned copies of name, seq,
// qual (used by readers that don't want to share the arena, e.g. when a
// record is synthesized rather than parsed).
func (b *Block) AppendOwned(name, seq, qual []byte) {
	b.Entries = append(b.Entries, Read{Owned(name), Owned(seq), Owned(qual)})
}

// AppendLocal appends a read directly from arena-relative (start, end)
// triples; used by readers that parse straight into b.Arena.
func (b *Block) AppendLocal(nameRange, seqRange, qualRange [2]int) {
	b.Entries = append(b.Entries, Read{
		Name: Local(nameRange[0], nameRange[1]),
		Seq:  Local(seqRange[0], seqRange[1]),
		Qual: Local(qualRange[0], qualRange[1]),
	})
}

// Validate checks every read's invariants (spec.md §8 property 2, minus the
// Location-tag bound which is checked by tagstore).
func (b *Block) Validate() error {
	for i, r := range b.Entries {
		if err := r.Validate(b.Arena); err != nil {
			return fmt.Errorf("block: read %d: %w", i, err)
		}
	}
	return nil
}

// Drain removes the entries in [start, end) from the block, preserving
// order of the remainder. The arena is left untouched (dangling bytes are
// simply unreferenced); callers needing a compacted arena should start a
// fresh block instead.
func (b *Block) Drain(start, end int) {
	b.Entries = append(b.Entries[:start], b.Entries[end:]...)
}

// ApplyBoolFilter drops entries where keep[i] is false, preserving order of
// the survivors. len(keep) must equal b.Len().
func (b *Block) ApplyBoolFilter(keep []bool) {
	if len(keep) != len(b.Entries) {
		panic("readbuf: keep length mismatch")
	}
	out := b.Entries[:0]
	for i, r := range b.Entries {
		if keep[i] {
			out = append(out, r)
		}
	}
	b.Entries = out
}
