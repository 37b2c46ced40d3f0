package readbuf

import (
	"fmt"

	"github.com/grailbio/fqproc/tagstore"
)

// BlocksCombined is C2: the parallel per-segment Blocks for one pipeline
// batch, kept in lockstep with a per-read tag store and an optional
// per-read demultiplex bucket tag. This is the unit every pipeline stage
// actually operates on.
type BlocksCombined struct {
	BlockNumber uint64
	Segments    []*Block
	Tags        *tagstore.Store

	// OutputTags holds one demultiplex bucket bitmask per read; nil until
	// the first demultiplex step runs. 0 means "unmatched".
	OutputTags []uint64

	// IsFinal marks this combined block's contents as the terminal output
	// of the block-producing side of the pipeline. No step in this module
	// sets it, and the runtime does not read it.
	IsFinal bool
}

// NewBlocksCombined returns a combined block over nSegments parallel,
// initially-empty Blocks.
func NewBlocksCombined(nSegments int, arenaHint int) *BlocksCombined {
	segs := make([]*Block, nSegments)
	for i := range segs {
		segs[i] = NewBlock(arenaHint)
	}
	return &BlocksCombined{Segments: segs, Tags: tagstore.NewStore()}
}

// Len returns the read count, which must be identical across all segments,
// every tag vector, and OutputTags (spec.md §3 invariant).
func (c *BlocksCombined) Len() int {
	if len(c.Segments) == 0 {
		return 0
	}
	return c.Segments[0].Len()
}

// Validate checks the combined-block invariant: every segment, every tag
// vector, and OutputTags (if present) have identical length.
func (c *BlocksCombined) Validate() error {
	n := c.Len()
	for i, seg := range c.Segments {
		if seg.Len() != n {
			return fmt.Errorf("combined: segment %d has %d reads, want %d", i, seg.Len(), n)
		}
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("combined: segment %d: %w", i, err)
		}
	}
	if err := c.Tags.ValidateLengths(n); err != nil {
		return err
	}
	if c.OutputTags != nil && len(c.OutputTags) != n {
		return fmt.Errorf("combined: output_tags has %d entries, want %d", len(c.OutputTags), n)
	}
	return nil
}

// ReadMutFunc is invoked once per read index, receiving every segment's
// Read (by reference via index) so the callback can edit all segments for
// that read together.
type ReadMutFunc func(idx int, segs []*Block)

// ApplyMut visits every read index once, passing all segments so the
// callback can edit across segments for a single read (spec.md §4.2).
func (c *BlocksCombined) ApplyMut(f ReadMutFunc) {
	n := c.Len()
	for i := 0; i < n; i++ {
		f(i, c.Segments)
	}
}

// ReadMutWithTagFunc additionally receives the current value of the named
// tag for the read being visited.
type ReadMutWithTagFunc func(idx int, segs []*Block, tag tagstore.Value)

// ApplyMutWithTag visits every read index, passing the current value of
// label alongside the segments.
func (c *BlocksCombined) ApplyMutWithTag(label string, f ReadMutWithTagFunc) {
	vals := c.Tags.Get(label)
	n := c.Len()
	for i := 0; i < n; i++ {
		f(i, c.Segments, vals[i])
	}
}

// ApplyBoolFilter atomically drops reads where keep[i] is false across all
// segments, every tag vector, and OutputTags (spec.md §4.2, §8 property 4).
func (c *BlocksCombined) ApplyBoolFilter(keep []bool) {
	if len(keep) != c.Len() {
		panic("combined: keep length mismatch")
	}
	for _, seg := range c.Segments {
		seg.ApplyBoolFilter(keep)
	}
	c.Tags.ApplyBoolFilter(keep)
	if c.OutputTags != nil {
		out := c.OutputTags[:0]
		for i, v := range c.OutputTags {
			if keep[i] {
				out = append(out, v)
			}
		}
		c.OutputTags = out
	}
}

// Resize truncates (or is a no-op if newLen >= Len()) every segment, tag
// vector, and OutputTags to newLen reads, atomically.
func (c *BlocksCombined) Resize(newLen int) {
	if newLen >= c.Len() {
		return
	}
	keep := make([]bool, c.Len())
	for i := 0; i < newLen; i++ {
		keep[i] = true
	}
	c.ApplyBoolFilter(keep)
}

// Drain removes reads in [start, end) from every segment, tag vector, and
// OutputTags, atomically.
func (c *BlocksCombined) Drain(start, end int) {
	keep := make([]bool, c.Len())
	for i := range keep {
		if i < start || i >= end {
			keep[i] = true
		}
	}
	c.ApplyBoolFilter(keep)
}

// EnsureOutputTags allocates OutputTags (all zero, "unmatched") if it is
// currently nil, so the first demultiplex step can OR its decisions in.
func (c *BlocksCombined) EnsureOutputTags() {
	if c.OutputTags == nil {
		c.OutputTags = make([]uint64, c.Len())
	}
}
