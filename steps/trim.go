package steps

import (
	"fmt"

	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

// segStep is embedded by every step that operates on exactly one named
// segment; it resolves SegmentName to segIdx during ValidateSegments.
type segStep struct {
	Base
	SegmentName string
	segIdx      int
}

func (s *segStep) ValidateSegments(input pipestep.InputInfo) error {
	idx := input.SegmentIndex(s.SegmentName)
	if idx < 0 {
		return fmt.Errorf("unknown segment %q", s.SegmentName)
	}
	s.segIdx = idx
	return nil
}

// shiftLocations shifts Location hits pointing at segIdx by -n (used after
// CutStart removed n leading bytes) and drops hits that now start before 0.
func shiftLocations(c *readbuf.BlocksCombined, segIdx, n int) {
	pipestep.UpdateLocationTags(c, segIdx, func(hit tagstore.Hit, segLen int) pipestep.LocationDecision {
		if hit.Loc.Start < n {
			return pipestep.LocationDecision{Action: pipestep.LocRemove}
		}
		region := *hit.Loc
		region.Start -= n
		return pipestep.LocationDecision{Action: pipestep.LocNew, Region: region}
	})
}

// growLocations shifts Location hits pointing at segIdx forward by n (used
// after Prefix added n leading bytes).
func growLocations(c *readbuf.BlocksCombined, segIdx, n int) {
	pipestep.UpdateLocationTags(c, segIdx, func(hit tagstore.Hit, segLen int) pipestep.LocationDecision {
		region := *hit.Loc
		region.Start += n
		return pipestep.LocationDecision{Action: pipestep.LocNew, Region: region}
	})
}

// CutStart removes n bases from the start of SegmentName.
type CutStart struct {
	segStep
	N int
}

func (s *CutStart) Name() string { return "cut_start" }

func (s *CutStart) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		r := &seg.Entries[i]
		n := s.N
		if n > r.Seq.Len() {
			n = r.Seq.Len()
		}
		r.Seq = r.Seq.CutStart(n)
		r.Qual = r.Qual.CutStart(n)
	}
	shiftLocations(c, s.segIdx, s.N)
	return c, true, nil
}

// CutEnd removes n bases from the end of SegmentName.
type CutEnd struct {
	segStep
	N int
}

func (s *CutEnd) Name() string { return "cut_end" }

func (s *CutEnd) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		r := &seg.Entries[i]
		n := s.N
		if n > r.Seq.Len() {
			n = r.Seq.Len()
		}
		r.Seq = r.Seq.CutEnd(n)
		r.Qual = r.Qual.CutEnd(n)
	}
	pipestep.FilterLocationsBeyondLength(c, s.segIdx)
	return c, true, nil
}

// MaxLen truncates SegmentName to at most N bases.
type MaxLen struct {
	segStep
	N int
}

func (s *MaxLen) Name() string { return "max_len" }

func (s *MaxLen) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		r := &seg.Entries[i]
		if r.Seq.Len() > s.N {
			cut := r.Seq.Len() - s.N
			r.Seq = r.Seq.CutEnd(cut)
			r.Qual = r.Qual.CutEnd(cut)
		}
	}
	pipestep.FilterLocationsBeyondLength(c, s.segIdx)
	return c, true, nil
}

// Prefix prepends a fixed byte string to SegmentName's sequence and Qual
// byte (repeated) to its quality.
type Prefix struct {
	segStep
	Seq     []byte
	QualVal byte
}

func (s *Prefix) Name() string { return "prefix" }

func (s *Prefix) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	qualPrefix := make([]byte, len(s.Seq))
	for i := range qualPrefix {
		qualPrefix[i] = s.QualVal
	}
	for i := range seg.Entries {
		r := &seg.Entries[i]
		r.Seq = r.Seq.Prefix(s.Seq, &seg.Arena)
		r.Qual = r.Qual.Prefix(qualPrefix, &seg.Arena)
	}
	growLocations(c, s.segIdx, len(s.Seq))
	return c, true, nil
}

// Postfix appends a fixed byte string to SegmentName's sequence.
type Postfix struct {
	segStep
	Seq     []byte
	QualVal byte
}

func (s *Postfix) Name() string { return "postfix" }

func (s *Postfix) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	qualPostfix := make([]byte, len(s.Seq))
	for i := range qualPostfix {
		qualPostfix[i] = s.QualVal
	}
	for i := range seg.Entries {
		r := &seg.Entries[i]
		r.Seq = r.Seq.Postfix(s.Seq, &seg.Arena)
		r.Qual = r.Qual.Postfix(qualPostfix, &seg.Arena)
	}
	// Appending to the end never invalidates an existing Location offset.
	return c, true, nil
}

// Replace overwrites SegmentName's sequence wholesale (quality synthesized
// from QualVal), dropping any Location tags that pointed into it since
// their offsets are no longer meaningful.
type Replace struct {
	segStep
	Seq     []byte
	QualVal byte
}

func (s *Replace) Name() string { return "replace" }

func (s *Replace) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	qual := make([]byte, len(s.Seq))
	for i := range qual {
		qual[i] = s.QualVal
	}
	for i := range seg.Entries {
		r := &seg.Entries[i]
		r.Seq = r.Seq.Replace(s.Seq, &seg.Arena)
		r.Qual = r.Qual.Replace(qual, &seg.Arena)
	}
	pipestep.UpdateLocationTags(c, s.segIdx, func(tagstore.Hit, int) pipestep.LocationDecision {
		return pipestep.LocationDecision{Action: pipestep.LocRemove}
	})
	return c, true, nil
}

// ReverseComplement reverse-complements SegmentName's sequence and reverses
// its quality string; Location offsets are flipped to match.
type ReverseComplement struct {
	segStep
}

func (s *ReverseComplement) Name() string { return "reverse_complement" }

func (s *ReverseComplement) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		r := &seg.Entries[i]
		r.Seq = r.Seq.ReverseComplement(seg.Arena)
		r.Qual = r.Qual.Reverse(seg.Arena)
	}
	pipestep.UpdateLocationTags(c, s.segIdx, func(hit tagstore.Hit, segLen int) pipestep.LocationDecision {
		region := *hit.Loc
		region.Start = segLen - hit.Loc.Start - hit.Loc.Len
		return pipestep.LocationDecision{Action: pipestep.LocNew, Region: region}
	})
	return c, true, nil
}

// caseOp runs an uppercase/lowercase byte transform over SegmentName.
type caseOp struct {
	segStep
	upper bool
}

func (s *caseOp) Name() string {
	if s.upper {
		return "uppercase"
	}
	return "lowercase"
}

func (s *caseOp) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		r := &seg.Entries[i]
		b := r.Seq.Bytes(seg.Arena)
		for j, ch := range b {
			if s.upper {
				if ch >= 'a' && ch <= 'z' {
					b[j] = ch - ('a' - 'A')
				}
			} else if ch >= 'A' && ch <= 'Z' {
				b[j] = ch + ('a' - 'A')
			}
		}
	}
	return c, true, nil
}

// Uppercase upper-cases SegmentName's sequence in place.
func Uppercase(segment string) *caseOp { return &caseOp{segStep: segStep{SegmentName: segment}, upper: true} }

// Lowercase lower-cases SegmentName's sequence in place.
func Lowercase(segment string) *caseOp { return &caseOp{segStep: segStep{SegmentName: segment}, upper: false} }

// Swap exchanges the contents of two segments for every read, either
// unconditionally or (if IfTag is set) only for reads where that bool tag
// is true. This is the single step resolving the Open Question in
// spec.md §9 between "Swap" and "SwapConditional": one step, an optional
// condition.
type Swap struct {
	Base
	SegmentA, SegmentB string
	IfTag              string // empty: unconditional
	idxA, idxB         int
}

func (s *Swap) Name() string { return "swap" }

func (s *Swap) ValidateSegments(input pipestep.InputInfo) error {
	s.idxA = input.SegmentIndex(s.SegmentA)
	s.idxB = input.SegmentIndex(s.SegmentB)
	if s.idxA < 0 {
		return fmt.Errorf("swap: unknown segment %q", s.SegmentA)
	}
	if s.idxB < 0 {
		return fmt.Errorf("swap: unknown segment %q", s.SegmentB)
	}
	return nil
}

func (s *Swap) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	if s.IfTag == "" {
		return nil
	}
	return []pipestep.TagUse{{Label: s.IfTag, Kinds: pipestep.TagIOKinds{tagstore.KindBool}}}
}

func (s *Swap) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	a, b := c.Segments[s.idxA], c.Segments[s.idxB]
	var cond []tagstore.Value
	if s.IfTag != "" {
		cond = c.Tags.Get(s.IfTag)
	}
	for i := range a.Entries {
		if cond != nil && !cond[i].AsBool() {
			continue
		}
		ra, rb := &a.Entries[i], &b.Entries[i]
		ra.Name, rb.Name = readbuf.SwapWith(ra.Name, rb.Name, &a.Arena, &b.Arena)
		ra.Seq, rb.Seq = readbuf.SwapWith(ra.Seq, rb.Seq, &a.Arena, &b.Arena)
		ra.Qual, rb.Qual = readbuf.SwapWith(ra.Qual, rb.Qual, &a.Arena, &b.Arena)
	}
	// Location tags re-target segment_index rather than shifting offsets
	// (spec.md §4.6).
	for _, label := range c.Tags.Labels() {
		vals := c.Tags.Get(label)
		for i, v := range vals {
			if v.Kind() != tagstore.KindLocation {
				continue
			}
			if cond != nil && !cond[i].AsBool() {
				continue
			}
			hits := v.AsHits()
			for j, hit := range hits {
				if hit.Loc == nil {
					continue
				}
				switch hit.Loc.SegmentIndex {
				case s.idxA:
					hits[j].Loc.SegmentIndex = s.idxB
				case s.idxB:
					hits[j].Loc.SegmentIndex = s.idxA
				}
			}
			c.Tags.Set(label, i, tagstore.LocationValue(hits))
		}
	}
	return c, true, nil
}

// MergeReads concatenates SegmentB's sequence onto the end of SegmentA
// (with Separator between them) and drops SegmentB from further
// consideration by leaving it present but empty; downstream steps
// referencing SegmentB still see a valid (empty) segment rather than a
// dangling index.
type MergeReads struct {
	Base
	SegmentA, SegmentB string
	Separator          []byte
	idxA, idxB         int
}

func (s *MergeReads) Name() string { return "merge_reads" }

func (s *MergeReads) ValidateSegments(input pipestep.InputInfo) error {
	s.idxA = input.SegmentIndex(s.SegmentA)
	s.idxB = input.SegmentIndex(s.SegmentB)
	if s.idxA < 0 {
		return fmt.Errorf("merge_reads: unknown segment %q", s.SegmentA)
	}
	if s.idxB < 0 {
		return fmt.Errorf("merge_reads: unknown segment %q", s.SegmentB)
	}
	return nil
}

func (s *MergeReads) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	a, b := c.Segments[s.idxA], c.Segments[s.idxB]
	sepQual := make([]byte, len(s.Separator))
	for i := range sepQual {
		sepQual[i] = '!'
	}
	for i := range a.Entries {
		ra, rb := &a.Entries[i], &b.Entries[i]
		shift := ra.Seq.Len() + len(s.Separator)
		ra.Seq = ra.Seq.Postfix(s.Separator, &a.Arena)
		ra.Seq = ra.Seq.Postfix(rb.Seq.Bytes(b.Arena), &a.Arena)
		ra.Qual = ra.Qual.Postfix(sepQual, &a.Arena)
		ra.Qual = ra.Qual.Postfix(rb.Qual.Bytes(b.Arena), &a.Arena)
		rb.Seq = rb.Seq.Replace(nil, &b.Arena)
		rb.Qual = rb.Qual.Replace(nil, &b.Arena)
		_ = shift
	}
	// Any Location hit on segment B no longer makes sense once B is
	// emptied; segment A's existing hits are unaffected since the merge
	// only appends.
	pipestep.UpdateLocationTags(c, s.idxB, func(tagstore.Hit, int) pipestep.LocationDecision {
		return pipestep.LocationDecision{Action: pipestep.LocRemove}
	})
	return c, true, nil
}
