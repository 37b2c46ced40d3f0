package steps

import (
	"testing"

	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

func oneSegmentInput() pipestep.InputInfo {
	return pipestep.InputInfo{SegmentNames: []string{"read1"}}
}

func newCombined(t *testing.T, seqs []string) *readbuf.BlocksCombined {
	t.Helper()
	c := readbuf.NewBlocksCombined(1, 64)
	for _, s := range seqs {
		c.Segments[0].AppendOwned([]byte("r"), []byte(s), []byte(qualFor(s)))
	}
	return c
}

func qualFor(seq string) string {
	q := make([]byte, len(seq))
	for i := range q {
		q[i] = 'I'
	}
	return string(q)
}

func seqAt(c *readbuf.BlocksCombined, segIdx, readIdx int) string {
	seg := c.Segments[segIdx]
	return string(seg.Entries[readIdx].Seq.Bytes(seg.Arena))
}

func TestCutStartTrimsAndShiftsLocations(t *testing.T) {
	s := &CutStart{segStep: segStep{SegmentName: "read1"}, N: 2}
	if err := s.ValidateSegments(oneSegmentInput()); err != nil {
		t.Fatalf("ValidateSegments() = %v", err)
	}
	c := newCombined(t, []string{"ACGTACGT"})
	c.Tags.Declare("hit", 1)
	c.Tags.Set("hit", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("GT"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 2, Len: 2}},
	}))
	if _, _, err := s.Apply(c, oneSegmentInput(), 1); err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if got := seqAt(c, 0, 0); got != "GTACGT" {
		t.Errorf("seq = %q, want GTACGT", got)
	}
	hits := c.Tags.Get("hit")[0].AsHits()
	if len(hits) != 1 || hits[0].Loc.Start != 0 {
		t.Fatalf("hits = %+v, want a single hit shifted to Start 0", hits)
	}
}

func TestCutStartDropsLocationHitEntirelyBeforeCut(t *testing.T) {
	s := &CutStart{segStep: segStep{SegmentName: "read1"}, N: 4}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"ACGTACGT"})
	c.Tags.Declare("hit", 1)
	c.Tags.Set("hit", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}},
	}))
	s.Apply(c, oneSegmentInput(), 1)
	if hits := c.Tags.Get("hit")[0].AsHits(); len(hits) != 0 {
		t.Errorf("hits = %+v, want empty (hit entirely within the cut region)", hits)
	}
}

func TestCutStartClampsNToSequenceLength(t *testing.T) {
	s := &CutStart{segStep: segStep{SegmentName: "read1"}, N: 100}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"ACGT"})
	s.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "" {
		t.Errorf("seq = %q, want empty", got)
	}
}

func TestCutEndFiltersOutOfBoundsLocations(t *testing.T) {
	s := &CutEnd{segStep: segStep{SegmentName: "read1"}, N: 2}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"ACGTACGT"})
	c.Tags.Declare("hit", 1)
	c.Tags.Set("hit", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("GT"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 6, Len: 2}},
	}))
	s.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "ACGTAC" {
		t.Errorf("seq = %q, want ACGTAC", got)
	}
	if hits := c.Tags.Get("hit")[0].AsHits(); len(hits) != 0 {
		t.Errorf("hits = %+v, want empty (hit now past the trimmed end)", hits)
	}
}

func TestMaxLenTruncatesOnlyLongerReads(t *testing.T) {
	s := &MaxLen{segStep: segStep{SegmentName: "read1"}, N: 3}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"AC", "ACGTACGT"})
	s.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "AC" {
		t.Errorf("short read seq = %q, want unchanged AC", got)
	}
	if got := seqAt(c, 0, 1); got != "ACG" {
		t.Errorf("long read seq = %q, want ACG", got)
	}
}

func TestPrefixGrowsLocationsForward(t *testing.T) {
	s := &Prefix{segStep: segStep{SegmentName: "read1"}, Seq: []byte("NN"), QualVal: 'I'}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"ACGT"})
	c.Tags.Declare("hit", 1)
	c.Tags.Set("hit", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}},
	}))
	s.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "NNACGT" {
		t.Fatalf("seq = %q, want NNACGT", got)
	}
	hits := c.Tags.Get("hit")[0].AsHits()
	if len(hits) != 1 || hits[0].Loc.Start != 2 {
		t.Fatalf("hits = %+v, want a single hit shifted to Start 2", hits)
	}
}

func TestReplaceDropsAllLocationsOnThatSegment(t *testing.T) {
	s := &Replace{segStep: segStep{SegmentName: "read1"}, Seq: []byte("TTTT"), QualVal: 'I'}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"ACGT"})
	c.Tags.Declare("hit", 1)
	c.Tags.Set("hit", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}},
	}))
	s.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "TTTT" {
		t.Fatalf("seq = %q, want TTTT", got)
	}
	if hits := c.Tags.Get("hit")[0].AsHits(); len(hits) != 0 {
		t.Errorf("hits = %+v, want empty after a full Replace", hits)
	}
}

func TestReverseComplementFlipsSequenceAndLocation(t *testing.T) {
	s := &ReverseComplement{segStep: segStep{SegmentName: "read1"}}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"ACGT"})
	c.Tags.Declare("hit", 1)
	c.Tags.Set("hit", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}},
	}))
	s.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "ACGT" {
		t.Fatalf("seq = %q, want ACGT (revcomp of ACGT is ACGT)", got)
	}
	hits := c.Tags.Get("hit")[0].AsHits()
	if len(hits) != 1 || hits[0].Loc.Start != 2 {
		t.Fatalf("hits = %+v, want a single hit flipped to Start 2", hits)
	}
}

func TestUppercaseLowercase(t *testing.T) {
	up := Uppercase("read1")
	up.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"acgt"})
	up.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "ACGT" {
		t.Errorf("Uppercase: seq = %q, want ACGT", got)
	}

	down := Lowercase("read1")
	down.ValidateSegments(oneSegmentInput())
	c2 := newCombined(t, []string{"ACGT"})
	down.Apply(c2, oneSegmentInput(), 1)
	if got := seqAt(c2, 0, 0); got != "acgt" {
		t.Errorf("Lowercase: seq = %q, want acgt", got)
	}
}

func twoSegmentInput() pipestep.InputInfo {
	return pipestep.InputInfo{SegmentNames: []string{"read1", "read2"}}
}

func TestSwapUnconditional(t *testing.T) {
	s := &Swap{SegmentA: "read1", SegmentB: "read2"}
	if err := s.ValidateSegments(twoSegmentInput()); err != nil {
		t.Fatalf("ValidateSegments() = %v", err)
	}
	c := readbuf.NewBlocksCombined(2, 64)
	c.Segments[0].AppendOwned([]byte("n1"), []byte("AAAA"), []byte("IIII"))
	c.Segments[1].AppendOwned([]byte("n2"), []byte("CCCC"), []byte("IIII"))
	s.Apply(c, twoSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "CCCC" {
		t.Errorf("segment 0 seq = %q, want CCCC", got)
	}
	if got := seqAt(c, 1, 0); got != "AAAA" {
		t.Errorf("segment 1 seq = %q, want AAAA", got)
	}
}

func TestSwapConditionalSkipsFalseTag(t *testing.T) {
	s := &Swap{SegmentA: "read1", SegmentB: "read2", IfTag: "do_swap"}
	s.ValidateSegments(twoSegmentInput())
	c := readbuf.NewBlocksCombined(2, 64)
	c.Segments[0].AppendOwned([]byte("n1"), []byte("AAAA"), []byte("IIII"))
	c.Segments[1].AppendOwned([]byte("n2"), []byte("CCCC"), []byte("IIII"))
	c.Tags.Declare("do_swap", 1)
	c.Tags.Set("do_swap", 0, tagstore.Bool(false))
	s.Apply(c, twoSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "AAAA" {
		t.Errorf("segment 0 seq = %q, want unchanged AAAA", got)
	}
}

func TestMergeReadsConcatenatesAndEmptiesB(t *testing.T) {
	s := &MergeReads{SegmentA: "read1", SegmentB: "read2", Separator: []byte("-")}
	s.ValidateSegments(twoSegmentInput())
	c := readbuf.NewBlocksCombined(2, 64)
	c.Segments[0].AppendOwned([]byte("n1"), []byte("AAAA"), []byte("IIII"))
	c.Segments[1].AppendOwned([]byte("n2"), []byte("CCCC"), []byte("IIII"))
	s.Apply(c, twoSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "AAAA-CCCC" {
		t.Errorf("segment 0 seq = %q, want AAAA-CCCC", got)
	}
	if got := seqAt(c, 1, 0); got != "" {
		t.Errorf("segment 1 seq = %q, want empty", got)
	}
}
