package pipestep

import (
	"testing"

	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

func newCombinedWithLocationTag(t *testing.T, seqs []string, label string, hits []tagstore.Hits) *readbuf.BlocksCombined {
	t.Helper()
	c := readbuf.NewBlocksCombined(1, 64)
	for _, s := range seqs {
		c.Segments[0].AppendOwned([]byte("r"), []byte(s), []byte("I"))
	}
	c.Tags.Declare(label, len(seqs))
	for i, h := range hits {
		c.Tags.Set(label, i, tagstore.LocationValue(h))
	}
	return c
}

func TestFilterLocationsBeyondLengthDropsOutOfBoundsHits(t *testing.T) {
	c := newCombinedWithLocationTag(t, []string{"ACGT"}, "barcode", []tagstore.Hits{
		{
			{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}},
			{Sequence: []byte("GT"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 2, Len: 10}},
		},
	})
	FilterLocationsBeyondLength(c, 0)
	hits := c.Tags.Get("barcode")[0].AsHits()
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1 (the out-of-bounds hit dropped)", len(hits))
	}
	if hits[0].Loc.Start != 0 {
		t.Errorf("surviving hit Start = %d, want 0", hits[0].Loc.Start)
	}
}

func TestFilterLocationsBeyondLengthKeepsInBoundsHits(t *testing.T) {
	c := newCombinedWithLocationTag(t, []string{"ACGTACGT"}, "barcode", []tagstore.Hits{
		{{Sequence: []byte("ACGT"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 4}}},
	})
	FilterLocationsBeyondLength(c, 0)
	if len(c.Tags.Get("barcode")[0].AsHits()) != 1 {
		t.Error("in-bounds hit was dropped, want kept")
	}
}

func TestUpdateLocationTagsIgnoresOtherSegments(t *testing.T) {
	c := readbuf.NewBlocksCombined(2, 64)
	c.Segments[0].AppendOwned([]byte("r"), []byte("ACGT"), []byte("I"))
	c.Segments[1].AppendOwned([]byte("r"), []byte("TT"), []byte("I"))
	c.Tags.Declare("barcode", 1)
	c.Tags.Set("barcode", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("TT"), Loc: &tagstore.Location{SegmentIndex: 1, Start: 0, Len: 2}},
	}))
	// Editing segment 0's length must not disturb a hit pinned to segment 1.
	UpdateLocationTags(c, 0, func(hit tagstore.Hit, segLen int) LocationDecision {
		return LocationDecision{Action: LocRemove}
	})
	hits := c.Tags.Get("barcode")[0].AsHits()
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1 (hit pinned to segment 1 untouched by a segment-0 edit)", len(hits))
	}
}

func TestUpdateLocationTagsLocNewReplacesRegion(t *testing.T) {
	c := newCombinedWithLocationTag(t, []string{"ACGT"}, "barcode", []tagstore.Hits{
		{{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}}},
	})
	UpdateLocationTags(c, 0, func(hit tagstore.Hit, segLen int) LocationDecision {
		return LocationDecision{Action: LocNew, Region: tagstore.Location{SegmentIndex: 0, Start: 1, Len: 2}}
	})
	hits := c.Tags.Get("barcode")[0].AsHits()
	if len(hits) != 1 || hits[0].Loc.Start != 1 {
		t.Fatalf("hits = %+v, want a single hit with Start 1", hits)
	}
	if string(hits[0].Sequence) != "AC" {
		t.Errorf("LocNew must leave Sequence bytes untouched, got %q", hits[0].Sequence)
	}
}

func TestUpdateLocationTagsLocNewWithSeqReplacesBoth(t *testing.T) {
	c := newCombinedWithLocationTag(t, []string{"ACGT"}, "barcode", []tagstore.Hits{
		{{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}}},
	})
	UpdateLocationTags(c, 0, func(hit tagstore.Hit, segLen int) LocationDecision {
		return LocationDecision{
			Action: LocNewWithSeq,
			Region: tagstore.Location{SegmentIndex: 0, Start: 1, Len: 2},
			Seq:    []byte("GT"),
		}
	})
	hits := c.Tags.Get("barcode")[0].AsHits()
	if len(hits) != 1 || string(hits[0].Sequence) != "GT" {
		t.Fatalf("hits = %+v, want a single hit with Sequence GT", hits)
	}
}
