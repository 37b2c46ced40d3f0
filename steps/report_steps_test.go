package steps

import (
	"testing"

	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/tagstore"
)

func TestReportCountAccumulatesAcrossBlocks(t *testing.T) {
	s := &ReportCount{}
	s.SetReportMeta("summary", 2)
	c1 := newCombined(t, []string{"A", "A", "A"})
	s.Apply(c1, oneSegmentInput(), 1)
	c2 := newCombined(t, []string{"A", "A"})
	s.Apply(c2, oneSegmentInput(), 2)
	res, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	if res.Name != "molecule_count" || res.Data.(uint64) != 5 {
		t.Errorf("Finalize() = %+v, want molecule_count=5", res)
	}
	if res.GroupName != "summary" || res.ReportNo != 2 {
		t.Errorf("Finalize() meta = %+v, want GroupName=summary ReportNo=2", res)
	}
}

func TestReportLengthDistributionHistograms(t *testing.T) {
	s := &ReportLengthDistribution{SegmentName: "read1"}
	s.SetReportMeta("summary", 0)
	if err := s.ValidateSegments(oneSegmentInput()); err != nil {
		t.Fatalf("ValidateSegments() = %v", err)
	}
	if _, err := s.Init(oneSegmentInput(), "", "", '_', false); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	c := newCombined(t, []string{"AC", "ACGT", "AC"})
	s.Apply(c, oneSegmentInput(), 1)
	res, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	hist := res.Data.(map[string]any)
	if hist["2"].(uint64) != 2 {
		t.Errorf(`hist["2"] = %v, want 2`, hist["2"])
	}
	if hist["4"].(uint64) != 1 {
		t.Errorf(`hist["4"] = %v, want 1`, hist["4"])
	}
}

func TestReportDuplicateCountTallies(t *testing.T) {
	s := &ReportDuplicateCount{DupTag: "dup"}
	c := newCombined(t, []string{"A", "A", "A"})
	c.Tags.Declare("dup", 3)
	c.Tags.Set("dup", 0, tagstore.Bool(true))
	c.Tags.Set("dup", 1, tagstore.Bool(false))
	c.Tags.Set("dup", 2, tagstore.Bool(true))
	s.Apply(c, oneSegmentInput(), 1)
	res, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	data := res.Data.(map[string]any)
	if data["reads"].(uint64) != 3 || data["duplicates"].(uint64) != 2 {
		t.Errorf("Finalize() data = %+v, want reads=3 duplicates=2", data)
	}
}

func TestReportCountOligosCountsOverlappingOccurrences(t *testing.T) {
	s := &ReportCountOligos{SegmentName: "read1", Oligos: [][]byte{[]byte("AA"), []byte("CC")}}
	s.ValidateSegments(oneSegmentInput())
	if _, err := s.Init(oneSegmentInput(), "", "", '_', false); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	c := newCombined(t, []string{"AAAA", "CCGG"})
	s.Apply(c, oneSegmentInput(), 1)
	res, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	data := res.Data.(map[string]any)
	if data["AA"].(uint64) != 3 {
		t.Errorf(`data["AA"] = %v, want 3 (overlapping AAAA occurrences)`, data["AA"])
	}
	if data["CC"].(uint64) != 1 {
		t.Errorf(`data["CC"] = %v, want 1`, data["CC"])
	}
}

func TestReportTagHistogramCountsDistinctRenderedValues(t *testing.T) {
	s := &ReportTagHistogram{Tag: "barcode"}
	if _, err := s.Init(oneSegmentInput(), "", "", '_', false); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	c := newCombined(t, []string{"A", "A", "A"})
	c.Tags.Declare("barcode", 3)
	c.Tags.Set("barcode", 0, tagstore.String([]byte("AAAA")))
	c.Tags.Set("barcode", 1, tagstore.String([]byte("CCCC")))
	c.Tags.Set("barcode", 2, tagstore.String([]byte("AAAA")))
	s.Apply(c, oneSegmentInput(), 1)
	res, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	data := res.Data.(map[string]any)
	if data["AAAA"].(uint64) != 2 || data["CCCC"].(uint64) != 1 {
		t.Errorf("Finalize() data = %+v, want AAAA=2 CCCC=1", data)
	}
}

var _ pipestep.Step = (*ReportCount)(nil)
