package steps

import (
	"strconv"

	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

// reportBase is embedded by every report aggregator: each carries the
// report_no slot and user-facing group name the config validator assigns
// during Report meta-step expansion (spec.md §4.6/§4.7) and contributes
// one named fragment at Finalize.
type reportBase struct {
	Base
	ReportNo  int
	GroupName string
}

func (r *reportBase) finalizeAs(name string, data any) (*pipestep.FinalizeReportResult, error) {
	return &pipestep.FinalizeReportResult{GroupName: r.GroupName, Name: name, ReportNo: r.ReportNo, Data: data}, nil
}

// NeedsSerial is true for every aggregator: each mutates unlocked
// cross-block state (a running count, a histogram map, a per-position
// counts slice) in Apply, so the runtime must hand it one block at a time
// rather than run it across a parallel worker pool.
func (r *reportBase) NeedsSerial() bool { return true }

// SetReportMeta assigns the group name and report_no slot the config
// validator chose when expanding a "report" pseudo-step into this
// aggregator (pipeconfig.expandReport).
func (r *reportBase) SetReportMeta(name string, no int) {
	r.GroupName = name
	r.ReportNo = no
}

// ReportCount counts reads seen.
type ReportCount struct {
	reportBase
	count uint64
}

func (s *ReportCount) Name() string { return "_ReportCount" }

func (s *ReportCount) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	s.count += uint64(c.Len())
	return c, true, nil
}

func (s *ReportCount) Finalize() (*pipestep.FinalizeReportResult, error) {
	return s.finalizeAs("molecule_count", s.count)
}

// ReportLengthDistribution histograms SegmentName's sequence length.
type ReportLengthDistribution struct {
	reportBase
	SegmentName string
	segIdx      int
	hist        map[int]uint64
}

func (s *ReportLengthDistribution) Name() string { return "_ReportLengthDistribution" }

func (s *ReportLengthDistribution) ValidateSegments(input pipestep.InputInfo) error {
	s.segIdx = input.SegmentIndex(s.SegmentName)
	return nil
}

func (s *ReportLengthDistribution) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	s.hist = make(map[int]uint64)
	return nil, nil
}

func (s *ReportLengthDistribution) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		s.hist[seg.Entries[i].Seq.Len()]++
	}
	return c, true, nil
}

func (s *ReportLengthDistribution) Finalize() (*pipestep.FinalizeReportResult, error) {
	out := make(map[string]any, len(s.hist))
	for length, n := range s.hist {
		out[strconv.Itoa(length)] = n
	}
	return s.finalizeAs("length_distribution", out)
}

// ReportDuplicateCount counts reads where DupTag is true.
type ReportDuplicateCount struct {
	reportBase
	DupTag        string
	total, dupCnt uint64
}

func (s *ReportDuplicateCount) Name() string { return "_ReportDuplicateCount" }

func (s *ReportDuplicateCount) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.DupTag, Kinds: pipestep.TagIOKinds{tagstore.KindBool}}}
}

func (s *ReportDuplicateCount) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.DupTag)
	s.total += uint64(c.Len())
	for _, v := range vals {
		if v.AsBool() {
			s.dupCnt++
		}
	}
	return c, true, nil
}

func (s *ReportDuplicateCount) Finalize() (*pipestep.FinalizeReportResult, error) {
	return s.finalizeAs("duplicate_count", map[string]any{
		"reads": s.total, "duplicates": s.dupCnt,
	})
}

// ReportDuplicateFragmentCount is ReportDuplicateCount at fragment
// granularity (a fragment is the set of all segments for one read), kept
// as a distinct aggregator since the source DupTag for a fragment-level
// dedup step is computed across every segment rather than one.
type ReportDuplicateFragmentCount struct {
	reportBase
	DupTag          string
	total, dupCnt   uint64
}

func (s *ReportDuplicateFragmentCount) Name() string { return "_ReportDuplicateFragmentCount" }

func (s *ReportDuplicateFragmentCount) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.DupTag, Kinds: pipestep.TagIOKinds{tagstore.KindBool}}}
}

func (s *ReportDuplicateFragmentCount) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.DupTag)
	s.total += uint64(c.Len())
	for _, v := range vals {
		if v.AsBool() {
			s.dupCnt++
		}
	}
	return c, true, nil
}

func (s *ReportDuplicateFragmentCount) Finalize() (*pipestep.FinalizeReportResult, error) {
	return s.finalizeAs("duplicate_fragment_count", map[string]any{
		"fragments": s.total, "duplicates": s.dupCnt,
	})
}

// ReportBaseStatistics tabulates per-position base frequencies for
// SegmentName.
type ReportBaseStatistics struct {
	reportBase
	SegmentName string
	segIdx      int
	counts      []map[byte]uint64
}

func (s *ReportBaseStatistics) Name() string { return "_ReportBaseStatistics" }

func (s *ReportBaseStatistics) ValidateSegments(input pipestep.InputInfo) error {
	s.segIdx = input.SegmentIndex(s.SegmentName)
	return nil
}

func (s *ReportBaseStatistics) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		for pos, ch := range b {
			for len(s.counts) <= pos {
				s.counts = append(s.counts, make(map[byte]uint64))
			}
			s.counts[pos][upperByte(ch)]++
		}
	}
	return c, true, nil
}

func (s *ReportBaseStatistics) Finalize() (*pipestep.FinalizeReportResult, error) {
	positions := make([]any, len(s.counts))
	for pos, m := range s.counts {
		row := make(map[string]any, len(m))
		for base, n := range m {
			row[string(base)] = n
		}
		positions[pos] = row
	}
	return s.finalizeAs("base_statistics", map[string]any{"positions": positions})
}

// ReportCountOligos counts occurrences of each entry in Oligos within
// SegmentName across the whole run.
type ReportCountOligos struct {
	reportBase
	SegmentName string
	Oligos      [][]byte
	segIdx      int
	counts      []uint64
}

func (s *ReportCountOligos) Name() string { return "_ReportCountOligos" }

func (s *ReportCountOligos) ValidateSegments(input pipestep.InputInfo) error {
	s.segIdx = input.SegmentIndex(s.SegmentName)
	return nil
}

func (s *ReportCountOligos) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	s.counts = make([]uint64, len(s.Oligos))
	return nil, nil
}

func (s *ReportCountOligos) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		for j, oligo := range s.Oligos {
			for off := 0; off+len(oligo) <= len(b); off++ {
				if string(b[off:off+len(oligo)]) == string(oligo) {
					s.counts[j]++
				}
			}
		}
	}
	return c, true, nil
}

func (s *ReportCountOligos) Finalize() (*pipestep.FinalizeReportResult, error) {
	out := make(map[string]any, len(s.Oligos))
	for j, oligo := range s.Oligos {
		out[string(oligo)] = s.counts[j]
	}
	return s.finalizeAs("count_oligos", out)
}

// ReportTagHistogram histograms every distinct String/Numeric value a tag
// takes across the run.
type ReportTagHistogram struct {
	reportBase
	Tag  string
	hist map[string]uint64
}

func (s *ReportTagHistogram) Name() string { return "_ReportTagHistogram" }

func (s *ReportTagHistogram) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.Tag, Kinds: pipestep.TagIOKinds{
		tagstore.KindString, tagstore.KindNumeric, tagstore.KindBool,
	}}}
}

func (s *ReportTagHistogram) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	s.hist = make(map[string]uint64)
	return nil, nil
}

func (s *ReportTagHistogram) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.Tag)
	for _, v := range vals {
		s.hist[string(renderValue(v))]++
	}
	return c, true, nil
}

func (s *ReportTagHistogram) Finalize() (*pipestep.FinalizeReportResult, error) {
	out := make(map[string]any, len(s.hist))
	for k, v := range s.hist {
		out[k] = v
	}
	return s.finalizeAs("tag_histogram", out)
}
