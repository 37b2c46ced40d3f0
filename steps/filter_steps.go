package steps

import (
	"fmt"
	"math/rand"

	"github.com/grailbio/fqproc/filter"
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/seedutil"
	"github.com/grailbio/fqproc/tagstore"
)

// keepAll/drop helpers used by the bool-filter family below.
func keepWhere(c *readbuf.BlocksCombined, pred func(i int) bool) {
	keep := make([]bool, c.Len())
	for i := range keep {
		keep[i] = pred(i)
	}
	c.ApplyBoolFilter(keep)
}

// Head keeps only the first N reads seen across the whole run, then
// requests the runtime stop pulling further blocks.
type Head struct {
	Base
	N     int
	count int
}

func (s *Head) Name() string { return "head" }

func (s *Head) NeedsSerial() bool { return true }

func (s *Head) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	remaining := s.N - s.count
	if remaining <= 0 {
		c.Resize(0)
		return c, false, nil
	}
	if c.Len() > remaining {
		c.Resize(remaining)
	}
	s.count += c.Len()
	return c, s.count < s.N, nil
}

// Skip discards the first N reads seen across the whole run.
type Skip struct {
	Base
	N     int
	count int
}

func (s *Skip) Name() string { return "skip" }

func (s *Skip) NeedsSerial() bool { return true }

func (s *Skip) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	toDrop := s.N - s.count
	if toDrop <= 0 {
		return c, true, nil
	}
	if toDrop >= c.Len() {
		s.count += c.Len()
		c.Resize(0)
		return c, true, nil
	}
	c.Drain(0, toDrop)
	s.count = s.N
	return c, true, nil
}

// Sample keeps each read independently with probability P, seeded
// deterministically per spec.md's determinism contract.
type Sample struct {
	Base
	P    float64
	Seed uint64
	rng  *rand.Rand
}

func (s *Sample) Name() string { return "sample" }

func (s *Sample) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	s.rng = seedutil.NewSeeded(s.Seed, "sample")
	return nil, nil
}

func (s *Sample) NeedsSerial() bool { return true }

func (s *Sample) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	keepWhere(c, func(int) bool { return s.rng.Float64() < s.P })
	return c, true, nil
}

// ByBoolTag keeps reads where Tag is true (or false, if Negate).
type ByBoolTag struct {
	Base
	Tag    string
	Negate bool
}

func (s *ByBoolTag) Name() string { return "by_bool_tag" }

func (s *ByBoolTag) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.Tag, Kinds: pipestep.TagIOKinds{tagstore.KindBool}}}
}

func (s *ByBoolTag) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.Tag)
	keepWhere(c, func(i int) bool {
		v := vals[i].AsBool()
		if s.Negate {
			return !v
		}
		return v
	})
	return c, true, nil
}

// NumericCompare is the comparison ByNumericTag applies.
type NumericCompare int

const (
	CompareLess NumericCompare = iota
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareEqual
)

// ByNumericTag keeps reads whose numeric Tag value compares true against
// Threshold under Compare.
type ByNumericTag struct {
	Base
	Tag       string
	Compare   NumericCompare
	Threshold float64
}

func (s *ByNumericTag) Name() string { return "by_numeric_tag" }

func (s *ByNumericTag) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.Tag, Kinds: pipestep.TagIOKinds{tagstore.KindNumeric}}}
}

func (s *ByNumericTag) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.Tag)
	keepWhere(c, func(i int) bool {
		v := vals[i].AsNumeric()
		switch s.Compare {
		case CompareLess:
			return v < s.Threshold
		case CompareLessEqual:
			return v <= s.Threshold
		case CompareGreater:
			return v > s.Threshold
		case CompareGreaterEqual:
			return v >= s.Threshold
		default:
			return v == s.Threshold
		}
	})
	return c, true, nil
}

// totalLen sums every segment's sequence length for read i.
func totalLen(c *readbuf.BlocksCombined, i int) int {
	n := 0
	for _, seg := range c.Segments {
		n += seg.Entries[i].Seq.Len()
	}
	return n
}

// MinTotalLen keeps reads whose combined segment length is at least N.
type MinTotalLen struct {
	Base
	N int
}

func (s *MinTotalLen) Name() string { return "min_total_len" }

func (s *MinTotalLen) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	keepWhere(c, func(i int) bool { return totalLen(c, i) >= s.N })
	return c, true, nil
}

// MaxTotalLen keeps reads whose combined segment length is at most N.
type MaxTotalLen struct {
	Base
	N int
}

func (s *MaxTotalLen) Name() string { return "max_total_len" }

func (s *MaxTotalLen) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	keepWhere(c, func(i int) bool { return totalLen(c, i) <= s.N })
	return c, true, nil
}

// TooManyN drops reads where SegmentName's N-base fraction exceeds MaxFrac.
type TooManyN struct {
	segStep
	MaxFrac float64
}

func (s *TooManyN) Name() string { return "too_many_n" }

func (s *TooManyN) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	keepWhere(c, func(i int) bool {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		if len(b) == 0 {
			return true
		}
		n := 0
		for _, ch := range b {
			if ch == 'N' || ch == 'n' {
				n++
			}
		}
		return float64(n)/float64(len(b)) <= s.MaxFrac
	})
	return c, true, nil
}

// QualifiedBases keeps reads where at least MinFrac of SegmentName's bases
// have a Phred quality >= MinQual (Qual byte encoded with Offset, 33 for
// Sanger/Illumina 1.8+).
type QualifiedBases struct {
	segStep
	MinQual int
	MinFrac float64
	Offset  int
}

func (s *QualifiedBases) Name() string { return "qualified_bases" }

func (s *QualifiedBases) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	offset := s.Offset
	if offset == 0 {
		offset = 33
	}
	seg := c.Segments[s.segIdx]
	keepWhere(c, func(i int) bool {
		q := seg.Entries[i].Qual.Bytes(seg.Arena)
		if len(q) == 0 {
			return true
		}
		ok := 0
		for _, ch := range q {
			if int(ch)-offset >= s.MinQual {
				ok++
			}
		}
		return float64(ok)/float64(len(q)) >= s.MinFrac
	})
	return c, true, nil
}

// MeanQuality keeps reads where SegmentName's mean Phred quality is at
// least MinMean.
type MeanQuality struct {
	segStep
	MinMean float64
	Offset  int
}

func (s *MeanQuality) Name() string { return "mean_quality" }

func (s *MeanQuality) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	offset := s.Offset
	if offset == 0 {
		offset = 33
	}
	seg := c.Segments[s.segIdx]
	keepWhere(c, func(i int) bool {
		q := seg.Entries[i].Qual.Bytes(seg.Arena)
		if len(q) == 0 {
			return true
		}
		sum := 0
		for _, ch := range q {
			sum += int(ch) - offset
		}
		return float64(sum)/float64(len(q)) >= s.MinMean
	})
	return c, true, nil
}

// Duplicates filters fragments (one or more whole segments, concatenated)
// that have already been seen, backed by package filter's exact/approximate
// membership structures (C4).
type Duplicates struct {
	Base
	Segments     []string
	FPRate       float64
	Capacity     uint
	Seed         uint64
	segIdx       []int
	f            filter.Filter
}

func (s *Duplicates) Name() string { return "duplicates" }

func (s *Duplicates) NeedsSerial() bool { return true }

func (s *Duplicates) ValidateSegments(input pipestep.InputInfo) error {
	s.segIdx = make([]int, len(s.Segments))
	for i, name := range s.Segments {
		idx := input.SegmentIndex(name)
		if idx < 0 {
			return fmt.Errorf("duplicates: unknown segment %q", name)
		}
		s.segIdx[i] = idx
	}
	return nil
}

func (s *Duplicates) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	s.f = filter.New(s.Seed, s.Capacity, s.FPRate)
	return nil, nil
}

func (s *Duplicates) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	keep := make([]bool, c.Len())
	for i := range keep {
		entry := make(filter.Entry, len(s.segIdx))
		for j, idx := range s.segIdx {
			seg := c.Segments[idx]
			entry[j] = seg.Entries[i].Seq.Bytes(seg.Arena)
		}
		keep[i] = !s.f.ContainsOrInsert(entry)
	}
	c.ApplyBoolFilter(keep)
	return c, true, nil
}
