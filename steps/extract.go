package steps

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/grailbio/fqproc/iupac"
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

// declStep is embedded by extract steps that declare exactly one tag,
// alongside segStep (which supplies the Base defaults — declStep itself
// must not embed Base too, or Base's methods become ambiguous promotions).
type declStep struct {
	TagLabel string
	Kind     tagstore.Kind
}

func (s *declStep) DeclaresTag() (pipestep.TagDecl, bool) {
	return pipestep.TagDecl{Label: s.TagLabel, Kind: s.Kind}, true
}

// IUPACMatch searches SegmentName for the first occurrence of Pattern
// (an IUPAC code string), allowing MaxMismatch mismatches, and records the
// hit (or a Missing-equivalent empty Hits) as a Location tag.
type IUPACMatch struct {
	segStep
	declStep
	Pattern     []byte
	MaxMismatch int
}

func (s *IUPACMatch) Name() string { return "iupac" }

func (s *IUPACMatch) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}

func (s *IUPACMatch) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *IUPACMatch) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		var hits tagstore.Hits
		if off, mm, ok := iupac.FindFirst(s.Pattern, b, s.MaxMismatch); ok {
			_ = mm
			hits = tagstore.Hits{{
				Sequence: b[off : off+len(s.Pattern)],
				Loc:      &tagstore.Location{SegmentIndex: s.segIdx, Start: off, Len: len(s.Pattern)},
			}}
		}
		vals[i] = tagstore.LocationValue(hits)
	}
	return c, true, nil
}

// IUPACSuffix matches Pattern anchored against the tail of SegmentName.
type IUPACSuffix struct {
	segStep
	declStep
	Pattern     []byte
	MaxMismatch int
}

func (s *IUPACSuffix) Name() string { return "iupac_suffix" }

func (s *IUPACSuffix) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}

func (s *IUPACSuffix) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *IUPACSuffix) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		off := len(b) - len(s.Pattern)
		var hits tagstore.Hits
		if ok, mm := iupac.MatchAt(s.Pattern, b, off, s.MaxMismatch); ok {
			_ = mm
			hits = tagstore.Hits{{
				Sequence: b[off:],
				Loc:      &tagstore.Location{SegmentIndex: s.segIdx, Start: off, Len: len(s.Pattern)},
			}}
		}
		vals[i] = tagstore.LocationValue(hits)
	}
	return c, true, nil
}

// IUPACWithIndel records the placement iupac.FindWithIndel reports: the
// lowest-mismatch substitution-only placement of Pattern. Insertions and
// deletions are not matched, and the hit always spans len(Pattern) bases.
type IUPACWithIndel struct {
	segStep
	declStep
	Pattern     []byte
	MaxMismatch int
}

func (s *IUPACWithIndel) Name() string { return "iupac_with_indel" }

func (s *IUPACWithIndel) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}

func (s *IUPACWithIndel) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *IUPACWithIndel) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		var hits tagstore.Hits
		if off, _, ok := iupac.FindWithIndel(s.Pattern, b, s.MaxMismatch); ok {
			hits = tagstore.Hits{{
				Sequence: b[off : off+len(s.Pattern)],
				Loc:      &tagstore.Location{SegmentIndex: s.segIdx, Start: off, Len: len(s.Pattern)},
			}}
		}
		vals[i] = tagstore.LocationValue(hits)
	}
	return c, true, nil
}

// Anchor locates a literal (non-IUPAC) anchor sequence via a Hamming-distance
// sliding window, recording the hit as a Location tag.
type Anchor struct {
	segStep
	declStep
	Seq         []byte
	MaxMismatch int
}

func (s *Anchor) Name() string { return "anchor" }

func (s *Anchor) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}

func (s *Anchor) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *Anchor) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	n := len(s.Seq)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		var hits tagstore.Hits
		for off := 0; off+n <= len(b); off++ {
			if d := iupac.Hamming(s.Seq, b[off:off+n]); d >= 0 && d <= s.MaxMismatch {
				hits = tagstore.Hits{{
					Sequence: b[off : off+n],
					Loc:      &tagstore.Location{SegmentIndex: s.segIdx, Start: off, Len: n},
				}}
				break
			}
		}
		vals[i] = tagstore.LocationValue(hits)
	}
	return c, true, nil
}

// Regions extracts a fixed [Start, Start+Len) window of SegmentName into a
// Location tag, independent of content.
type Regions struct {
	segStep
	declStep
	Start, Len int
}

func (s *Regions) Name() string { return "regions" }

func (s *Regions) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}

func (s *Regions) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *Regions) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		var hits tagstore.Hits
		end := s.Start + s.Len
		if s.Start >= 0 && end <= len(b) {
			hits = tagstore.Hits{{
				Sequence: b[s.Start:end],
				Loc:      &tagstore.Location{SegmentIndex: s.segIdx, Start: s.Start, Len: s.Len},
			}}
		}
		vals[i] = tagstore.LocationValue(hits)
	}
	return c, true, nil
}

// Regex finds the first match of Pattern (compiled once at Init) within
// SegmentName, recording it as a Location tag.
type Regex struct {
	segStep
	declStep
	Pattern string
	re      *regexp.Regexp
}

func (s *Regex) Name() string { return "regex" }

func (s *Regex) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}

func (s *Regex) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *Regex) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return nil, fmt.Errorf("regex: %w", err)
	}
	s.re = re
	return nil, nil
}

func (s *Regex) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		var hits tagstore.Hits
		if loc := s.re.FindIndex(b); loc != nil {
			hits = tagstore.Hits{{
				Sequence: b[loc[0]:loc[1]],
				Loc:      &tagstore.Location{SegmentIndex: s.segIdx, Start: loc[0], Len: loc[1] - loc[0]},
			}}
		}
		vals[i] = tagstore.LocationValue(hits)
	}
	return c, true, nil
}

// LongestPolyX records the length of the longest homopolymer run of Base in
// SegmentName (any base, if Base == 0) as a Numeric tag.
type LongestPolyX struct {
	segStep
	declStep
	Base byte
}

func (s *LongestPolyX) Name() string { return "longest_poly_x" }

func (s *LongestPolyX) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}

func (s *LongestPolyX) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *LongestPolyX) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		best, run := 0, 0
		for j := 0; j < len(b); j++ {
			if s.Base != 0 && upperByte(b[j]) != upperByte(s.Base) {
				run = 0
				continue
			}
			if j > 0 && s.Base == 0 && upperByte(b[j]) != upperByte(b[j-1]) {
				run = 0
			}
			run++
			if run > best {
				best = run
			}
		}
		vals[i] = tagstore.Numeric(float64(best))
	}
	return c, true, nil
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// Length records SegmentName's byte length as a Numeric tag.
type Length struct {
	segStep
	declStep
}

func (s *Length) Name() string { return "length" }

func (s *Length) ValidateSegments(input pipestep.InputInfo) error { return s.segStep.ValidateSegments(input) }
func (s *Length) DeclaresTag() (pipestep.TagDecl, bool)           { return s.declStep.DeclaresTag() }

func (s *Length) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		vals[i] = tagstore.Numeric(float64(seg.Entries[i].Seq.Len()))
	}
	return c, true, nil
}

// GCContent records the GC fraction of SegmentName as a Numeric tag.
type GCContent struct {
	segStep
	declStep
}

func (s *GCContent) Name() string { return "gc_content" }

func (s *GCContent) ValidateSegments(input pipestep.InputInfo) error { return s.segStep.ValidateSegments(input) }
func (s *GCContent) DeclaresTag() (pipestep.TagDecl, bool)           { return s.declStep.DeclaresTag() }

func (s *GCContent) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		if len(b) == 0 {
			vals[i] = tagstore.Numeric(0)
			continue
		}
		gc := 0
		for _, ch := range b {
			if u := upperByte(ch); u == 'G' || u == 'C' {
				gc++
			}
		}
		vals[i] = tagstore.Numeric(float64(gc) / float64(len(b)))
	}
	return c, true, nil
}

// NCount records the number of N bases in SegmentName as a Numeric tag.
type NCount struct {
	segStep
	declStep
}

func (s *NCount) Name() string { return "n_count" }

func (s *NCount) ValidateSegments(input pipestep.InputInfo) error { return s.segStep.ValidateSegments(input) }
func (s *NCount) DeclaresTag() (pipestep.TagDecl, bool)           { return s.declStep.DeclaresTag() }

func (s *NCount) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		n := 0
		for _, ch := range b {
			if upperByte(ch) == 'N' {
				n++
			}
		}
		vals[i] = tagstore.Numeric(float64(n))
	}
	return c, true, nil
}

// BaseContent records the fraction of Base within SegmentName as a Numeric
// tag.
type BaseContent struct {
	segStep
	declStep
	Base byte
}

func (s *BaseContent) Name() string { return "base_content" }

func (s *BaseContent) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}
func (s *BaseContent) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *BaseContent) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	want := upperByte(s.Base)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		if len(b) == 0 {
			vals[i] = tagstore.Numeric(0)
			continue
		}
		n := 0
		for _, ch := range b {
			if upperByte(ch) == want {
				n++
			}
		}
		vals[i] = tagstore.Numeric(float64(n) / float64(len(b)))
	}
	return c, true, nil
}

// ExpectedError records the expected number of sequencing errors in
// SegmentName (sum of per-base Phred error probabilities) as a Numeric tag.
type ExpectedError struct {
	segStep
	declStep
	Offset int
}

func (s *ExpectedError) Name() string { return "expected_error" }

func (s *ExpectedError) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}
func (s *ExpectedError) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *ExpectedError) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	offset := s.Offset
	if offset == 0 {
		offset = 33
	}
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		q := seg.Entries[i].Qual.Bytes(seg.Arena)
		sum := 0.0
		for _, ch := range q {
			qual := float64(int(ch) - offset)
			sum += math.Pow(10, -qual/10)
		}
		vals[i] = tagstore.Numeric(sum)
	}
	return c, true, nil
}

// Complexity records the Shannon entropy (bits, base 2, normalized to
// [0,1] over the 4-letter alphabet) of SegmentName as a Numeric tag: a
// low-complexity run of a single base scores near 0, a balanced mix of
// all four bases scores near 1.
type Complexity struct {
	segStep
	declStep
}

func (s *Complexity) Name() string { return "complexity" }

func (s *Complexity) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}
func (s *Complexity) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *Complexity) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		if len(b) == 0 {
			vals[i] = tagstore.Numeric(0)
			continue
		}
		var counts [256]int
		for _, ch := range b {
			counts[upperByte(ch)]++
		}
		entropy := 0.0
		for _, base := range []byte{'A', 'C', 'G', 'T'} {
			if counts[base] == 0 {
				continue
			}
			p := float64(counts[base]) / float64(len(b))
			entropy -= p * math.Log2(p)
		}
		vals[i] = tagstore.Numeric(entropy / 2) // max entropy over 4 symbols is 2 bits
	}
	return c, true, nil
}

// Kmers records the number of occurrences (with overlap) of any member of
// Set within SegmentName as a Numeric tag.
type Kmers struct {
	segStep
	declStep
	Set [][]byte
}

func (s *Kmers) Name() string { return "kmers" }

func (s *Kmers) ValidateSegments(input pipestep.InputInfo) error { return s.segStep.ValidateSegments(input) }
func (s *Kmers) DeclaresTag() (pipestep.TagDecl, bool)           { return s.declStep.DeclaresTag() }

func (s *Kmers) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		count := 0
		for _, k := range s.Set {
			for off := 0; off+len(k) <= len(b); off++ {
				if iupac.Hamming(k, b[off:off+len(k)]) == 0 {
					count++
				}
			}
		}
		vals[i] = tagstore.Numeric(float64(count))
	}
	return c, true, nil
}

// EvalExpression declares TagLabel by compiling Expression once (at Init)
// with github.com/expr-lang/expr and evaluating it per read against an env
// built from len_<segment> virtuals and every live tag's current value.
type EvalExpression struct {
	Base
	Expression string
	TagLabel   string
	Kind       tagstore.Kind
	program    *vm.Program
}

func (s *EvalExpression) Name() string { return "eval_expression" }

func (s *EvalExpression) DeclaresTag() (pipestep.TagDecl, bool) {
	return pipestep.TagDecl{Label: s.TagLabel, Kind: s.Kind}, true
}

func (s *EvalExpression) MustSeeAllTags() bool { return true }

func (s *EvalExpression) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	p, err := expr.Compile(s.Expression)
	if err != nil {
		return nil, fmt.Errorf("eval_expression: %w", err)
	}
	s.program = p
	return nil, nil
}

func (s *EvalExpression) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.TagLabel)
	labels := c.Tags.Labels()
	for i := range vals {
		env := make(map[string]any, len(labels)+len(c.Segments))
		for segIdx, name := range input.SegmentNames {
			env["len_"+name] = c.Segments[segIdx].Entries[i].Seq.Len()
		}
		for _, label := range labels {
			v := c.Tags.Get(label)[i]
			switch v.Kind() {
			case tagstore.KindNumeric:
				env[label] = v.AsNumeric()
			case tagstore.KindBool:
				env[label] = v.AsBool()
			case tagstore.KindString:
				env[label] = string(v.AsString())
			default:
				env[label] = nil
			}
		}
		out, err := expr.Run(s.program, env)
		if err != nil {
			return nil, false, fmt.Errorf("eval_expression: %w", err)
		}
		switch s.Kind {
		case tagstore.KindBool:
			b, _ := out.(bool)
			vals[i] = tagstore.Bool(b)
		case tagstore.KindString:
			str, _ := out.(string)
			vals[i] = tagstore.String([]byte(str))
		default:
			f, _ := toFloat(out)
			vals[i] = tagstore.Numeric(f)
		}
	}
	return c, true, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// RegionsToLength consumes a Location tag and declares a Numeric tag equal
// to the summed length of its hits (0 if the tag has no hits for a read).
type RegionsToLength struct {
	Base
	SourceTag string
	TagLabel  string
}

func (s *RegionsToLength) Name() string { return "regions_to_length" }

func (s *RegionsToLength) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.SourceTag, Kinds: pipestep.TagIOKinds{tagstore.KindLocation}}}
}

func (s *RegionsToLength) DeclaresTag() (pipestep.TagDecl, bool) {
	return pipestep.TagDecl{Label: s.TagLabel, Kind: tagstore.KindNumeric}, true
}

func (s *RegionsToLength) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	src := c.Tags.Get(s.SourceTag)
	out := c.Tags.Get(s.TagLabel)
	for i, v := range src {
		total := 0
		for _, hit := range v.AsHits() {
			if hit.Loc != nil {
				total += hit.Loc.Len
			} else {
				total += len(hit.Sequence)
			}
		}
		out[i] = tagstore.Numeric(float64(total))
	}
	return c, true, nil
}

// ConcatTags declares TagLabel as the String concatenation of every
// SourceTags value (Separator between them), each rendered as text.
type ConcatTags struct {
	Base
	SourceTags []string
	Separator  []byte
	TagLabel   string
}

func (s *ConcatTags) Name() string { return "concat_tags" }

func (s *ConcatTags) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	uses := make([]pipestep.TagUse, len(s.SourceTags))
	for i, label := range s.SourceTags {
		uses[i] = pipestep.TagUse{Label: label, Kinds: pipestep.TagIOKinds{
			tagstore.KindString, tagstore.KindNumeric, tagstore.KindBool,
		}}
	}
	return uses
}

func (s *ConcatTags) DeclaresTag() (pipestep.TagDecl, bool) {
	return pipestep.TagDecl{Label: s.TagLabel, Kind: tagstore.KindString}, true
}

func (s *ConcatTags) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	srcs := make([][]tagstore.Value, len(s.SourceTags))
	for i, label := range s.SourceTags {
		srcs[i] = c.Tags.Get(label)
	}
	out := c.Tags.Get(s.TagLabel)
	for i := range out {
		var buf []byte
		for j, vals := range srcs {
			if j > 0 {
				buf = append(buf, s.Separator...)
			}
			buf = append(buf, renderValue(vals[i])...)
		}
		out[i] = tagstore.String(buf)
	}
	return c, true, nil
}

func renderValue(v tagstore.Value) []byte {
	switch v.Kind() {
	case tagstore.KindNumeric:
		return []byte(fmt.Sprintf("%g", v.AsNumeric()))
	case tagstore.KindBool:
		return []byte(fmt.Sprintf("%t", v.AsBool()))
	case tagstore.KindString:
		return v.AsString()
	default:
		return nil
	}
}

// OtherFile declares a Bool tag recording whether SegmentName's sequence
// appears (exact byte match) in a newline-delimited sequence list loaded
// from Path at Init.
type OtherFile struct {
	segStep
	declStep
	Path string
	set  map[string]struct{}
}

func (s *OtherFile) Name() string { return "other_file" }

func (s *OtherFile) ValidateSegments(input pipestep.InputInfo) error {
	return s.segStep.ValidateSegments(input)
}
func (s *OtherFile) DeclaresTag() (pipestep.TagDecl, bool) { return s.declStep.DeclaresTag() }

func (s *OtherFile) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	set, err := loadLineSet(s.Path)
	if err != nil {
		return nil, err
	}
	s.set = set
	return nil, nil
}

func (s *OtherFile) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		_, ok := s.set[string(b)]
		vals[i] = tagstore.Bool(ok)
	}
	return c, true, nil
}

// OtherFileByName is OtherFile keyed by read name rather than sequence.
type OtherFileByName struct {
	Base
	TagLabel string
	Kind     tagstore.Kind
	Path     string
	set      map[string]struct{}
}

func (s *OtherFileByName) Name() string { return "other_file_by_name" }

func (s *OtherFileByName) DeclaresTag() (pipestep.TagDecl, bool) {
	return pipestep.TagDecl{Label: s.TagLabel, Kind: tagstore.KindBool}, true
}

func (s *OtherFileByName) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	set, err := loadLineSet(s.Path)
	if err != nil {
		return nil, err
	}
	s.set = set
	return nil, nil
}

func (s *OtherFileByName) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[0]
	vals := c.Tags.Get(s.TagLabel)
	for i := range seg.Entries {
		name := seg.Entries[i].Name.Bytes(seg.Arena)
		_, ok := s.set[string(name)]
		vals[i] = tagstore.Bool(ok)
	}
	return c, true, nil
}

func loadLineSet(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	defer f.Close()
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			set[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return set, nil
}
