package steps

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/fqproc/bamio"
	"github.com/grailbio/fqproc/compressio"
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/fastaio"
	"github.com/grailbio/fqproc/fastqio"
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

// recordWriter is the minimal sink contract every codec's Writer satisfies;
// write_reads dispatches to one of fastqio/fastaio/bamio through it.
type recordWriter interface {
	WriteRead(name, seq, qual []byte) error
}

// OutputFormat selects which codec write_reads and store_tag_in_fastq use.
type OutputFormat int

const (
	FormatFastq OutputFormat = iota
	FormatFasta
	FormatBAM
)

// StoreTagInSequence appends Tag's rendered value onto SegmentName's
// sequence (quality padded with QualVal), visible to any step running
// after this one and to writers.
type StoreTagInSequence struct {
	segStep
	Tag     string
	QualVal byte
}

func (s *StoreTagInSequence) Name() string { return "store_tag_in_sequence" }

func (s *StoreTagInSequence) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.Tag, Kinds: pipestep.TagIOKinds{
		tagstore.KindString, tagstore.KindNumeric, tagstore.KindBool,
	}}}
}

func (s *StoreTagInSequence) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	seg := c.Segments[s.segIdx]
	vals := c.Tags.Get(s.Tag)
	for i := range seg.Entries {
		r := &seg.Entries[i]
		rendered := renderValue(vals[i])
		qual := make([]byte, len(rendered))
		for j := range qual {
			qual[j] = s.QualVal
		}
		r.Seq = r.Seq.Postfix(rendered, &seg.Arena)
		r.Qual = r.Qual.Postfix(qual, &seg.Arena)
	}
	return c, true, nil
}

// nameAppend is shared by the comment-family steps: our reduced Read model
// has no separate comment field, so "comment" is appended to Name behind a
// space, matching the common FASTQ convention of "@name comment".
func nameAppend(seg *readbuf.Block, i int, suffix []byte) {
	r := &seg.Entries[i]
	withSpace := make([]byte, 0, len(suffix)+1)
	withSpace = append(withSpace, ' ')
	withSpace = append(withSpace, suffix...)
	r.Name = r.Name.Postfix(withSpace, &seg.Arena)
}

// StoreTagInComment appends Tag's rendered value to every segment's read
// name (see nameAppend).
type StoreTagInComment struct {
	Base
	Tag string
}

func (s *StoreTagInComment) Name() string { return "store_tag_in_comment" }

func (s *StoreTagInComment) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.Tag, Kinds: pipestep.TagIOKinds{
		tagstore.KindString, tagstore.KindNumeric, tagstore.KindBool,
	}}}
}

func (s *StoreTagInComment) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.Tag)
	for _, seg := range c.Segments {
		for i := range seg.Entries {
			nameAppend(seg, i, renderValue(vals[i]))
		}
	}
	return c, true, nil
}

// StoreTagLocationInComment appends "Tag=start-end" (or "Tag=" if no hit)
// for a Location tag to every segment's read name.
type StoreTagLocationInComment struct {
	Base
	Tag string
}

func (s *StoreTagLocationInComment) Name() string { return "store_tag_location_in_comment" }

func (s *StoreTagLocationInComment) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.Tag, Kinds: pipestep.TagIOKinds{tagstore.KindLocation}}}
}

func (s *StoreTagLocationInComment) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.Tag)
	for _, seg := range c.Segments {
		for i := range seg.Entries {
			suffix := s.Tag + "="
			if hits := vals[i].AsHits(); len(hits) > 0 && hits[0].Loc != nil {
				suffix += fmt.Sprintf("%d-%d", hits[0].Loc.Start, hits[0].Loc.Start+hits[0].Loc.Len)
			}
			nameAppend(seg, i, []byte(suffix))
		}
	}
	return c, true, nil
}

// StoreTagsInTable is a terminal reporter that writes one TSV row per read
// (ReadName plus every live tag, in declaration order) to Path, and forgets
// every tag it has rendered (it must see every live tag, per
// MustSeeAllTags).
type StoreTagsInTable struct {
	Base
	Path   string
	header bool
	f      *os.File
	w      *bufio.Writer
}

func (s *StoreTagsInTable) Name() string { return "store_tags_in_table" }

func (s *StoreTagsInTable) MustSeeAllTags() bool { return true }

func (s *StoreTagsInTable) RemovesAllTags() bool { return true }

func (s *StoreTagsInTable) NeedsSerial() bool { return true }

func (s *StoreTagsInTable) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	f, err := openForWrite(filepath.Join(outputDir, s.Path), allowOverwrite)
	if err != nil {
		return nil, err
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	return nil, nil
}

func (s *StoreTagsInTable) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	labels := c.Tags.Labels()
	if !s.header {
		fmt.Fprint(s.w, "ReadName")
		for _, l := range labels {
			fmt.Fprintf(s.w, "\t%s", l)
		}
		fmt.Fprint(s.w, "\n")
		s.header = true
	}
	seg := c.Segments[0]
	for i := range seg.Entries {
		fmt.Fprint(s.w, string(seg.Entries[i].Name.Bytes(seg.Arena)))
		for _, l := range labels {
			fmt.Fprintf(s.w, "\t%s", renderValue(c.Tags.Get(l)[i]))
		}
		fmt.Fprint(s.w, "\n")
	}
	c.Tags.ForgetAll()
	return c, true, nil
}

func (s *StoreTagsInTable) Finalize() (*pipestep.FinalizeReportResult, error) {
	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			return nil, err
		}
	}
	if s.f != nil {
		return nil, s.f.Close()
	}
	return nil, nil
}

// StoreTagInFastq is a terminal sink writing every segment's reads, with
// Tag's rendered value appended to the comment, to one FASTQ file per
// segment under outputDir (this step predates write_reads in the pipeline
// and does not participate in demux fan-out).
type StoreTagInFastq struct {
	Base
	Tag       string
	OutPrefix string
	writers   []*fastqio.Writer
	closers   []func() error
}

func (s *StoreTagInFastq) Name() string { return "store_tag_in_fastq" }

func (s *StoreTagInFastq) NeedsSerial() bool { return true }

func (s *StoreTagInFastq) UsesTags(live map[string]tagstore.Kind) []pipestep.TagUse {
	return []pipestep.TagUse{{Label: s.Tag, Kinds: pipestep.TagIOKinds{
		tagstore.KindString, tagstore.KindNumeric, tagstore.KindBool,
	}}}
}

func (s *StoreTagInFastq) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	s.writers = make([]*fastqio.Writer, len(input.SegmentNames))
	s.closers = make([]func() error, len(input.SegmentNames))
	for i, name := range input.SegmentNames {
		path := filepath.Join(outputDir, fmt.Sprintf("%s.%s.fastq.gz", s.OutPrefix, name))
		f, err := openForWrite(path, allowOverwrite)
		if err != nil {
			return nil, err
		}
		cw, closeFn, err := compressio.OpenWriter(f, compressio.CodecGzip, 0)
		if err != nil {
			return nil, err
		}
		s.writers[i] = fastqio.NewWriter(cw)
		fClose := f.Close
		s.closers[i] = func() error {
			if err := closeFn(); err != nil {
				return err
			}
			return fClose()
		}
	}
	return nil, nil
}

func (s *StoreTagInFastq) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	vals := c.Tags.Get(s.Tag)
	for idx, seg := range c.Segments {
		w := s.writers[idx]
		for i := range seg.Entries {
			name := append(append([]byte(nil), seg.Entries[i].Name.Bytes(seg.Arena)...), ' ')
			name = append(name, renderValue(vals[i])...)
			if err := w.WriteRead(name, seg.Entries[i].Seq.Bytes(seg.Arena), seg.Entries[i].Qual.Bytes(seg.Arena)); err != nil {
				return nil, false, err
			}
		}
	}
	return c, true, nil
}

func (s *StoreTagInFastq) Finalize() (*pipestep.FinalizeReportResult, error) {
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// bucketSinks holds one recordWriter per output bucket (name -> writer)
// plus the always-present unmatched bucket, for one segment.
type bucketSinks struct {
	unmatched recordWriter
	named     map[string]recordWriter
	closers   []func() error
}

// WriteReads is the terminal sink step: it writes every segment's reads to
// Format-encoded files under outputDir, one file per (segment, demux
// bucket) when Router is non-nil, or one file per segment otherwise.
type WriteReads struct {
	Base
	OutPrefix         string
	Format            OutputFormat
	Router            *demux.Router
	Level             int
	sinksPerSegment   []*bucketSinks
}

func (s *WriteReads) Name() string { return "write_reads" }

func (s *WriteReads) RemovesAllTags() bool { return false }

func (s *WriteReads) NeedsSerial() bool { return true }

func (s *WriteReads) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	s.sinksPerSegment = make([]*bucketSinks, len(input.SegmentNames))
	buckets := []string{}
	if s.Router != nil {
		buckets = s.Router.Names()
	}
	for segIdx, segName := range input.SegmentNames {
		bs := &bucketSinks{named: make(map[string]recordWriter)}
		mk := func(suffix string) (recordWriter, error) {
			path := filepath.Join(outputDir, s.outputPath(segName, suffix))
			return s.openSink(path, allowOverwrite, bs)
		}
		w, err := mk("unmatched")
		if err != nil {
			return nil, err
		}
		bs.unmatched = w
		for _, b := range buckets {
			w, err := mk(b)
			if err != nil {
				return nil, err
			}
			bs.named[b] = w
		}
		s.sinksPerSegment[segIdx] = bs
	}
	return nil, nil
}

func (s *WriteReads) outputPath(segName, bucket string) string {
	ext := "fastq.gz"
	switch s.Format {
	case FormatFasta:
		ext = "fasta.gz"
	case FormatBAM:
		ext = "bam"
	}
	return fmt.Sprintf("%s.%s.%s.%s", s.OutPrefix, bucket, segName, ext)
}

func (s *WriteReads) openSink(path string, allowOverwrite bool, bs *bucketSinks) (recordWriter, error) {
	f, err := openForWrite(path, allowOverwrite)
	if err != nil {
		return nil, err
	}
	switch s.Format {
	case FormatBAM:
		header, err := bamio.NewUnmappedHeader()
		if err != nil {
			return nil, err
		}
		w, err := bamio.NewWriter(f, header, 1)
		if err != nil {
			return nil, err
		}
		bs.closers = append(bs.closers, w.Close)
		return w, nil
	case FormatFasta:
		cw, closeFn, err := compressio.OpenWriter(f, compressio.CodecGzip, s.Level)
		if err != nil {
			return nil, err
		}
		bs.closers = append(bs.closers, func() error {
			if err := closeFn(); err != nil {
				return err
			}
			return f.Close()
		})
		return fastaio.NewWriter(cw), nil
	default:
		cw, closeFn, err := compressio.OpenWriter(f, compressio.CodecGzip, s.Level)
		if err != nil {
			return nil, err
		}
		bs.closers = append(bs.closers, func() error {
			if err := closeFn(); err != nil {
				return err
			}
			return f.Close()
		})
		return fastqio.NewWriter(cw), nil
	}
}

func (s *WriteReads) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	for segIdx, seg := range c.Segments {
		bs := s.sinksPerSegment[segIdx]
		for i := range seg.Entries {
			name := seg.Entries[i].Name.Bytes(seg.Arena)
			seq := seg.Entries[i].Seq.Bytes(seg.Arena)
			qual := seg.Entries[i].Qual.Bytes(seg.Arena)
			wrote := false
			if c.OutputTags != nil {
				mask := c.OutputTags[i]
				for _, b := range s.Router.Names() {
					if demux.HasOutput(s.Router, mask, b) {
						if err := bs.named[b].WriteRead(name, seq, qual); err != nil {
							return nil, false, err
						}
						wrote = true
					}
				}
			}
			if !wrote {
				if err := bs.unmatched.WriteRead(name, seq, qual); err != nil {
					return nil, false, err
				}
			}
		}
	}
	return c, true, nil
}

func (s *WriteReads) Finalize() (*pipestep.FinalizeReportResult, error) {
	for _, bs := range s.sinksPerSegment {
		for _, c := range bs.closers {
			if err := c(); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func openForWrite(path string, allowOverwrite bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !allowOverwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
