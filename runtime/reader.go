package runtime

import (
	"bytes"
	"fmt"
	"os"

	"github.com/grailbio/fqproc/bamio"
	"github.com/grailbio/fqproc/compressio"
	"github.com/grailbio/fqproc/fastaio"
	"github.com/grailbio/fqproc/fastqio"
	"github.com/grailbio/fqproc/pipeconfig"
	"github.com/grailbio/fqproc/readbuf"
)

// blockFiller is the contract fastqio.Reader, fastaio.Reader, and
// bamio.Reader all satisfy; the runtime reads through this interface so it
// never needs a format switch past segmentSource construction.
type blockFiller interface {
	FillBlock(block *readbuf.Block, maxReads int) (int, bool, error)
}

// segmentSource is one open input stream backing one (or, interleaved,
// every) segment.
type segmentSource struct {
	fill  blockFiller
	close func() error
}

func openSegment(cfg *pipeconfig.Config, f pipeconfig.RawInputFile) (*segmentSource, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("runtime: opening %s: %w", f.Path, err)
	}
	format := f.Format
	if format == "" {
		format = cfg.Format
	}
	if format == "bam" {
		br, err := bamio.NewReader(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		return &segmentSource{fill: br, close: file.Close}, nil
	}
	codec := compressio.CodecForPath(f.Path)
	switch cfg.Compression {
	case "none":
		codec = compressio.CodecPlain
	case "gzip":
		codec = compressio.CodecGzip
	case "zstd":
		codec = compressio.CodecZstd
	}
	cr, closeFn, err := compressio.OpenReader(file, codec)
	if err != nil {
		file.Close()
		return nil, err
	}
	closer := func() error {
		if err := closeFn(); err != nil {
			return err
		}
		return file.Close()
	}
	if format == "fasta" {
		return &segmentSource{fill: fastaio.NewReader(cr), close: closer}, nil
	}
	return &segmentSource{fill: fastqio.NewReader(cr), close: closer}, nil
}

// reader drives every segment's stream in lockstep, producing one
// readbuf.BlocksCombined per call to Next, assigning strictly increasing
// BlockNumbers so downstream stages can reorder after parallel processing.
type reader struct {
	cfg       *pipeconfig.Config
	segs      []*segmentSource
	uniqueSrc []*segmentSource // the distinct underlying sources, for Close
	arenaHint int
	blockNo   uint64
	done      bool
}

func newReader(cfg *pipeconfig.Config) (*reader, error) {
	nSeg := len(cfg.Input.SegmentNames)
	r := &reader{cfg: cfg, arenaHint: 1 << 20}

	if cfg.Interleaved {
		if len(cfg.Files) != 1 {
			return nil, fmt.Errorf("runtime: interleaved input requires exactly one file entry, got %d", len(cfg.Files))
		}
		src, err := openSegment(cfg, cfg.Files[0])
		if err != nil {
			return nil, err
		}
		segs := make([]*segmentSource, nSeg)
		for i := range segs {
			segs[i] = src
		}
		r.segs = segs
		r.uniqueSrc = []*segmentSource{src}
		return r, nil
	}

	byName := make(map[string]pipeconfig.RawInputFile, len(cfg.Files))
	for _, f := range cfg.Files {
		byName[f.Segment] = f
	}
	segs := make([]*segmentSource, nSeg)
	for i, name := range cfg.Input.SegmentNames {
		f, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("runtime: no input file for segment %q", name)
		}
		src, err := openSegment(cfg, f)
		if err != nil {
			return nil, err
		}
		segs[i] = src
		r.uniqueSrc = append(r.uniqueSrc, src)
	}
	r.segs = segs
	return r, nil
}

func (r *reader) Close() error {
	var first error
	for _, s := range r.uniqueSrc {
		if err := s.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// fillInterleavedRotation reads one record for each segment, in segment
// order, from the single shared stream. A short rotation (stream runs out
// mid-cycle) rolls back the partial reads so every segment's Block stays
// the same length, and reports end of input.
func (r *reader) fillInterleavedRotation(combined *readbuf.BlocksCombined) (bool, error) {
	nSeg := len(r.segs)
	lens := make([]int, nSeg)
	for i, seg := range combined.Segments {
		lens[i] = seg.Len()
	}
	for i := 0; i < nSeg; i++ {
		n, _, err := r.segs[i].fill.FillBlock(combined.Segments[i], 1)
		if err != nil {
			return false, err
		}
		if n == 0 {
			for j := 0; j < i; j++ {
				combined.Segments[j].Entries = combined.Segments[j].Entries[:lens[j]]
			}
			return false, nil
		}
	}
	return true, nil
}

// pairedName strips a trailing "/1", "/2", or a trailing whitespace-
// delimited comment from a read name, per spec.md §4.1/§7's
// paired-read-name-mismatch check.
func pairedName(name []byte) []byte {
	if i := bytes.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	if len(name) >= 2 && name[len(name)-2] == '/' {
		switch name[len(name)-1] {
		case '1', '2':
			name = name[:len(name)-2]
		}
	}
	return name
}

func (r *reader) checkPairedNames(combined *readbuf.BlocksCombined) error {
	if len(combined.Segments) < 2 {
		return nil
	}
	first := combined.Segments[0]
	n := combined.Len()
	for i := 0; i < n; i++ {
		ref := pairedName(first.Entries[i].Name.Bytes(first.Arena))
		for segIdx := 1; segIdx < len(combined.Segments); segIdx++ {
			seg := combined.Segments[segIdx]
			got := pairedName(seg.Entries[i].Name.Bytes(seg.Arena))
			if !bytes.Equal(ref, got) {
				return fmt.Errorf("runtime: paired read name mismatch at block %d read %d: segment %d has %q, segment 0 has %q",
					combined.BlockNumber, i, segIdx, got, ref)
			}
		}
	}
	return nil
}

// Next returns the next combined block, or (nil, nil) at clean end of
// input.
func (r *reader) Next() (*readbuf.BlocksCombined, error) {
	if r.done {
		return nil, nil
	}
	nSeg := len(r.segs)
	target := r.cfg.BlockSize
	if target <= 0 {
		target = 4096
	}
	combined := readbuf.NewBlocksCombined(nSeg, r.arenaHint)

	if r.cfg.Interleaved {
		for combined.Len() < target {
			ok, err := r.fillInterleavedRotation(combined)
			if err != nil {
				return nil, err
			}
			if !ok {
				r.done = true
				break
			}
		}
	} else {
		for i, src := range r.segs {
			_, more, err := src.fill.FillBlock(combined.Segments[i], target)
			if err != nil {
				return nil, fmt.Errorf("runtime: segment %d: %w", i, err)
			}
			if !more {
				r.done = true
			}
		}
		minLen := combined.Segments[0].Len()
		for _, seg := range combined.Segments[1:] {
			if seg.Len() != minLen {
				return nil, fmt.Errorf("runtime: segment read-count mismatch building block %d (segment lengths differ: input files are not in lockstep)", r.blockNo+1)
			}
		}
	}

	if combined.Len() == 0 {
		return nil, nil
	}
	r.blockNo++
	combined.BlockNumber = r.blockNo
	if r.cfg.CheckPairedNames {
		if err := r.checkPairedNames(combined); err != nil {
			return nil, err
		}
	}
	return combined, nil
}
