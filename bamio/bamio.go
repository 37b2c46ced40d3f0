// Package bamio adapts github.com/biogo/hts/{sam,bam} (the library the
// teacher's encoding/bam, encoding/bamprovider, and cmd/bio-bam-sort all
// build on) into a reader/writer pair over unaligned, unmapped-read BAM
// records, for use wherever the pipeline's Input or a writer sink is
// configured as BAM (C10). This module never interprets alignment
// (position, CIGAR, mate info): reads are stored and read back as
// Unmapped records carrying only name/seq/qual, consistent with the
// "no streaming SAM alignment, no read mapping" Non-goal.
package bamio

import (
	"fmt"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/grailbio/fqproc/readbuf"
)

// NewUnmappedHeader returns a minimal single-group BAM header suitable for
// a stream of unmapped reads.
func NewUnmappedHeader() (*sam.Header, error) {
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("bamio: new header: %w", err)
	}
	h.Version = "1.6"
	h.SortOrder = sam.Unsorted
	return h, nil
}

// Reader reads BAM records straight into a Block's arena.
type Reader struct {
	r      *bam.Reader
	header *sam.Header
}

// NewReader opens a BAM stream (concurrency is left at 1: the pipeline's
// own worker pool, not bam.Reader's internal one, supplies parallelism).
func NewReader(r io.Reader) (*Reader, error) {
	br, err := bam.NewReader(r, 1)
	if err != nil {
		return nil, fmt.Errorf("bamio: new reader: %w", err)
	}
	return &Reader{r: br, header: br.Header()}, nil
}

// Header returns the BAM header read from the stream.
func (r *Reader) Header() *sam.Header { return r.header }

// FillBlock appends up to maxReads records to block.
func (r *Reader) FillBlock(block *readbuf.Block, maxReads int) (int, bool, error) {
	n := 0
	for n < maxReads {
		rec, err := r.r.Read()
		if err == io.EOF {
			return n, false, nil
		}
		if err != nil {
			return n, false, fmt.Errorf("bamio: read: %w", err)
		}
		nameStart := len(block.Arena)
		block.Arena = append(block.Arena, rec.Name...)
		nameEnd := len(block.Arena)

		seq := rec.Seq.Expand()
		seqStart := len(block.Arena)
		block.Arena = append(block.Arena, seq...)
		seqEnd := len(block.Arena)

		qualStart := len(block.Arena)
		block.Arena = append(block.Arena, rec.Qual...)
		for i := range rec.Qual {
			block.Arena[qualStart+i] += '!' // Phred -> ASCII, offset 33
		}
		qualEnd := len(block.Arena)

		block.AppendLocal([2]int{nameStart, nameEnd}, [2]int{seqStart, seqEnd}, [2]int{qualStart, qualEnd})
		n++
	}
	return n, true, nil
}

// Writer writes unmapped BAM records.
type Writer struct {
	w      *bam.Writer
	header *sam.Header
	err    error
}

// NewWriter opens a BAM output stream with concurrency workers internal
// encode goroutines (bam.Writer's own pool, independent of the pipeline's
// worker pool).
func NewWriter(w io.Writer, header *sam.Header, concurrency int) (*Writer, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	bw, err := bam.NewWriter(w, header, concurrency)
	if err != nil {
		return nil, fmt.Errorf("bamio: new writer: %w", err)
	}
	return &Writer{w: bw, header: header}, nil
}

// WriteRead writes one unmapped record with qual given as raw ASCII+33
// Phred-encoded bytes.
func (w *Writer) WriteRead(name, seq, qual []byte) error {
	if w.err != nil {
		return w.err
	}
	phred := make([]byte, len(qual))
	for i, q := range qual {
		phred[i] = q - '!'
	}
	rec, err := sam.NewRecord(string(name), nil, nil, -1, -1, 0, 0, nil, seq, phred, nil)
	if err != nil {
		w.err = fmt.Errorf("bamio: new record: %w", err)
		return w.err
	}
	rec.Flags = sam.Unmapped
	if _, w.err = w.w.Write(rec); w.err != nil {
		return w.err
	}
	return nil
}

// Close flushes and closes the underlying BAM writer.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Close()
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }
