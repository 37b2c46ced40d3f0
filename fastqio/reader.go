// Package fastqio adapts the teacher's encoding/fastq scanner/writer pair
// (package fastq) to read and write directly against readbuf.Block arenas
// (C10). It works on plain streams; gzip/zstd wrapping is done by package
// compressio.
package fastqio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/grailbio/fqproc/readbuf"
)

// Reader reads FASTQ records straight into a Block's arena, avoiding the
// teacher Scanner's per-field string allocation.
type Reader struct {
	b   *bufio.Scanner
	err error
}

// NewReader wraps r (already decompressed, see package compressio) in a
// FASTQ reader.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{b: s}
}

// FillBlock appends up to maxReads records to block, returning the number
// read and whether more records may remain (false at EOF).
func (r *Reader) FillBlock(block *readbuf.Block, maxReads int) (int, bool, error) {
	if r.err != nil {
		return 0, false, r.err
	}
	n := 0
	for n < maxReads {
		nameStart, nameEnd, ok := r.scanLine(block)
		if !ok {
			break
		}
		if nameEnd == nameStart || block.Arena[nameStart] != '@' {
			r.err = fmt.Errorf("fastqio: expected '@' name line, got %q", block.Arena[nameStart:nameEnd])
			return n, false, r.err
		}
		seqStart, seqEnd, ok := r.scanLine(block)
		if !ok {
			r.err = fmt.Errorf("fastqio: truncated record (missing sequence line)")
			return n, false, r.err
		}
		plusStart, plusEnd, ok := r.scanLine(block)
		if !ok || plusEnd == plusStart || block.Arena[plusStart] != '+' {
			r.err = fmt.Errorf("fastqio: expected '+' separator line")
			return n, false, r.err
		}
		qualStart, qualEnd, ok := r.scanLine(block)
		if !ok {
			r.err = fmt.Errorf("fastqio: truncated record (missing quality line)")
			return n, false, r.err
		}
		block.AppendLocal([2]int{nameStart + 1, nameEnd}, [2]int{seqStart, seqEnd}, [2]int{qualStart, qualEnd})
		n++
	}
	if r.err != nil {
		return n, false, r.err
	}
	more := n == maxReads
	return n, more, nil
}

// scanLine reads the next line into block.Arena, returning its (start, end)
// range and whether a line was read.
func (r *Reader) scanLine(block *readbuf.Block) (start, end int, ok bool) {
	if !r.b.Scan() {
		if err := r.b.Err(); err != nil {
			r.err = err
		}
		return 0, 0, false
	}
	line := r.b.Bytes()
	start = len(block.Arena)
	block.Arena = append(block.Arena, line...)
	end = len(block.Arena)
	return start, end, true
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }
