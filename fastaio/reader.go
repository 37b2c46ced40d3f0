// Package fastaio adapts the shape of the teacher's encoding/fasta reader
// (multi-line-sequence FASTA, name line starting with '>') into the
// Block/arena model, for use wherever the pipeline's Input or a writer
// sink is configured as FASTA rather than FASTQ (C10). FASTA has no
// quality string; readers synthesize a fixed high-quality placeholder so
// the read-buffer invariant (|seq| == |qual|) still holds, and writers
// simply omit the quality line.
package fastaio

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/grailbio/fqproc/readbuf"
)

// PlaceholderQual is the synthetic quality byte ('I' = Phred 40 at offset
// 33) assigned to every base read from a FASTA source.
const PlaceholderQual = 'I'

// Reader reads FASTA records (each possibly spanning multiple sequence
// lines) straight into a Block's arena.
type Reader struct {
	b       *bufio.Scanner
	pending []byte // name line already consumed, sequence not yet
	err     error
	done    bool
}

// NewReader wraps r (already decompressed) in a FASTA reader.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Reader{b: s}
}

// FillBlock appends up to maxReads records to block.
func (r *Reader) FillBlock(block *readbuf.Block, maxReads int) (int, bool, error) {
	if r.err != nil {
		return 0, false, r.err
	}
	n := 0
	for n < maxReads {
		if r.pending == nil {
			if !r.advance() {
				break
			}
		}
		if len(r.pending) == 0 || r.pending[0] != '>' {
			r.err = errors.Errorf("fastaio: expected '>' name line, got %q", r.pending)
			return n, false, r.err
		}
		nameStart := len(block.Arena)
		block.Arena = append(block.Arena, r.pending[1:]...)
		nameEnd := len(block.Arena)
		r.pending = nil

		seqStart := len(block.Arena)
		for r.advance() {
			if len(r.pending) > 0 && r.pending[0] == '>' {
				break
			}
			block.Arena = append(block.Arena, r.pending...)
			r.pending = nil
		}
		seqEnd := len(block.Arena)

		qualStart := len(block.Arena)
		for i := seqStart; i < seqEnd; i++ {
			block.Arena = append(block.Arena, PlaceholderQual)
		}
		qualEnd := len(block.Arena)

		block.AppendLocal([2]int{nameStart, nameEnd}, [2]int{seqStart, seqEnd}, [2]int{qualStart, qualEnd})
		n++
	}
	more := !r.done || r.pending != nil
	return n, more && n == maxReads, nil
}

// advance scans one line into r.pending, returning false at EOF.
func (r *Reader) advance() bool {
	if r.done {
		return false
	}
	if !r.b.Scan() {
		r.done = true
		if err := r.b.Err(); err != nil {
			r.err = err
		}
		return false
	}
	r.pending = r.b.Bytes()
	return true
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }
