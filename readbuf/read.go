package readbuf

import "fmt"

// Read is the (name, seq, qual) triple that makes up one FASTQ/FASTA record.
// A Read is only meaningful together with the Block arena that backs its
// Local elements; see Block.
type Read struct {
	Name Element
	Seq  Element
	Qual Element
}

// Validate checks the read-level invariants from spec.md §3: |seq| ==
// |qual| and name is non-empty. It is a development-time assertion, not a
// user-facing error path — callers that can reach an invalid Read have a
// bug upstream.
func (r Read) Validate(arena []byte) error {
	if r.Name.Len() == 0 {
		return fmt.Errorf("readbuf: read has empty name")
	}
	if r.Seq.Len() != r.Qual.Len() {
		return fmt.Errorf("readbuf: seq/qual length mismatch: %d != %d", r.Seq.Len(), r.Qual.Len())
	}
	return nil
}

// NameBytes, SeqBytes, QualBytes resolve the read's elements against arena.
func (r Read) NameBytes(arena []byte) []byte { return r.Name.Bytes(arena) }
func (r Read) SeqBytes(arena []byte) []byte  { return r.Seq.Bytes(arena) }
func (r Read) QualBytes(arena []byte) []byte { return r.Qual.Bytes(arena) }
