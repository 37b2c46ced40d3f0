package steps

import (
	"errors"
	"strings"

	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/umi"
)

// errNoDemultiplexMatches is returned by Demultiplex.Finalize when the
// step never matched a read to a declared barcode (spec.md §4.6).
var errNoDemultiplexMatches = errors.New("demultiplex: no reads matched any barcode")

// Demultiplex matches a fixed-offset barcode in SegmentName against
// BarcodeTable (canonical barcode bytes -> output name) and OR's the
// matching output's bit into the read's OutputTags (C9). Unmatched reads
// keep demux.UnmatchedMask (0), and write_reads sends them to its
// "unmatched" file whether or not OutputUnmatched is set. When
// MaxMismatch > 0, a miss on the
// exact lookup falls back to umi.SnapCorrector (package umi), which only
// accepts a correction when exactly one known barcode is closest to the
// observed sequence within MaxMismatch edits — an ambiguous near-miss (two
// barcodes equidistant) is left unmatched rather than guessed.
type Demultiplex struct {
	segStep
	BarcodeTable    []pipestep.BarcodeEntry
	BarcodeOffset   int
	MaxMismatch     int
	OutputUnmatched bool
	Router          *demux.Router
	lookup          map[string]uint64
	corrector       *umi.SnapCorrector
	barcodeLen      int
	everMatched     bool
}

func (s *Demultiplex) Name() string { return "demultiplex" }

func (s *Demultiplex) Init(input pipestep.InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*pipestep.DemultiplexBarcodes, error) {
	bc := &pipestep.DemultiplexBarcodes{Barcodes: s.BarcodeTable, OutputUnmatched: s.OutputUnmatched}
	s.lookup = demux.Resolve(s.Router, bc)
	for _, e := range s.BarcodeTable {
		s.barcodeLen = len(e.Barcode)
		break
	}
	if s.MaxMismatch > 0 && len(s.BarcodeTable) > 0 {
		known := make([]string, len(s.BarcodeTable))
		for i, e := range s.BarcodeTable {
			known[i] = string(e.Barcode)
		}
		s.corrector = umi.NewSnapCorrector([]byte(strings.Join(known, "\n")))
	}
	return bc, nil
}

func (s *Demultiplex) Apply(c *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	c.EnsureOutputTags()
	seg := c.Segments[s.segIdx]
	for i := range seg.Entries {
		b := seg.Entries[i].Seq.Bytes(seg.Arena)
		end := s.BarcodeOffset + s.barcodeLen
		mask := demux.UnmatchedMask
		if end <= len(b) {
			key := string(b[s.BarcodeOffset:end])
			if m, ok := s.lookup[key]; ok {
				mask = m
			} else if s.corrector != nil {
				mask = s.nearestMatch(key)
			}
		}
		if mask != demux.UnmatchedMask {
			s.everMatched = true
		}
		c.OutputTags[i] |= mask
	}
	return c, true, nil
}

// nearestMatch corrects an observed barcode to its unambiguous nearest
// known barcode (package umi) and resolves the correction to its bucket
// mask, or returns UnmatchedMask if no unambiguous correction exists or
// its edit count exceeds MaxMismatch.
func (s *Demultiplex) nearestMatch(observed string) uint64 {
	if !isACGTN(observed) {
		return demux.UnmatchedMask
	}
	corrected, edits, ok := s.corrector.CorrectUMI(observed)
	if !ok || edits < 0 || edits > s.MaxMismatch {
		return demux.UnmatchedMask
	}
	if m, ok := s.lookup[corrected]; ok {
		return m
	}
	return demux.UnmatchedMask
}

// isACGTN reports whether every byte of s is one of A/C/G/T/N in either
// case, the alphabet umi.SnapCorrector requires; a barcode read containing
// anything else (rare, but possible on a low-quality cycle) falls back to
// unmatched instead of panicking inside the corrector.
func isACGTN(s string) bool {
	for i := 0; i < len(s); i++ {
		switch upperByte(s[i]) {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return false
		}
	}
	return true
}

// Finalize reports an error if this demultiplex step never matched a read
// to a named barcode, per spec.md §4.6/§7 "demultiplex-no-matches
// (finalize error)".
func (s *Demultiplex) Finalize() (*pipestep.FinalizeReportResult, error) {
	if !s.everMatched && len(s.BarcodeTable) > 0 {
		return nil, errNoDemultiplexMatches
	}
	return nil, nil
}
