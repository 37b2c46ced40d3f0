// Package pipestep defines the step contract (C5): the capability set every
// pipeline stage implements, plus the shared types steps exchange with the
// runtime and with each other (InputInfo, DemultiplexBarcodes,
// FinalizeReportResult, tag I/O declarations).
//
// Grounded on the teacher's small-interface, dynamic-dispatch-over-a-
// concrete-set style (e.g. bampair.RecordProcessor, bamprovider.Provider):
// one interface, many small concrete implementations in package steps.
package pipestep

import (
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

// InputInfo describes the fixed, validated shape of the input: the
// segment names, whose positions are the segment indices.
type InputInfo struct {
	SegmentNames []string
}

// SegmentIndex resolves a user-typed segment name to its index, returning
// -1 if unknown.
func (i InputInfo) SegmentIndex(name string) int {
	for idx, n := range i.SegmentNames {
		if n == name {
			return idx
		}
	}
	return -1
}

// DemultiplexBarcodes is the ordered canonical-barcode-bytes -> output-name
// map a demultiplex step resolves at validation time. The bit the router
// (package demux) assigns each distinct output name is kept by the router,
// not here.
type DemultiplexBarcodes struct {
	// Barcodes maps canonical barcode bytes to output name, in the order
	// declared by the user's barcode table.
	Barcodes []BarcodeEntry
	// OutputUnmatched records the step's output_unmatched setting. No
	// writer or report step reads it: write_reads always writes reads
	// whose mask is 0 to its "unmatched" file.
	OutputUnmatched bool
}

// BarcodeEntry is one row of a barcode table.
type BarcodeEntry struct {
	Barcode []byte
	Output  string
}

// TagIOKinds is the set of TagValue kinds a consuming step accepts for one
// input label.
type TagIOKinds []tagstore.Kind

// Accepts reports whether k is one of the accepted kinds.
func (a TagIOKinds) Accepts(k tagstore.Kind) bool {
	for _, want := range a {
		if want == k {
			return true
		}
	}
	return false
}

// TagUse is one (label, accepted-kinds) entry in a step's consumer
// contract.
type TagUse struct {
	Label   string
	Kinds   TagIOKinds
}

// TagDecl is the (label, kind) a step produces, if any.
type TagDecl struct {
	Label string
	Kind  tagstore.Kind
}

// FinalizeReportResult is the JSON-fragment-shaped output a report
// aggregator (or demultiplex step) contributes at finalize, keyed by the
// step's report_no slot (assigned at Report-expansion time, spec.md §4.6).
// GroupName is the user-supplied Report name the aggregator was expanded
// from (spec.md §6 "Report entries are keyed by the user-supplied
// name"); Name is the metric's own field within that group (e.g.
// "molecule_count", "length_distribution"). Data may be a scalar or a
// nested map, matching whatever shape that metric naturally takes.
type FinalizeReportResult struct {
	GroupName string
	Name      string
	ReportNo  int
	Data      any
}

// Step is the full capability set a pipeline stage implements (spec.md
// §4.5). Concrete steps (package steps) implement this directly; dynamic
// dispatch happens over this interface, one concrete type per step kind,
// keeping each Apply call monomorphic per block as DESIGN NOTES
// recommends.
type Step interface {
	// Name identifies the step kind for list-steps / error messages.
	Name() string

	// ValidateSegments resolves user-typed segment/source strings to
	// indices against input. Returns an error (possibly wrapping several)
	// describing every problem found.
	ValidateSegments(input InputInfo) error

	// ValidateOthers performs cross-step checks once every step's
	// ValidateSegments has run; allSteps is the full pipeline and
	// thisIndex this step's position within it.
	ValidateOthers(input InputInfo, allSteps []Step, thisIndex int) error

	// DeclaresTag returns the (label, kind) this step produces, if any.
	DeclaresTag() (TagDecl, bool)

	// UsesTags returns this step's consumer contract: each label it
	// reads and the kinds it accepts for that label. live is the set of
	// labels declared by earlier steps and not yet forgotten.
	UsesTags(live map[string]tagstore.Kind) []TagUse

	// RemovesTags returns labels this step forgets after reading them.
	RemovesTags() []string

	// RemovesAllTags reports whether this step forgets every live tag
	// (used by report-sink-like steps).
	RemovesAllTags() bool

	// Init performs one-shot setup after validation (opening output
	// files, building barcode tables, etc). Returns the
	// DemultiplexBarcodes this step contributes, if it is a demultiplex
	// step.
	Init(input InputInfo, outputPrefix, outputDir string, separator byte, allowOverwrite bool) (*DemultiplexBarcodes, error)

	// Apply does the work: transform, replace, or filter the block, or
	// request early termination. blockNo is the block's monotonically
	// increasing sequence number (1-based). Returns the (possibly
	// replaced) block and whether the runtime should keep pulling blocks
	// from upstream.
	Apply(block *readbuf.BlocksCombined, input InputInfo, blockNo uint64) (out *readbuf.BlocksCombined, cont bool, err error)

	// Finalize flushes sinks and emits aggregate report fragments.
	Finalize() (*FinalizeReportResult, error)

	// NeedsSerial reports whether this step must see blocks in strict
	// order, as a single instance.
	NeedsSerial() bool

	// TransmitsPrematureTermination reports whether a downstream "stop"
	// should propagate through this step to the reader.
	TransmitsPrematureTermination() bool

	// MustSeeAllTags reports whether this step requires every live tag to
	// still be present at its position (reporters that render whatever
	// tags exist, e.g. store_tags_in_table).
	MustSeeAllTags() bool
}
