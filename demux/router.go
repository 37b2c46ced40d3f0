// Package demux implements C9: the demultiplex fan-out router. Each
// configured demultiplex step resolves an independent barcode table into a
// stable, small-integer "output name" tag per read; results from multiple
// demultiplex steps are OR-combined into BlocksCombined.OutputTags so a
// downstream writer can fan a read out to every bucket it matched (spec.md
// §4.8).
package demux

import "github.com/grailbio/fqproc/pipestep"

// Router assigns a stable small-integer bit position to each distinct
// output name across every demultiplex step in the pipeline, in first-seen
// order; bit 0 is always reserved for "unmatched" and is never assigned to
// a named output.
type Router struct {
	names []string
	index map[string]uint
}

// NewRouter returns an empty router (bit 0 reserved for unmatched).
func NewRouter() *Router {
	return &Router{index: make(map[string]uint)}
}

// Register assigns output a stable bit position, returning its existing
// position if already registered.
func (r *Router) Register(output string) uint {
	if bit, ok := r.index[output]; ok {
		return bit
	}
	bit := uint(len(r.names)) + 1 // bit 0 reserved for unmatched
	r.names = append(r.names, output)
	r.index[output] = bit
	return bit
}

// Names returns every registered output name in assignment order.
func (r *Router) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// BitFor returns the registered bit position for output, or false if it was
// never registered.
func (r *Router) BitFor(output string) (uint, bool) {
	bit, ok := r.index[output]
	return bit, ok
}

// Resolve builds a lookup table from canonical barcode bytes to the bit
// mask a matching read should OR into OutputTags, given one step's
// DemultiplexBarcodes. Barcodes that map to the same output name share a
// bit (multiple barcodes, one bucket).
func Resolve(r *Router, barcodes *pipestep.DemultiplexBarcodes) map[string]uint64 {
	out := make(map[string]uint64, len(barcodes.Barcodes))
	for _, entry := range barcodes.Barcodes {
		bit := r.Register(entry.Output)
		out[string(entry.Barcode)] = uint64(1) << bit
	}
	return out
}

// UnmatchedMask is the OutputTags value meaning "did not match any
// registered barcode in this demultiplex step".
const UnmatchedMask uint64 = 0

// HasOutput reports whether mask includes the bit for output, per r.
func HasOutput(r *Router, mask uint64, output string) bool {
	bit, ok := r.BitFor(output)
	if !ok {
		return false
	}
	return mask&(uint64(1)<<bit) != 0
}
