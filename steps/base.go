// Package steps implements C6: the concrete pipeline step library.
//
// Every step embeds Base, which supplies the defaults that most steps
// share (no tag declared, no cross-step validation, parallel-safe,
// transmits termination), and overrides only what it needs — mirroring
// the teacher's small-struct-with-an-Opts-field idiom
// (markduplicates.Opts, pileup/snp.Opts) rather than one monolithic
// struct per concern.
package steps

import (
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/tagstore"
)

// Base provides the common-case defaults for the pipestep.Step contract.
// Concrete steps embed it and override the methods whose default doesn't
// fit.
type Base struct{}

func (Base) ValidateSegments(pipestep.InputInfo) error { return nil }
func (Base) ValidateOthers(pipestep.InputInfo, []pipestep.Step, int) error { return nil }
func (Base) DeclaresTag() (pipestep.TagDecl, bool)     { return pipestep.TagDecl{}, false }
func (Base) UsesTags(map[string]tagstore.Kind) []pipestep.TagUse { return nil }
func (Base) RemovesTags() []string                     { return nil }
func (Base) RemovesAllTags() bool                      { return false }
func (Base) Init(pipestep.InputInfo, string, string, byte, bool) (*pipestep.DemultiplexBarcodes, error) {
	return nil, nil
}
func (Base) Finalize() (*pipestep.FinalizeReportResult, error) { return nil, nil }
func (Base) NeedsSerial() bool                                 { return false }
func (Base) TransmitsPrematureTermination() bool                { return true }
func (Base) MustSeeAllTags() bool                               { return false }
