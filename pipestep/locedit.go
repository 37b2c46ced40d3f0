package pipestep

import (
	"github.com/grailbio/fqproc/readbuf"
	"github.com/grailbio/fqproc/tagstore"
)

// LocationAction is the result of a LocationPolicy decision for one
// (tag, read) pair after a segment-length-changing edit (spec.md §4.6 "Tag
// Location update protocol", §9 DESIGN NOTES).
type LocationAction int

const (
	// LocKeep leaves the location unchanged.
	LocKeep LocationAction = iota
	// LocRemove drops this Hit from the tag's Hits.
	LocRemove
	// LocNew replaces the Hit's location, keeping its original sequence
	// bytes stale (caller re-slices from the edited segment separately
	// if it needs fresh bytes).
	LocNew
	// LocNewWithSeq replaces both the Hit's location and its recorded
	// sequence bytes.
	LocNewWithSeq
)

// LocationDecision is what a LocationPolicy returns for one Hit.
type LocationDecision struct {
	Action LocationAction
	Region tagstore.Location // used by LocNew, LocNewWithSeq
	Seq    []byte            // used by LocNewWithSeq
}

// LocationPolicy decides what happens to one Hit belonging to a
// Location-kind tag after segmentIndex has been edited. segLen is the
// length of the edited segment for the hit's read at the time the policy
// runs.
type LocationPolicy func(hit tagstore.Hit, segLen int) LocationDecision

// UpdateLocationTags applies policy to every Hit of every Location-kind tag
// whose Hits reference segmentIndex, across every read in c. It is a single
// pass over the tag store (not one scan per edited read), per the DESIGN
// NOTES guidance to batch edits.
func UpdateLocationTags(c *readbuf.BlocksCombined, segmentIndex int, policy LocationPolicy) {
	seg := c.Segments[segmentIndex]
	for _, label := range c.Tags.Labels() {
		vals := c.Tags.Get(label)
		for i, v := range vals {
			if v.Kind() != tagstore.KindLocation {
				continue
			}
			segLen := seg.Entries[i].Seq.Len()
			hits := v.AsHits()
			out := hits[:0]
			for _, hit := range hits {
				if hit.Loc == nil || hit.Loc.SegmentIndex != segmentIndex {
					out = append(out, hit)
					continue
				}
				d := policy(hit, segLen)
				switch d.Action {
				case LocRemove:
					// dropped
				case LocNew:
					region := d.Region
					out = append(out, tagstore.Hit{Sequence: hit.Sequence, Loc: &region})
				case LocNewWithSeq:
					region := d.Region
					out = append(out, tagstore.Hit{Sequence: d.Seq, Loc: &region})
				default: // LocKeep
					out = append(out, hit)
				}
			}
			c.Tags.Set(label, i, tagstore.LocationValue(out))
		}
	}
}

// FilterLocationsBeyondLength is the dedicated pass from spec.md §4.6 for
// total-length changes: it removes any Location Hit whose region now runs
// past the (possibly shrunk) segment length.
func FilterLocationsBeyondLength(c *readbuf.BlocksCombined, segmentIndex int) {
	UpdateLocationTags(c, segmentIndex, func(hit tagstore.Hit, segLen int) LocationDecision {
		if hit.Loc.Start+hit.Loc.Len > segLen {
			return LocationDecision{Action: LocRemove}
		}
		return LocationDecision{Action: LocKeep}
	})
}
