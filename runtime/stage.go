package runtime

import "github.com/grailbio/fqproc/pipestep"

// stageKind distinguishes a run of steps safe to apply concurrently,
// block-order-independent, from a single step that must see every block
// exactly once, in order, from one goroutine (spec.md §4.5 NeedsSerial).
type stageKind int

const (
	stageParallel stageKind = iota
	stageSerial
)

// stage is one contiguous run of the pipeline sharing a kind.
type stage struct {
	kind  stageKind
	steps []pipestep.Step
}

// splitStages groups a flat step list into maximal parallel runs separated
// by single-step serial stages, preserving overall order. A serial step
// never merges with its neighbors: each gets a stage of its own so the
// runtime can hand it blocks one at a time, strictly in sequence.
func splitStages(steps []pipestep.Step) []stage {
	var stages []stage
	for _, st := range steps {
		if st.NeedsSerial() {
			stages = append(stages, stage{kind: stageSerial, steps: []pipestep.Step{st}})
			continue
		}
		if n := len(stages); n > 0 && stages[n-1].kind == stageParallel {
			stages[n-1].steps = append(stages[n-1].steps, st)
			continue
		}
		stages = append(stages, stage{kind: stageParallel, steps: []pipestep.Step{st}})
	}
	return stages
}
