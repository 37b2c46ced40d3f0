// Package runtime implements C8: the pipeline runtime. It drives the
// configured input through the validated step list in block-sized
// batches, dispatching parallel-safe runs of steps across a worker pool
// and single-stepping NeedsSerial steps in strict block order, reordering
// completed blocks back into sequence wherever a parallel stage feeds a
// serial one or the final sink.
//
// Grounded on the teacher's channel-and-WaitGroup worker pool
// (markduplicates.MarkDuplicates.generatePAM/generateBAM) and its
// first-error-wins accumulator (grailbio/base/errors.Once), generalized
// from "one shard per worker" to "one block per worker, stage by stage".
package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"

	"github.com/grailbio/fqproc/pipeconfig"
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/readbuf"
)

// Pipeline runs a validated Config to completion.
type Pipeline struct {
	cfg         *pipeconfig.Config
	stages      []stage
	parallelism int
}

// New returns a Pipeline for cfg, using parallelism workers for every
// parallel-safe stage (clamped to at least 1).
func New(cfg *pipeconfig.Config, parallelism int) *Pipeline {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Pipeline{cfg: cfg, stages: splitStages(cfg.Steps), parallelism: parallelism}
}

// Run drives the pipeline to completion, returning every step's finalize
// report fragment, in step order.
func (p *Pipeline) Run() ([]*pipestep.FinalizeReportResult, error) {
	for i, st := range p.cfg.Steps {
		if _, err := st.Init(p.cfg.Input, p.cfg.OutputPrefix, p.cfg.OutputDir, p.cfg.Separator, p.cfg.AllowOverwrite); err != nil {
			return nil, fmt.Errorf("runtime: step %d (%s): init: %w", i, st.Name(), err)
		}
	}

	rd, err := newReader(p.cfg)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	var stopped atomic.Bool
	errOnce := errors.Once{}

	in := make(chan *readbuf.BlocksCombined, p.parallelism*2)
	go func() {
		defer close(in)
		for {
			if stopped.Load() {
				return
			}
			blk, err := rd.Next()
			if err != nil {
				errOnce.Set(err)
				return
			}
			if blk == nil {
				return
			}
			in <- blk
		}
	}()

	for _, st := range p.stages {
		in = p.runStage(st, in, &stopped, &errOnce)
	}
	for range in {
		// Drain the final stage's output; every sink step already did its
		// work in Apply, so nothing further happens with the block here.
	}

	if err := errOnce.Err(); err != nil {
		return nil, err
	}

	var results []*pipestep.FinalizeReportResult
	for i, st := range p.cfg.Steps {
		res, err := st.Finalize()
		if err != nil {
			return nil, fmt.Errorf("runtime: step %d (%s): finalize: %w", i, st.Name(), err)
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, nil
}

// applyStep declares s's output tag on cur (if any) before calling Apply,
// since Apply writes into the tag's per-read vector immediately via
// tagstore.Store.Get, then forgets whatever tags s is done with afterward
// (spec.md §4.3 tag producer/consumer lifecycle, mirrored here from the
// declare/remove bookkeeping pipeconfig.Validate performs ahead of time).
func applyStep(s pipestep.Step, cur *readbuf.BlocksCombined, input pipestep.InputInfo, blockNo uint64) (*readbuf.BlocksCombined, bool, error) {
	if decl, ok := s.DeclaresTag(); ok {
		cur.Tags.Declare(decl.Label, cur.Len())
	}
	cur, cont, err := s.Apply(cur, input, blockNo)
	if err != nil {
		return cur, cont, err
	}
	if s.RemovesAllTags() {
		cur.Tags.ForgetAll()
	} else {
		for _, label := range s.RemovesTags() {
			cur.Tags.Forget(label)
		}
	}
	return cur, cont, nil
}

// runStage consumes in, applies st's steps, and returns the output
// channel, reordered back into BlockNumber sequence.
func (p *Pipeline) runStage(st stage, in <-chan *readbuf.BlocksCombined, stopped *atomic.Bool, errOnce *errors.Once) <-chan *readbuf.BlocksCombined {
	if st.kind == stageSerial {
		out := make(chan *readbuf.BlocksCombined, 1)
		step := st.steps[0]
		go func() {
			defer close(out)
			for blk := range in {
				if errOnce.Err() != nil {
					continue
				}
				nblk, cont, err := applyStep(step, blk, p.cfg.Input, blk.BlockNumber)
				if err != nil {
					errOnce.Set(fmt.Errorf("%s: %w", step.Name(), err))
					stopped.Store(true)
					continue
				}
				out <- nblk
				if !cont && step.TransmitsPrematureTermination() {
					stopped.Store(true)
				}
			}
		}()
		return out
	}

	unordered := make(chan *readbuf.BlocksCombined, p.parallelism*2)
	var wg sync.WaitGroup
	for w := 0; w < p.parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for blk := range in {
				if errOnce.Err() != nil {
					continue
				}
				cur := blk
				for _, s := range st.steps {
					var cont bool
					var err error
					cur, cont, err = applyStep(s, cur, p.cfg.Input, cur.BlockNumber)
					if err != nil {
						errOnce.Set(fmt.Errorf("%s: %w", s.Name(), err))
						stopped.Store(true)
						break
					}
					if !cont && s.TransmitsPrematureTermination() {
						stopped.Store(true)
					}
				}
				unordered <- cur
			}
		}()
	}
	go func() {
		wg.Wait()
		close(unordered)
	}()

	out := make(chan *readbuf.BlocksCombined, p.parallelism*2)
	go reorder(unordered, out)
	return out
}
