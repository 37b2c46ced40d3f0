// Package seedutil provides the single deterministic RNG-seeding helper
// used throughout the pipeline (spec.md §5 "RNGs: one per step instance,
// seeded deterministically from the user-provided seed extended to the
// RNG's required key length").
//
// Grounded on the teacher's farmhash dependency (already in go.mod for
// dedup fragment keys, package filter) reused here to extend a single
// user-supplied uint64 seed into as many independent per-instance seeds as
// the pipeline needs, rather than reusing the same seed bytes across
// unrelated RNGs (which would correlate e.g. a sample step and the
// approximate filter if they were ever given the same raw seed).
package seedutil

import (
	"math/rand"

	farm "github.com/dgryski/go-farm"
)

// NewSeeded returns a *rand.Rand deterministically derived from seed and
// key: the same (seed, key) pair always produces the same sequence,
// different keys produce independent sequences even from the same seed.
// The sample step passes the fixed key "sample", so two sample steps given
// the same seed draw the same sequence.
func NewSeeded(seed uint64, key string) *rand.Rand {
	extended := farm.Hash64WithSeed([]byte(key), seed)
	return rand.New(rand.NewSource(int64(extended)))
}
