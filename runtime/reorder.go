package runtime

import "github.com/grailbio/fqproc/readbuf"

// reorder re-sequences blocks completed out of order by a parallel stage's
// worker pool back into strictly increasing BlockNumber order, so a
// following serial stage (or the final sink) always sees blocks the same
// way a single-threaded run would have produced them (spec.md §4.5 "block
// reordering before serial sinks").
func reorder(in <-chan *readbuf.BlocksCombined, out chan<- *readbuf.BlocksCombined) {
	defer close(out)
	pending := make(map[uint64]*readbuf.BlocksCombined)
	next := uint64(1)
	for blk := range in {
		pending[blk.BlockNumber] = blk
		for {
			b, ok := pending[next]
			if !ok {
				break
			}
			out <- b
			delete(pending, next)
			next++
		}
	}
}
