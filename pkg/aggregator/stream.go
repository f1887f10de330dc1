package aggregator

import (
	"context"
	"time"
)

// ChunkAggregateFunc reduces one round's chunk from every source (keyed
// by source ID, each chunk already capped at the configured chunk
// size) into zero or one output row; returning ok=false skips emitting
// anything for that round.
type ChunkAggregateFunc func(chunks map[string][]map[string]any) (row map[string]any, ok bool)

// StreamAggregate is the Go rendering of stream_aggregation: rather
// than buffering every source's full result set before aggregating, it
// pulls bounded chunks from each source channel in lockstep (the
// channel equivalent of itertools.islice over a generator) and reduces
// each round through fn, emitting until every source channel is
// drained. A source that closes early simply stops contributing to
// later rounds' chunks, rather than blocking the others.
//
// StreamAggregate performs no join of its own: fn only ever sees the
// current round's chunks. A streaming join built on it has to hold the
// smaller side in memory in full while the larger side streams past.
func StreamAggregate(ctx context.Context, sources map[string]<-chan map[string]any, chunkSize int, fn ChunkAggregateFunc) <-chan map[string]any {
	if chunkSize < 1 {
		chunkSize = 1
	}
	out := make(chan map[string]any)

	go func() {
		defer close(out)
		start := time.Now()
		defer func() { AggregationDurationObserve("stream_chunk", time.Since(start)) }()

		open := make(map[string]bool, len(sources))
		for id := range sources {
			open[id] = true
		}

		for len(open) > 0 {
			chunks := make(map[string][]map[string]any, len(sources))
			for id, ch := range sources {
				if !open[id] {
					continue
				}
				chunk := islice(ctx, ch, chunkSize)
				if len(chunk) < chunkSize {
					// Fewer rows than requested means the channel closed
					// mid-read; it contributes its partial chunk this
					// round and is dropped from subsequent rounds.
					delete(open, id)
				}
				if len(chunk) > 0 {
					chunks[id] = chunk
				}
			}
			if len(chunks) == 0 {
				continue
			}
			start := time.Now()
			row, ok := fn(chunks)
			AggregationDurationObserve("stream_chunk", time.Since(start))
			if ok {
				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// islice pulls up to n items from ch, stopping early if ch closes or
// ctx is canceled, the channel equivalent of itertools.islice(iter, n).
func islice(ctx context.Context, ch <-chan map[string]any, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for len(out) < n {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		case <-ctx.Done():
			return out
		}
	}
	return out
}
