package remote

import (
	"time"

	"yqhp/dataflow-engine/internal/stream"
)

// Structural operators have no remote-specific logic: handles ride through
// them as inert payloads. Each wrapper delegates to the base engine and
// re-wraps the result so the chain stays remote-aware.

// Buffer decouples submission from gathering through a bounded queue.
func (r *Stream) Buffer(n int) *Stream {
	return r.wrap(r.Stream.Buffer(n))
}

// Flatten emits the elements of slice items one by one.
func (r *Stream) Flatten() *Stream {
	return r.wrap(r.Stream.Flatten())
}

// Union merges remote streams sharing the same executor.
func (r *Stream) Union(others ...*Stream) *Stream {
	bases := make([]*stream.Stream, len(others))
	for i, o := range others {
		bases[i] = o.Stream
	}
	return r.wrap(r.Stream.Union(bases...))
}

// Zip pairs items positionally across remote streams.
func (r *Stream) Zip(others ...*Stream) *Stream {
	bases := make([]*stream.Stream, len(others))
	for i, o := range others {
		bases[i] = o.Stream
	}
	return r.wrap(r.Stream.Zip(bases...))
}

// CombineLatest emits the latest handle from every upstream on any update.
func (r *Stream) CombineLatest(others ...*Stream) *Stream {
	bases := make([]*stream.Stream, len(others))
	for i, o := range others {
		bases[i] = o.Stream
	}
	return r.wrap(r.Stream.CombineLatest(bases...))
}

// Latest keeps only the newest handle for a slow consumer.
func (r *Stream) Latest() *Stream {
	return r.wrap(r.Stream.Latest())
}

// Partition groups every n consecutive handles into one slice.
func (r *Stream) Partition(n int) *Stream {
	return r.wrap(r.Stream.Partition(n))
}

// SlidingWindow emits the last n handles on every item.
func (r *Stream) SlidingWindow(n int) *Stream {
	return r.wrap(r.Stream.SlidingWindow(n))
}

// TimedWindow batches handles into interval-sized slices.
func (r *Stream) TimedWindow(interval time.Duration) *Stream {
	return r.wrap(r.Stream.TimedWindow(interval))
}

// RateLimit spaces handle emissions at least interval apart.
func (r *Stream) RateLimit(interval time.Duration) *Stream {
	return r.wrap(r.Stream.RateLimit(interval))
}

// Delay forwards handles no earlier than d after arrival.
func (r *Stream) Delay(d time.Duration) *Stream {
	return r.wrap(r.Stream.Delay(d))
}
