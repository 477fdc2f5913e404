package stream

import (
	"context"
	"sync"
	"time"

	"yqhp/dataflow-engine/pkg/logger"
)

// Buffer decouples upstream from downstream through a bounded queue of n
// items. Upstream processing returns as soon as the item is enqueued;
// enqueueing blocks once the buffer is full, so n bounds the number of
// in-flight items between the two sides. Pairing a buffer with a gather
// boundary caps in-flight remote work at n.
func (s *Stream) Buffer(n int) *Stream {
	if n < 1 {
		n = 1
	}
	out := s.graph.newNode("buffer", nil)
	ch := make(chan queued, n)
	done := s.graph.doneCh()

	s.NewNode("buffer-intake", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		node.graph.refs.Retain(md, 1)
		select {
		case ch <- queued{ctx: ctx, x: x, md: md}:
			return nil
		case <-ctx.Done():
			node.graph.refs.Release(md, 1)
			return ctx.Err()
		case <-done:
			node.graph.refs.Release(md, 1)
			return ErrGraphClosed
		}
	})

	go func() {
		for {
			select {
			case <-done:
				drainQueued(ch, s.graph.refs)
				return
			case it := <-ch:
				if err := out.Forward(it.ctx, it.x, it.md); err != nil {
					logger.Error("buffer: downstream failed: %v", err)
				}
				s.graph.refs.Release(it.md, 1)
			}
		}
	}()
	return out
}

// drainQueued releases the retains of items still parked in a pump channel
// when the graph shuts down, so their tokens ack instead of leaking.
func drainQueued(ch <-chan queued, refs *RefTable) {
	for {
		select {
		case it := <-ch:
			refs.Release(it.md, 1)
		default:
			return
		}
	}
}

// Delay forwards every item no earlier than d after its arrival. Items
// queue up behind the delay instead of stalling the upstream.
func (s *Stream) Delay(d time.Duration) *Stream {
	out := s.graph.newNode("delay", nil)
	ch := make(chan delayed, delayQueueSize)
	done := s.graph.doneCh()

	s.NewNode("delay-intake", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		node.graph.refs.Retain(md, 1)
		select {
		case ch <- delayed{queued: queued{ctx: ctx, x: x, md: md}, due: time.Now().Add(d)}:
			return nil
		case <-ctx.Done():
			node.graph.refs.Release(md, 1)
			return ctx.Err()
		case <-done:
			node.graph.refs.Release(md, 1)
			return ErrGraphClosed
		}
	})

	go func() {
		for {
			select {
			case <-done:
				drainDelayed(ch, s.graph.refs)
				return
			case it := <-ch:
				if wait := time.Until(it.due); wait > 0 {
					select {
					case <-done:
						s.graph.refs.Release(it.md, 1)
						drainDelayed(ch, s.graph.refs)
						return
					case <-time.After(wait):
					}
				}
				if err := out.Forward(it.ctx, it.x, it.md); err != nil {
					logger.Error("delay: downstream failed: %v", err)
				}
				s.graph.refs.Release(it.md, 1)
			}
		}
	}()
	return out
}

const delayQueueSize = 64

func drainDelayed(ch <-chan delayed, refs *RefTable) {
	for {
		select {
		case it := <-ch:
			refs.Release(it.md, 1)
		default:
			return
		}
	}
}

type delayed struct {
	queued
	due time.Time
}

// RateLimit spaces consecutive items at least interval apart by holding the
// upstream: the backpressure contract turns the pause into flow control.
func (s *Stream) RateLimit(interval time.Duration) *Stream {
	var last time.Time
	return s.NewNode("rate_limit", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		if wait := interval - time.Since(last); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		last = time.Now()
		return node.Forward(ctx, x, md)
	})
}

// TimedWindow collects items and emits them as one slice every interval.
// Empty intervals emit an empty slice.
type timedWindow struct {
	mu   sync.Mutex
	refs *RefTable
	out  *Stream
	buf  []queued
}

// TimedWindow groups items into interval-sized batches.
func (s *Stream) TimedWindow(interval time.Duration) *Stream {
	out := s.graph.newNode("timed_window", nil)
	w := &timedWindow{refs: s.graph.refs, out: out}
	done := s.graph.doneCh()

	s.NewNode("timed-intake", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		node.graph.refs.Retain(md, 1)
		w.mu.Lock()
		w.buf = append(w.buf, queued{ctx: ctx, x: x, md: md})
		w.mu.Unlock()
		return nil
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				w.flush()
			}
		}
	}()
	return out
}

func (w *timedWindow) flush() {
	w.mu.Lock()
	batch := w.buf
	w.buf = nil
	w.mu.Unlock()

	items := make([]any, len(batch))
	var merged Metadata
	for i, it := range batch {
		items[i] = it.x
		merged = append(merged, it.md...)
	}
	if err := w.out.Forward(context.Background(), items, merged); err != nil {
		logger.Error("timed_window: downstream failed: %v", err)
	}
	w.refs.Release(merged, 1)
}
