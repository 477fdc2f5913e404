package stream

import (
	"context"
	"sync"

	"yqhp/dataflow-engine/pkg/logger"
)

// queued is an item parked inside a combining or buffering operator. The
// context travels with the item so pump goroutines emit under the context
// the item arrived with.
type queued struct {
	ctx context.Context
	x   any
	md  Metadata
}

// Union merges s and the given streams into one: every item from any
// upstream is forwarded as-is.
func (s *Stream) Union(others ...*Stream) *Stream {
	out := s.graph.newNode("union", nil)
	s.Connect(out)
	for _, o := range others {
		o.Connect(out)
	}
	return out
}

// Zip pairs items from s and the given streams positionally: the n-th
// output is a slice of every upstream's n-th item. Items wait, with their
// tokens retained, until every upstream has contributed.
func (s *Stream) Zip(others ...*Stream) *Stream {
	ups := append([]*Stream{s}, others...)
	out := s.graph.newNode("zip", nil)
	z := &zipper{
		refs: s.graph.refs,
		out:  out,
		bufs: make([][]queued, len(ups)),
	}
	for i, up := range ups {
		idx := i
		up.NewNode("zip-intake", func(ctx context.Context, node *Stream, x any, md Metadata) error {
			return z.update(ctx, idx, x, md)
		})
	}
	return out
}

type zipper struct {
	mu   sync.Mutex
	refs *RefTable
	out  *Stream
	bufs [][]queued
}

func (z *zipper) update(ctx context.Context, i int, x any, md Metadata) error {
	z.refs.Retain(md, 1)

	z.mu.Lock()
	z.bufs[i] = append(z.bufs[i], queued{ctx: ctx, x: x, md: md})
	for _, buf := range z.bufs {
		if len(buf) == 0 {
			z.mu.Unlock()
			return nil
		}
	}
	tuple := make([]any, len(z.bufs))
	var merged Metadata
	for j := range z.bufs {
		it := z.bufs[j][0]
		z.bufs[j] = z.bufs[j][1:]
		tuple[j] = it.x
		merged = append(merged, it.md...)
	}
	z.mu.Unlock()

	err := z.out.Forward(ctx, tuple, merged)
	z.refs.Release(merged, 1)
	return err
}

// CombineLatest emits a slice of the most recent item from every upstream
// each time any upstream updates, once all upstreams have produced at least
// one item. The latest items' tokens stay retained until replaced.
func (s *Stream) CombineLatest(others ...*Stream) *Stream {
	ups := append([]*Stream{s}, others...)
	out := s.graph.newNode("combine_latest", nil)
	c := &combiner{
		refs:   s.graph.refs,
		out:    out,
		latest: make([]queued, len(ups)),
		seen:   make([]bool, len(ups)),
	}
	for i, up := range ups {
		idx := i
		up.NewNode("combine-intake", func(ctx context.Context, node *Stream, x any, md Metadata) error {
			return c.update(ctx, idx, x, md)
		})
	}
	return out
}

type combiner struct {
	mu     sync.Mutex
	refs   *RefTable
	out    *Stream
	latest []queued
	seen   []bool
}

func (c *combiner) update(ctx context.Context, i int, x any, md Metadata) error {
	c.refs.Retain(md, 1)

	c.mu.Lock()
	var replaced Metadata
	if c.seen[i] {
		replaced = c.latest[i].md
	}
	c.latest[i] = queued{ctx: ctx, x: x, md: md}
	c.seen[i] = true
	ready := true
	for _, ok := range c.seen {
		if !ok {
			ready = false
			break
		}
	}
	var tuple []any
	var merged Metadata
	if ready {
		tuple = make([]any, len(c.latest))
		for j, it := range c.latest {
			tuple[j] = it.x
			merged = append(merged, it.md...)
		}
		// retained under the lock: a concurrent replace-release must not
		// zero another upstream's latest token before Forward retains it
		c.refs.Retain(merged, 1)
	}
	c.mu.Unlock()

	c.refs.Release(replaced, 1)
	if !ready {
		return nil
	}
	err := c.out.Forward(ctx, tuple, merged)
	c.refs.Release(merged, 1)
	return err
}

// Latest decouples downstream speed from upstream speed by keeping only the
// newest item: a slow consumer sees the most recent value, intermediate
// values are dropped (their tokens released).
func (s *Stream) Latest() *Stream {
	out := s.graph.newNode("latest", nil)
	l := &latestState{
		refs:   s.graph.refs,
		out:    out,
		signal: make(chan struct{}, 1),
	}
	s.NewNode("latest-intake", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		l.update(ctx, x, md)
		return nil
	})
	go l.pump(s.graph.doneCh())
	return out
}

type latestState struct {
	mu     sync.Mutex
	refs   *RefTable
	out    *Stream
	cur    queued
	has    bool
	signal chan struct{}
}

func (l *latestState) update(ctx context.Context, x any, md Metadata) {
	l.refs.Retain(md, 1)
	l.mu.Lock()
	var dropped Metadata
	if l.has {
		dropped = l.cur.md
	}
	l.cur = queued{ctx: ctx, x: x, md: md}
	l.has = true
	l.mu.Unlock()
	l.refs.Release(dropped, 1)
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *latestState) pump(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-l.signal:
		}
		for {
			l.mu.Lock()
			if !l.has {
				l.mu.Unlock()
				break
			}
			it := l.cur
			l.has = false
			l.mu.Unlock()
			if err := l.out.Forward(it.ctx, it.x, it.md); err != nil {
				logger.Error("latest: downstream failed: %v", err)
			}
			l.refs.Release(it.md, 1)
		}
	}
}

// Partition groups every n consecutive items into one slice.
func (s *Stream) Partition(n int) *Stream {
	if n < 1 {
		n = 1
	}
	var buf []queued
	return s.NewNode("partition", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		node.graph.refs.Retain(md, 1)
		buf = append(buf, queued{ctx: ctx, x: x, md: md})
		if len(buf) < n {
			return nil
		}
		tuple := make([]any, n)
		var merged Metadata
		for i, it := range buf {
			tuple[i] = it.x
			merged = append(merged, it.md...)
		}
		buf = nil
		err := node.Forward(ctx, tuple, merged)
		node.graph.refs.Release(merged, 1)
		return err
	})
}

// SlidingWindow emits, for every item, a slice of the last n items seen so
// far (fewer while the window is filling). Items keep their tokens retained
// while inside the window.
func (s *Stream) SlidingWindow(n int) *Stream {
	if n < 1 {
		n = 1
	}
	var window []queued
	return s.NewNode("sliding_window", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		node.graph.refs.Retain(md, 1)
		window = append(window, queued{ctx: ctx, x: x, md: md})
		var evicted Metadata
		if len(window) > n {
			evicted = window[0].md
			window = window[1:]
		}
		tuple := make([]any, len(window))
		var merged Metadata
		for i, it := range window {
			tuple[i] = it.x
			merged = append(merged, it.md...)
		}
		err := node.Forward(ctx, tuple, merged)
		node.graph.refs.Release(evicted, 1)
		return err
	})
}
