package stream

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/ohler55/ojg/jp"
)

// noStart marks an accumulator with no configured start value; the first
// observed item becomes the initial state.
type noStartType struct{}

var noStart noStartType

// AccOption configures Accumulate.
type AccOption func(*accOptions)

type accOptions struct {
	start     any
	withState bool
}

// WithStart sets an explicit initial state for an accumulator.
func WithStart(v any) AccOption {
	return func(o *accOptions) { o.start = v }
}

// WithState makes an accumulator emit [state, value] pairs instead of bare
// values.
func WithState() AccOption {
	return func(o *accOptions) { o.withState = true }
}

func newAccOptions(opts []AccOption) accOptions {
	o := accOptions{start: noStart}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Map applies fn to every item and forwards the result.
func (s *Stream) Map(fn func(x any) (any, error)) *Stream {
	return s.NewNode("map", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		y, err := fn(x)
		if err != nil {
			return fmt.Errorf("map: %w", err)
		}
		return node.Forward(ctx, y, md)
	})
}

// Filter forwards only items for which pred returns true. The item's tokens
// stay retained while the predicate runs, so acknowledgment cannot race
// ahead of a pending predicate.
func (s *Stream) Filter(pred func(x any) (bool, error)) *Stream {
	return s.NewNode("filter", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		refs := node.graph.refs
		refs.Retain(md, 1)
		defer refs.Release(md, 1)

		keep, err := pred(x)
		if err != nil {
			return fmt.Errorf("filter: %w", err)
		}
		if !keep {
			return nil
		}
		return node.Forward(ctx, x, md)
	})
}

// Accumulate folds items into running state with fn(state, x) and emits the
// new state on each item. Without WithStart, the first item becomes the
// initial state and is emitted unchanged.
func (s *Stream) Accumulate(fn func(state, x any) (any, error), opts ...AccOption) *Stream {
	o := newAccOptions(opts)
	state := o.start
	return s.NewNode("accumulate", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		if state == any(noStart) {
			state = x
			return node.Forward(ctx, accEmit(o, state, x), md)
		}
		next, err := fn(state, x)
		if err != nil {
			return fmt.Errorf("accumulate: %w", err)
		}
		state = next
		return node.Forward(ctx, accEmit(o, state, next), md)
	})
}

// AccumulateState is Accumulate for fold functions that keep state and
// output separate: fn returns the next state and the value to emit.
func (s *Stream) AccumulateState(fn func(state, x any) (next, out any, err error), opts ...AccOption) *Stream {
	o := newAccOptions(opts)
	state := o.start
	return s.NewNode("accumulate", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		if state == any(noStart) {
			state = x
			return node.Forward(ctx, accEmit(o, state, x), md)
		}
		next, out, err := fn(state, x)
		if err != nil {
			return fmt.Errorf("accumulate: %w", err)
		}
		state = next
		return node.Forward(ctx, accEmit(o, state, out), md)
	})
}

// Scan is an alias for Accumulate.
func (s *Stream) Scan(fn func(state, x any) (any, error), opts ...AccOption) *Stream {
	return s.Accumulate(fn, opts...)
}

func accEmit(o accOptions, state, out any) any {
	if o.withState {
		return []any{state, out}
	}
	return out
}

// Starmap treats each item as a slice of arguments and applies fn to them.
func (s *Stream) Starmap(fn func(args []any) (any, error)) *Stream {
	return s.NewNode("starmap", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		args, err := asSlice(x)
		if err != nil {
			return fmt.Errorf("starmap: %w", err)
		}
		y, err := fn(args)
		if err != nil {
			return fmt.Errorf("starmap: %w", err)
		}
		return node.Forward(ctx, y, md)
	})
}

// Flatten emits the elements of each incoming slice one by one.
func (s *Stream) Flatten() *Stream {
	return s.NewNode("flatten", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		items, err := asSlice(x)
		if err != nil {
			return fmt.Errorf("flatten: %w", err)
		}
		for _, item := range items {
			if err := node.Forward(ctx, item, md); err != nil {
				return err
			}
		}
		return nil
	})
}

// Pluck extracts a JSONPath expression from every structured item and
// forwards the first match; items with no match are dropped.
func (s *Stream) Pluck(expr string) (*Stream, error) {
	path, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("pluck: invalid expression %q: %w", expr, err)
	}
	return s.NewNode("pluck", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		matches := path.Get(x)
		if len(matches) == 0 {
			return nil
		}
		return node.Forward(ctx, matches[0], md)
	}), nil
}

// Sink invokes fn for every item. It is a terminal node.
func (s *Stream) Sink(fn func(x any) error) *Stream {
	return s.NewNode("sink", func(ctx context.Context, node *Stream, x any, md Metadata) error {
		if err := fn(x); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		return node.Forward(ctx, x, md)
	})
}

// Collected accumulates sunk items for inspection.
type Collected struct {
	mu    sync.Mutex
	items []any
}

// Items returns a copy of the collected items in arrival order.
func (c *Collected) Items() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of collected items.
func (c *Collected) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// SinkToList collects every item into a list.
func (s *Stream) SinkToList() *Collected {
	c := &Collected{}
	s.Sink(func(x any) error {
		c.mu.Lock()
		c.items = append(c.items, x)
		c.mu.Unlock()
		return nil
	})
	return c
}

// asSlice normalizes slice-like values to []any.
func asSlice(x any) ([]any, error) {
	if direct, ok := x.([]any); ok {
		return direct, nil
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected a slice, got %T", x)
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}
