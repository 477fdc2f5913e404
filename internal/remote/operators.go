package remote

import (
	"context"
	"fmt"

	"yqhp/dataflow-engine/internal/stream"
	"yqhp/dataflow-engine/pkg/types"
)

// getitem indexes into a remotely stored sequence; registered as a builtin
// by every executor implementation.
var getitem = types.NamedFunc("getitem")

// applyFn spreads a remotely stored argument sequence into a call,
// apply(fn, seq) = fn(seq...); registered as a builtin like getitem.
var applyFn = types.NamedFunc("apply")

// Map submits fn(x, args...) for every incoming item and forwards the
// result handle without waiting for the computation. Backpressure applies
// at emission only, so remote work overlaps across items.
func (r *Stream) Map(fn types.Function, args ...any) *Stream {
	n := r.Stream.NewNode("remote-map", func(ctx context.Context, node *stream.Stream, x any, md stream.Metadata) error {
		h, err := r.client.Submit(ctx, fn, append([]any{x}, args...)...)
		if err != nil {
			return fmt.Errorf("remote map: %w", err)
		}
		return node.Forward(ctx, h, md)
	})
	return r.wrap(n)
}

// Starmap treats each incoming item as a sequence of arguments and submits
// fn(items...) remotely. The sequence is spread on the worker side through
// the apply builtin, so a handle item stays opaque here and unpacks where
// its value lives.
func (r *Stream) Starmap(fn types.Function) *Stream {
	n := r.Stream.NewNode("remote-starmap", func(ctx context.Context, node *stream.Stream, x any, md stream.Metadata) error {
		h, err := r.client.Submit(ctx, applyFn, fn, x)
		if err != nil {
			return fmt.Errorf("remote starmap: %w", err)
		}
		return node.Forward(ctx, h, md)
	})
	return r.wrap(n)
}

// Filter submits the predicate remotely, resolves the boolean, and forwards
// the original local value when it is truthy. The item's tokens are
// retained before the predicate is submitted and released on every exit
// path, so acknowledgment can neither fire early nor leak on failure.
func (r *Stream) Filter(pred types.Function, args ...any) *Stream {
	n := r.Stream.NewNode("remote-filter", func(ctx context.Context, node *stream.Stream, x any, md stream.Metadata) error {
		refs := node.Graph().Refs()
		refs.Retain(md, 1)
		defer refs.Release(md, 1)

		h, err := r.client.Submit(ctx, pred, append([]any{x}, args...)...)
		if err != nil {
			return fmt.Errorf("remote filter: %w", err)
		}
		v, err := r.client.ResolveAll(ctx, h)
		if err != nil {
			return fmt.Errorf("remote filter: %w", err)
		}
		if !truthy(v) {
			return nil
		}
		return node.Forward(ctx, x, md)
	})
	return r.wrap(n)
}

// AccOption configures Accumulate.
type AccOption func(*accOptions)

type accOptions struct {
	start        any
	hasStart     bool
	returnsState bool
	withState    bool
}

// WithStart sets an explicit initial state.
func WithStart(v any) AccOption {
	return func(o *accOptions) { o.start = v; o.hasStart = true }
}

// ReturnsState declares that the fold function returns a (state, output)
// pair; the two halves are split by remote indexing, never resolved
// locally.
func ReturnsState() AccOption {
	return func(o *accOptions) { o.returnsState = true }
}

// WithState makes the operator emit [state, output] pairs.
func WithState() AccOption {
	return func(o *accOptions) { o.withState = true }
}

// Accumulate folds items through remotely submitted fn(state, x) calls.
// State is itself a handle after the first submission; it is never resolved
// here. Without WithStart the first item becomes the initial state directly
// and is emitted unchanged, bypassing remote execution.
func (r *Stream) Accumulate(fn types.Function, opts ...AccOption) *Stream {
	var o accOptions
	for _, opt := range opts {
		opt(&o)
	}
	state := o.start
	started := o.hasStart

	n := r.Stream.NewNode("remote-accumulate", func(ctx context.Context, node *stream.Stream, x any, md stream.Metadata) error {
		if !started {
			state = x
			started = true
			return node.Forward(ctx, accEmit(o, state, x), md)
		}
		combined, err := r.client.Submit(ctx, fn, state, x)
		if err != nil {
			return fmt.Errorf("remote accumulate: %w", err)
		}
		var out any
		if o.returnsState {
			next, err := r.client.Submit(ctx, getitem, combined, 0)
			if err != nil {
				return fmt.Errorf("remote accumulate: %w", err)
			}
			result, err := r.client.Submit(ctx, getitem, combined, 1)
			if err != nil {
				return fmt.Errorf("remote accumulate: %w", err)
			}
			state = next
			out = result
		} else {
			state = combined
			out = combined
		}
		return node.Forward(ctx, accEmit(o, state, out), md)
	})
	return r.wrap(n)
}

func accEmit(o accOptions, state, out any) any {
	if o.withState {
		return []any{state, out}
	}
	return out
}

// truthy mirrors the loose boolean the predicate may come back as after a
// trip through an executor (bool, JS number, JSON-decoded float, string).
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
