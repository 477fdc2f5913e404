package remote

import (
	"context"
	"fmt"

	"yqhp/dataflow-engine/internal/stream"
	"yqhp/dataflow-engine/pkg/executor"
)

// Stream is a remote-aware stream: its items are handles into a remote
// executor (except between Filter's predicate and the filtered value, which
// stays local). It embeds the base stream, so everything structural is
// available; the remote operator family lives on this type.
type Stream struct {
	*stream.Stream
	client executor.Client
}

// Client returns the executor client this stream submits to.
func (r *Stream) Client() executor.Client { return r.client }

func (r *Stream) wrap(n *stream.Stream) *Stream {
	return &Stream{Stream: n, client: r.client}
}

// Scatter converts a local stream into a remote one: every item is
// transferred into executor-owned storage and replaced by its handle. The
// item's tokens stay retained for the duration of the transfer, so
// acknowledgment cannot race ahead of it.
func Scatter(s *stream.Stream, client executor.Client) *Stream {
	n := s.NewNode("scatter", func(ctx context.Context, node *stream.Stream, x any, md stream.Metadata) error {
		refs := node.Graph().Refs()
		refs.Retain(md, 1)
		defer refs.Release(md, 1)

		// Always scatter a single-element slice so the executor sees
		// exactly one logical item, even when x itself is a slice or
		// a map.
		handles, err := client.Scatter(ctx, []any{x})
		if err != nil {
			return fmt.Errorf("scatter: %w", err)
		}
		if len(handles) != 1 {
			return fmt.Errorf("scatter: expected 1 handle, got %d", len(handles))
		}
		return node.Forward(ctx, handles[0], md)
	})
	return &Stream{Stream: n, client: client}
}

// Gather converts handles back into concrete local values. It suspends
// until the referenced remote computations complete, making it the point
// where in-flight remote work is bounded: put a Buffer(n) in front of it to
// allow n unfinished computations to pile up.
func (r *Stream) Gather() *stream.Stream {
	return r.Stream.NewNode("gather", func(ctx context.Context, node *stream.Stream, x any, md stream.Metadata) error {
		refs := node.Graph().Refs()
		refs.Retain(md, 1)
		defer refs.Release(md, 1)

		v, err := r.client.ResolveAll(ctx, x)
		if err != nil {
			return fmt.Errorf("gather: %w", err)
		}
		return node.Forward(ctx, v, md)
	})
}
