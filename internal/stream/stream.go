package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrGraphClosed is returned when an item is pushed into a graph whose
// background pumps have been shut down.
var ErrGraphClosed = errors.New("stream: graph closed")

// Graph owns the shared state of one dataflow topology: the acknowledgment
// refcount table and the stop channel its buffering operators listen on.
// Multiple graphs coexist without sharing any mutable state.
type Graph struct {
	refs      *RefTable
	done      chan struct{}
	closeOnce sync.Once
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		refs: NewRefTable(),
		done: make(chan struct{}),
	}
}

// Refs returns the graph's acknowledgment refcount table.
func (g *Graph) Refs() *RefTable { return g.refs }

// Close stops the graph's background pumps (buffer, delay, timed windows,
// latest). Items still queued in a pump are dropped and their tokens
// released, so acknowledgment completes across teardown.
func (g *Graph) Close() {
	g.closeOnce.Do(func() { close(g.done) })
}

func (g *Graph) doneCh() <-chan struct{} { return g.done }

// ProcessFunc is a node's processing routine, invoked once per incoming
// item. It must call node.Forward to push results downstream; Forward does
// not return until all downstream consumers are done.
type ProcessFunc func(ctx context.Context, node *Stream, x any, md Metadata) error

// Stream is one node of the dataflow graph. A node with a nil processing
// routine forwards items unchanged.
type Stream struct {
	graph   *Graph
	id      string
	name    string
	process ProcessFunc

	linkMu      sync.RWMutex
	downstreams []*Stream

	// procMu serializes the processing routine: item N+1 from the same
	// upstream is not processed until item N's routine returned.
	procMu sync.Mutex
}

// Source creates an unconnected entry node. Items are pushed into it with
// Emit.
func (g *Graph) Source(name string) *Stream {
	return g.newNode(name, nil)
}

func (g *Graph) newNode(name string, p ProcessFunc) *Stream {
	return &Stream{
		graph:   g,
		id:      uuid.NewString(),
		name:    name,
		process: p,
	}
}

// Graph returns the graph the node belongs to.
func (s *Stream) Graph() *Graph { return s.graph }

// Name returns the node's diagnostic name.
func (s *Stream) Name() string { return s.name }

func (s *Stream) String() string {
	return fmt.Sprintf("<%s %s>", s.name, s.id[:8])
}

// NewNode creates a node with the given processing routine and links it
// downstream of s. It is the extension point operator families build on.
func (s *Stream) NewNode(name string, p ProcessFunc) *Stream {
	n := s.graph.newNode(name, p)
	s.Connect(n)
	return n
}

// Connect links d downstream of s.
func (s *Stream) Connect(d *Stream) {
	s.linkMu.Lock()
	s.downstreams = append(s.downstreams, d)
	s.linkMu.Unlock()
}

// Disconnect removes d from s's downstream set.
func (s *Stream) Disconnect(d *Stream) {
	s.linkMu.Lock()
	for i, down := range s.downstreams {
		if down == d {
			s.downstreams = append(s.downstreams[:i], s.downstreams[i+1:]...)
			break
		}
	}
	s.linkMu.Unlock()
}

// Emit pushes an item into the graph at this node, attaching the given
// acknowledgment tokens. It returns once the item has been fully processed
// by the entire downstream tree. Emit holds one reference on the tokens for
// its own duration, so a token acks exactly once even when the node has no
// consumers at all.
func (s *Stream) Emit(ctx context.Context, x any, tokens ...*Token) error {
	md := Metadata(tokens)
	s.graph.refs.Retain(md, 1)
	err := s.update(ctx, x, md)
	s.graph.refs.Release(md, 1)
	return err
}

// update runs the node's processing routine under the per-node lock.
func (s *Stream) update(ctx context.Context, x any, md Metadata) error {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	if s.process == nil {
		return s.Forward(ctx, x, md)
	}
	return s.process(ctx, s, x, md)
}

// Forward sends x to every downstream consumer and waits for all of them.
// Each downstream branch holds one reference on md until it finishes, so
// acknowledgment cannot fire before the slowest branch is done. Branches
// run concurrently; their errors are joined.
func (s *Stream) Forward(ctx context.Context, x any, md Metadata) error {
	s.linkMu.RLock()
	downs := make([]*Stream, len(s.downstreams))
	copy(downs, s.downstreams)
	s.linkMu.RUnlock()

	if len(downs) == 0 {
		return nil
	}

	s.graph.refs.Retain(md, len(downs))
	if len(downs) == 1 {
		err := downs[0].update(ctx, x, md)
		s.graph.refs.Release(md, 1)
		return err
	}

	errs := make([]error, len(downs))
	var wg sync.WaitGroup
	for i, d := range downs {
		wg.Add(1)
		go func(i int, d *Stream) {
			defer wg.Done()
			errs[i] = d.update(ctx, x, md)
			s.graph.refs.Release(md, 1)
		}(i, d)
	}
	wg.Wait()
	return errors.Join(errs...)
}
