package pipeline

import (
	"context"
	"fmt"

	"yqhp/dataflow-engine/internal/remote"
	"yqhp/dataflow-engine/internal/stream"
	"yqhp/dataflow-engine/pkg/executor"
	"yqhp/dataflow-engine/pkg/logger"
)

// Pipeline is an assembled, runnable dataflow graph.
type Pipeline struct {
	def    *Definition
	graph  *stream.Graph
	head   *stream.Stream
	source *stream.FileSource

	collected *stream.Collected
}

// Build assembles the definition into a graph. Function ops submit their
// work through client.
func Build(def *Definition, client executor.Client) (*Pipeline, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{def: def, graph: stream.NewGraph()}

	switch def.Source.Type {
	case "values":
		p.head = p.graph.Source(def.Name)
	case "textfile":
		p.source = p.graph.FromTextFile(def.Source.Path)
		p.head = p.source.Stream
	case "filenames":
		p.source = p.graph.Filenames(def.Source.Path, def.Source.Poll)
		p.head = p.source.Stream
	}

	// cur 和 rem 互斥：散布后链路走远端包装，回收后回到本地。
	cur := p.head
	var rem *remote.Stream
	for i, op := range def.Ops {
		var err error
		if rem == nil {
			cur, rem, err = buildLocal(cur, op, client)
		} else {
			cur, rem, err = buildRemote(rem, op)
		}
		if err != nil {
			return nil, fmt.Errorf("ops[%d]: %w", i, err)
		}
	}

	switch def.Sink.Type {
	case "collect":
		p.collected = cur.SinkToList()
	default:
		name := def.Name
		cur.Sink(func(x any) error {
			logger.Info("pipeline %s: %v", name, x)
			return nil
		})
	}
	return p, nil
}

func buildLocal(cur *stream.Stream, op OpSpec, client executor.Client) (*stream.Stream, *remote.Stream, error) {
	switch op.Op {
	case "scatter":
		return nil, remote.Scatter(cur, client), nil
	case "buffer":
		return cur.Buffer(op.N), nil, nil
	case "flatten":
		return cur.Flatten(), nil, nil
	case "latest":
		return cur.Latest(), nil, nil
	case "partition":
		return cur.Partition(op.N), nil, nil
	case "sliding_window":
		return cur.SlidingWindow(op.N), nil, nil
	case "timed_window":
		return cur.TimedWindow(op.Interval), nil, nil
	case "rate_limit":
		return cur.RateLimit(op.Interval), nil, nil
	case "delay":
		return cur.Delay(op.Interval), nil, nil
	case "pluck":
		next, err := cur.Pluck(op.Path)
		return next, nil, err
	default:
		return nil, nil, fmt.Errorf("op %q is not valid outside a scattered section", op.Op)
	}
}

func buildRemote(rem *remote.Stream, op OpSpec) (*stream.Stream, *remote.Stream, error) {
	switch op.Op {
	case "gather":
		return rem.Gather(), nil, nil
	case "map":
		return nil, rem.Map(op.Function.Function(), op.Args...), nil
	case "starmap":
		return nil, rem.Starmap(op.Function.Function()), nil
	case "filter":
		return nil, rem.Filter(op.Function.Function(), op.Args...), nil
	case "accumulate":
		var opts []remote.AccOption
		if op.Start != nil {
			opts = append(opts, remote.WithStart(op.Start))
		}
		if op.ReturnsState {
			opts = append(opts, remote.ReturnsState())
		}
		return nil, rem.Accumulate(op.Function.Function(), opts...), nil
	case "buffer":
		return nil, rem.Buffer(op.N), nil
	case "flatten":
		return nil, rem.Flatten(), nil
	case "latest":
		return nil, rem.Latest(), nil
	case "partition":
		return nil, rem.Partition(op.N), nil
	case "sliding_window":
		return nil, rem.SlidingWindow(op.N), nil
	case "timed_window":
		return nil, rem.TimedWindow(op.Interval), nil
	case "rate_limit":
		return nil, rem.RateLimit(op.Interval), nil
	case "delay":
		return nil, rem.Delay(op.Interval), nil
	default:
		return nil, nil, fmt.Errorf("op %q is not valid inside a scattered section", op.Op)
	}
}

// Graph returns the underlying graph.
func (p *Pipeline) Graph() *stream.Graph { return p.graph }

// Head returns the source node, useful for emitting items by hand in tests.
func (p *Pipeline) Head() *stream.Stream { return p.head }

// Run drives the source until it is exhausted or ctx is canceled, then
// closes the graph. Emission blocks on downstream completion, so when Run
// returns every item has been fully processed.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.graph.Close()

	if p.source != nil {
		return p.source.Run(ctx)
	}
	for _, v := range p.def.Source.Values {
		if err := p.head.Emit(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// Results returns the items collected by a collect sink, in arrival order.
// It returns nil for other sink types.
func (p *Pipeline) Results() []any {
	if p.collected == nil {
		return nil
	}
	return p.collected.Items()
}
