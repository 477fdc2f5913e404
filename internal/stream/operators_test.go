package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_Starmap_SpreadsArgs(t *testing.T) {
	g := NewGraph()
	src := g.Source("pairs")
	out := src.Starmap(func(args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	}).SinkToList()

	emitAll(t, src, []any{1, 2}, []any{10, 20})

	assert.Equal(t, []any{3, 30}, out.Items())
}

func TestStream_Starmap_RejectsNonSlice(t *testing.T) {
	g := NewGraph()
	src := g.Source("pairs")
	src.Starmap(func(args []any) (any, error) { return nil, nil })

	err := src.Emit(context.Background(), 42)
	assert.Error(t, err)
}

func TestStream_Flatten_EmitsElements(t *testing.T) {
	g := NewGraph()
	src := g.Source("batches")
	out := src.Flatten().SinkToList()

	emitAll(t, src, []any{1, 2}, []any{3}, []int{4, 5})

	assert.Equal(t, []any{1, 2, 3, 4, 5}, out.Items())
}

func TestStream_Pluck_ExtractsPath(t *testing.T) {
	g := NewGraph()
	src := g.Source("events")
	plucked, err := src.Pluck("$.user.name")
	require.NoError(t, err)
	out := plucked.SinkToList()

	emitAll(t, src,
		map[string]any{"user": map[string]any{"name": "ada"}},
		map[string]any{"user": map[string]any{"id": 2}}, // 无匹配，丢弃
		map[string]any{"user": map[string]any{"name": "bob"}},
	)

	assert.Equal(t, []any{"ada", "bob"}, out.Items())
}

func TestStream_Pluck_InvalidExpression(t *testing.T) {
	g := NewGraph()
	src := g.Source("events")
	_, err := src.Pluck("$[")
	assert.Error(t, err)
}

func TestStream_AccumulateState_SeparatesStateFromOutput(t *testing.T) {
	g := NewGraph()
	src := g.Source("numbers")
	// 状态是累计和，发出的是每项占累计和的计数
	out := src.AccumulateState(func(state, x any) (any, any, error) {
		next := state.(int) + x.(int)
		return next, next * 10, nil
	}, WithStart(0)).SinkToList()

	emitAll(t, src, 1, 2, 3)

	assert.Equal(t, []any{10, 30, 60}, out.Items())
}

func TestStream_Accumulate_WithState_EmitsPairs(t *testing.T) {
	g := NewGraph()
	src := g.Source("numbers")
	out := src.Accumulate(func(state, x any) (any, error) {
		return state.(int) + x.(int), nil
	}, WithStart(0), WithState()).SinkToList()

	emitAll(t, src, 1, 2)

	assert.Equal(t, []any{[]any{1, 1}, []any{3, 3}}, out.Items())
}

func TestStream_Scan_IsAccumulate(t *testing.T) {
	g := NewGraph()
	src := g.Source("numbers")
	out := src.Scan(func(state, x any) (any, error) {
		return state.(int) + x.(int), nil
	}, WithStart(0)).SinkToList()

	emitAll(t, src, 1, 2, 3)

	assert.Equal(t, []any{1, 3, 6}, out.Items())
}

func TestStream_Sink_ErrorPropagates(t *testing.T) {
	g := NewGraph()
	src := g.Source("numbers")
	boom := errors.New("sink failed")
	src.Sink(func(x any) error { return boom })

	err := src.Emit(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestCollected_CopiesItems(t *testing.T) {
	g := NewGraph()
	src := g.Source("numbers")
	out := src.SinkToList()

	emitAll(t, src, 1, 2)

	items := out.Items()
	items[0] = 99
	assert.Equal(t, []any{1, 2}, out.Items())
	assert.Equal(t, 2, out.Len())
}
