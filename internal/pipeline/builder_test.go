package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/dataflow-engine/internal/executor"
	"yqhp/dataflow-engine/internal/remote"
	"yqhp/dataflow-engine/internal/stream"
	"yqhp/dataflow-engine/pkg/types"
)

func newTestEngine(t *testing.T) *executor.Engine {
	t.Helper()
	reg := executor.NewRegistry()
	reg.MustRegister("double", func(args ...any) (any, error) {
		return toInt(args[0]) * 2, nil
	})
	reg.MustRegister("add", func(args ...any) (any, error) {
		return toInt(args[0]) + toInt(args[1]), nil
	})
	reg.MustRegister("big", func(args ...any) (any, error) {
		return toInt(args[0]) > 3, nil
	})

	e := executor.NewEngine(&executor.Config{Workers: 4, QueueSize: 64}, reg)
	require.NoError(t, e.Start())
	t.Cleanup(e.Stop)
	return e
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func TestBuild_ScatterMapGather(t *testing.T) {
	def := &Definition{
		Name:   "doubler",
		Source: Source{Type: "values", Values: []any{1, 2, 3}},
		Ops: []OpSpec{
			{Op: "scatter"},
			{Op: "map", Function: FunctionRef{Name: "double"}},
			{Op: "gather"},
		},
		Sink: Sink{Type: "collect"},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []any{2, 4, 6}, p.Results())
}

func TestBuild_MatchesHandBuiltGraph(t *testing.T) {
	e := newTestEngine(t)

	def := &Definition{
		Name:   "acc",
		Source: Source{Type: "values", Values: []any{1, 2, 3}},
		Ops: []OpSpec{
			{Op: "scatter"},
			{Op: "accumulate", Function: FunctionRef{Name: "add"}, Start: 0},
			{Op: "gather"},
		},
		Sink: Sink{Type: "collect"},
	}
	p, err := Build(def, e)
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	// 手工搭建的等价图
	g := stream.NewGraph()
	defer g.Close()
	src := g.Source("acc")
	hand := remote.Scatter(src, e).
		Accumulate(types.Function{Name: "add"}, remote.WithStart(0)).
		Gather().
		SinkToList()
	for _, v := range []any{1, 2, 3} {
		require.NoError(t, src.Emit(context.Background(), v))
	}

	assert.Equal(t, hand.Items(), p.Results())
}

func TestBuild_StarmapPipeline(t *testing.T) {
	def := &Definition{
		Name:   "pairs",
		Source: Source{Type: "values", Values: []any{[]any{1, 2}, []any{3, 4}}},
		Ops: []OpSpec{
			{Op: "scatter"},
			{Op: "starmap", Function: FunctionRef{Name: "add"}},
			{Op: "gather"},
		},
		Sink: Sink{Type: "collect"},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	// 散布后的句柄由 worker 侧展开为参数序列
	assert.Equal(t, []any{3, 7}, p.Results())
}

func TestBuild_FilterPipeline(t *testing.T) {
	def := &Definition{
		Name:   "filtered",
		Source: Source{Type: "values", Values: []any{1, 2, 3, 4, 5}},
		Ops: []OpSpec{
			{Op: "scatter"},
			{Op: "filter", Function: FunctionRef{Name: "big"}},
			{Op: "gather"},
		},
		Sink: Sink{Type: "collect"},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	// filter 通过的是散布后的句柄，gather 解析回原值
	assert.Equal(t, []any{4, 5}, p.Results())
}

func TestBuild_ScriptPipeline(t *testing.T) {
	def := &Definition{
		Name:   "js",
		Source: Source{Type: "values", Values: []any{10}},
		Ops: []OpSpec{
			{Op: "scatter"},
			{Op: "map", Function: FunctionRef{Script: "(x) => x + 5"}},
			{Op: "gather"},
		},
		Sink: Sink{Type: "collect"},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, p.Results(), 1)
	assert.EqualValues(t, 15, p.Results()[0])
}

func TestBuild_LocalStructuralOps(t *testing.T) {
	def := &Definition{
		Name:   "partitioned",
		Source: Source{Type: "values", Values: []any{1, 2, 3, 4}},
		Ops: []OpSpec{
			{Op: "partition", N: 2},
		},
		Sink: Sink{Type: "collect"},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []any{[]any{1, 2}, []any{3, 4}}, p.Results())
}

func TestBuild_PluckPipeline(t *testing.T) {
	def := &Definition{
		Name: "plucked",
		Source: Source{Type: "values", Values: []any{
			map[string]any{"user": map[string]any{"name": "ada"}},
			map[string]any{"user": map[string]any{"name": "bob"}},
		}},
		Ops: []OpSpec{
			{Op: "pluck", Path: "$.user.name"},
		},
		Sink: Sink{Type: "collect"},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []any{"ada", "bob"}, p.Results())
}

func TestBuild_TextFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))

	def := &Definition{
		Name:   "reader",
		Source: Source{Type: "textfile", Path: path},
		Sink:   Sink{Type: "collect"},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []any{"a", "b"}, p.Results())
}

func TestBuild_InvalidDefinition(t *testing.T) {
	def := &Definition{
		Name:   "bad",
		Source: Source{Type: "values", Values: []any{1}},
		Ops:    []OpSpec{{Op: "gather"}},
	}
	_, err := Build(def, newTestEngine(t))
	assert.Error(t, err)
}

func TestBuild_LogSinkReturnsNilResults(t *testing.T) {
	def := &Definition{
		Name:   "logged",
		Source: Source{Type: "values", Values: []any{1}},
	}

	p, err := Build(def, newTestEngine(t))
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	assert.Nil(t, p.Results())
	assert.NotNil(t, p.Graph())
	assert.NotNil(t, p.Head())
}
