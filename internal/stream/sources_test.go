package stream

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_FromTextFile_EmitsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644))

	g := NewGraph()
	src := g.FromTextFile(path)
	out := src.SinkToList()

	require.NoError(t, src.Run(context.Background()))

	assert.Equal(t, []any{"alpha", "beta", "gamma"}, out.Items())
}

func TestGraph_FromTextFile_MissingFile(t *testing.T) {
	g := NewGraph()
	src := g.FromTextFile("/nonexistent/input.txt")
	src.SinkToList()

	err := src.Run(context.Background())
	assert.Error(t, err)
}

func TestGraph_Filenames_EmitsNewFilesOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	g := NewGraph()
	src := g.Filenames(dir, 10*time.Millisecond)
	out := src.SinkToList()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := src.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 多轮轮询不重复发出同一路径
	assert.ElementsMatch(t, []any{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
	}, out.Items())
}

func TestGraph_Filenames_PicksUpLateFiles(t *testing.T) {
	dir := t.TempDir()

	g := NewGraph()
	src := g.Filenames(dir, 10*time.Millisecond)
	out := src.SinkToList()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = src.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return out.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []any{filepath.Join(dir, "late.txt")}, out.Items())
}
