package client

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/dataflow-engine/api/rest"
	"yqhp/dataflow-engine/internal/executor"
	"yqhp/dataflow-engine/pkg/types"
)

// newTestClient 在随机端口上启动一个真实的引擎服务端，返回指向它的客户端。
func newTestClient(t *testing.T) *Client {
	t.Helper()

	reg := executor.NewRegistry()
	reg.MustRegister("double", func(args ...any) (any, error) {
		switch n := args[0].(type) {
		case float64:
			return n * 2, nil
		case int:
			return n * 2, nil
		default:
			return nil, fmt.Errorf("unsupported type %T", args[0])
		}
	})
	reg.MustRegister("fail", func(args ...any) (any, error) {
		return nil, fmt.Errorf("deliberate failure")
	})

	e := executor.NewEngine(&executor.Config{Workers: 2, QueueSize: 16}, reg)
	require.NoError(t, e.Start())
	t.Cleanup(e.Stop)

	cfg := rest.DefaultConfig()
	cfg.ResultTimeout = 2 * time.Second
	srv := rest.NewServer(e, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = srv.App().Listener(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown()
	})

	return NewClient(&Config{
		BaseURL:        "http://" + ln.Addr().String(),
		RequestTimeout: 2 * time.Second,
		GatherTimeout:  5 * time.Second,
	})
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.Health(context.Background()))
}

func TestClient_Health_ServerDown(t *testing.T) {
	c := NewClient(&Config{
		BaseURL:        "http://127.0.0.1:1",
		RequestTimeout: 200 * time.Millisecond,
		GatherTimeout:  200 * time.Millisecond,
	})
	assert.Error(t, c.Health(context.Background()))
}

func TestClient_SubmitAndResolve(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	h, err := c.Submit(ctx, types.Function{Name: "double"}, 21)
	require.NoError(t, err)
	require.NotEmpty(t, h.ID)

	v, err := c.ResolveAll(ctx, h)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestClient_Submit_InvalidFunction(t *testing.T) {
	c := newTestClient(t)

	// 本地校验失败，不会发请求
	_, err := c.Submit(context.Background(), types.Function{})
	assert.Error(t, err)
}

func TestClient_ScatterResolveRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	handles, err := c.Scatter(ctx, []any{"alpha", 7})
	require.NoError(t, err)
	require.Len(t, handles, 2)

	v, err := c.ResolveAll(ctx, handles[0])
	require.NoError(t, err)
	assert.Equal(t, "alpha", v)

	v, err = c.ResolveAll(ctx, handles[1])
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)
}

func TestClient_ResolveAll_NestedHandles(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	h, err := c.Submit(ctx, types.Function{Name: "double"}, 5)
	require.NoError(t, err)

	v, err := c.ResolveAll(ctx, []any{h, "plain"})
	require.NoError(t, err)

	got, ok := v.([]any)
	require.True(t, ok)
	assert.EqualValues(t, 10, got[0])
	assert.Equal(t, "plain", got[1])
}

func TestClient_ResolveAll_ChainedHandleArg(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	// 句柄作为下一个任务的参数，由引擎在执行前解析
	h1, err := c.Submit(ctx, types.Function{Name: "double"}, 3)
	require.NoError(t, err)
	h2, err := c.Submit(ctx, types.Function{Name: "double"}, h1)
	require.NoError(t, err)

	v, err := c.ResolveAll(ctx, h2)
	require.NoError(t, err)
	assert.EqualValues(t, 12, v)
}

func TestClient_ResolveAll_FailedTask(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	h, err := c.Submit(ctx, types.Function{Name: "fail"})
	require.NoError(t, err)

	_, err = c.ResolveAll(ctx, h)
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 422, remoteErr.StatusCode)
	assert.Equal(t, "task_failed", remoteErr.Code)
	assert.Contains(t, remoteErr.Message, "deliberate failure")
}

func TestClient_ResolveAll_UnknownHandle(t *testing.T) {
	c := newTestClient(t)

	_, err := c.ResolveAll(context.Background(), types.Handle{ID: "no-such-handle"})
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 404, remoteErr.StatusCode)
	assert.Equal(t, "unknown_handle", remoteErr.Code)
}

func TestClient_CanceledContext(t *testing.T) {
	c := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Submit(ctx, types.Function{Name: "double"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_DefaultConfig(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, "http://localhost:8080", c.config.BaseURL)
}
