// Package client implements an HTTP client for the execution engine REST
// API. It satisfies the executor.Client contract, so a dataflow graph can
// submit work to a remote engine the same way it would to an in-process one.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"yqhp/dataflow-engine/api/rest"
	"yqhp/dataflow-engine/pkg/executor"
	"yqhp/dataflow-engine/pkg/types"
)

// Config holds the configuration for the HTTP client.
type Config struct {
	// BaseURL is the base URL of the engine (e.g., "http://localhost:8080").
	BaseURL string

	// RequestTimeout is the timeout for non-blocking HTTP requests.
	RequestTimeout time.Duration

	// GatherTimeout is the timeout for blocking gather requests; it bounds
	// how long the client waits for remote computations to finish.
	GatherTimeout time.Duration
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8080",
		RequestTimeout: 30 * time.Second,
		GatherTimeout:  5 * time.Minute,
	}
}

// Client is an HTTP implementation of executor.Client.
type Client struct {
	config *Config
	http   *fasthttp.Client
}

var _ executor.Client = (*Client)(nil)

// RemoteError reports a non-2xx response from the engine.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("engine returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// NewClient creates a new HTTP client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		config: config,
		http: &fasthttp.Client{
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// Submit sends the task to the engine and returns its handle. The engine
// acknowledges immediately; execution happens asynchronously.
func (c *Client) Submit(ctx context.Context, fn types.Function, args ...any) (types.Handle, error) {
	if err := fn.Validate(); err != nil {
		return types.Handle{}, err
	}

	var resp rest.TaskSubmitResponse
	err := c.post(ctx, "/api/v1/tasks", rest.TaskSubmitRequest{
		Function: fn,
		Args:     args,
	}, &resp, c.config.RequestTimeout)
	if err != nil {
		return types.Handle{}, err
	}
	return types.Handle{ID: resp.TaskID}, nil
}

// ResolveAll replaces every handle nested in v with its computed value,
// blocking until the remote computations finish.
func (c *Client) ResolveAll(ctx context.Context, v any) (any, error) {
	var resp rest.GatherResponse
	err := c.post(ctx, "/api/v1/gather", rest.GatherRequest{Value: v}, &resp, c.config.GatherTimeout)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Scatter uploads local values to the engine and returns a handle per value.
func (c *Client) Scatter(ctx context.Context, values []any) ([]types.Handle, error) {
	var resp rest.ScatterResponse
	err := c.post(ctx, "/api/v1/scatter", rest.ScatterRequest{Values: values}, &resp, c.config.RequestTimeout)
	if err != nil {
		return nil, err
	}
	handles := make([]types.Handle, len(resp.Handles))
	for i, id := range resp.Handles {
		handles[i] = types.Handle{ID: id}
	}
	return handles, nil
}

// Health reports whether the engine answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/health")
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := c.http.DoDeadline(req, resp, c.deadline(ctx, c.config.RequestTimeout)); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return &RemoteError{StatusCode: resp.StatusCode(), Code: "unhealthy"}
	}
	return nil
}

// post sends a JSON body and decodes a JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out any, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := c.http.DoDeadline(req, resp, c.deadline(ctx, timeout)); err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		remoteErr := &RemoteError{StatusCode: status, Code: "error", Message: string(resp.Body())}
		var errResp rest.ErrorResponse
		if json.Unmarshal(resp.Body(), &errResp) == nil && errResp.Error != "" {
			remoteErr.Code = errResp.Error
			remoteErr.Message = errResp.Message
		}
		// 失败任务的结果体带有 state 字段，普通错误体没有
		var resultResp rest.ResultResponse
		if json.Unmarshal(resp.Body(), &resultResp) == nil && resultResp.State == string(types.TaskStateFailed) {
			remoteErr.Code = "task_failed"
			remoteErr.Message = resultResp.Error
		}
		return remoteErr
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("failed to unmarshal response from %s: %w", path, err)
		}
	}
	return nil
}

// deadline derives the request deadline from the context, bounded by the
// configured timeout.
func (c *Client) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
