// Package executor defines the contract between execution-substituting
// dataflow operators and a remote execution service. Implementations live
// elsewhere: an in-process worker-pool engine and an HTTP client against a
// worker node both satisfy Client.
package executor

import (
	"context"

	"yqhp/dataflow-engine/pkg/types"
)

// Client is the capability a dataflow graph consumes to substitute local
// computation with remote execution. Operators never inspect the handles
// they move around; only ResolveAll trades handles for values.
type Client interface {
	// Submit schedules fn(args...) for remote execution and returns a
	// handle for the eventual result. It does not wait for the task to
	// run; it blocks only until the task is accepted for scheduling.
	// Args may contain handles, which the executor resolves before
	// invoking fn.
	Submit(ctx context.Context, fn types.Function, args ...any) (types.Handle, error)

	// ResolveAll replaces every handle inside v (which may be a plain
	// handle, or a nested structure of slices and string-keyed maps
	// containing handles) with its resolved value. It blocks until all
	// referenced computations complete and fails if any of them failed.
	ResolveAll(ctx context.Context, v any) (any, error)

	// Scatter transfers local values into executor-owned storage and
	// returns one handle per value, in order. Values are never
	// deduplicated by content.
	Scatter(ctx context.Context, values []any) ([]types.Handle, error)
}
