// Package executor implements the in-process remote execution engine: a
// bounded task queue drained by a worker pool, a result store keyed by
// handle ID, and a function registry. Submitted functions are either Go
// functions registered by name or JavaScript source evaluated per task.
// The engine satisfies the executor.Client contract consumed by the
// dataflow graph.
package executor
