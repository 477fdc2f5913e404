// Package types defines the shared data types of the dataflow engine:
// remote task descriptions, task results, function references and the
// opaque handles that stand in for remotely computed values.
package types
