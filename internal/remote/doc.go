// Package remote provides the execution-substituting operator family: a
// remote-aware stream whose transform, filter and fold operators do not
// compute anything locally. They submit the computation to a remote
// executor and push the resulting handle downstream as if it were the
// value. Values enter handle space through Scatter and leave it through
// Gather, the only point in a graph that blocks on remote completion.
//
// The operators are built by composition: each one is a processing routine
// injected into a plain stream node, so structural operators (buffer, zip,
// windows, ...) are inherited from the base engine unchanged and carry
// handles as inert payloads.
package remote
