// Package stream implements the push-based dataflow graph the engine is
// built on. A Graph owns an acknowledgment refcount table; Stream nodes are
// linked upstream to downstream and push items through Forward, which does
// not return until every downstream consumer has finished with the item
// (the backpressure contract). Metadata tokens attached to an item are
// reference-counted across fan-out so their acknowledgment callback fires
// exactly once, after the whole downstream tree is done.
//
// Processing is serialized per node: a node's routine never runs
// concurrently with itself. Concurrency arises across sibling downstream
// branches, which are awaited together.
package stream
