package stream

import (
	"sync"

	"yqhp/dataflow-engine/pkg/logger"
)

// Token is a caller-supplied acknowledgment token attached to an item when
// it enters the graph. Its callback fires exactly once, when no in-flight
// branch holds a reference to it anymore.
type Token struct {
	ack  func()
	name string
}

// NewToken creates a token. ack may be nil.
func NewToken(ack func()) *Token {
	return &Token{ack: ack}
}

// NamedToken creates a token with a diagnostic name.
func NamedToken(name string, ack func()) *Token {
	return &Token{ack: ack, name: name}
}

func (t *Token) fire() {
	if t.ack != nil {
		t.ack()
	}
}

// Metadata is the ordered set of acknowledgment tokens riding along with an
// item. It is shared, never copied per branch; the RefTable tracks how many
// branches still hold it.
type Metadata []*Token

// RefTable tracks, per token, how many in-flight branches still reference
// it. It is owned by a single Graph, so independent graphs never share
// acknowledgment state. All mutation is atomic under one mutex; callbacks
// fire outside the lock.
type RefTable struct {
	mu     sync.Mutex
	counts map[*Token]int
}

// NewRefTable creates an empty table.
func NewRefTable() *RefTable {
	return &RefTable{counts: make(map[*Token]int)}
}

// Retain adds n references to every token in md. The first retain for a
// token creates its entry.
func (t *RefTable) Retain(md Metadata, n int) {
	if n <= 0 || len(md) == 0 {
		return
	}
	t.mu.Lock()
	for _, tok := range md {
		if tok == nil {
			continue
		}
		t.counts[tok] += n
	}
	t.mu.Unlock()
}

// Release removes n references from every token in md. A token whose count
// reaches zero is removed from the table and its callback fires, exactly
// once. Releasing a token with no live entry is a no-op: divergent branches
// on a failure path may release in any order without double-firing.
func (t *RefTable) Release(md Metadata, n int) {
	if n <= 0 || len(md) == 0 {
		return
	}
	var fired []*Token
	t.mu.Lock()
	for _, tok := range md {
		if tok == nil {
			continue
		}
		c, ok := t.counts[tok]
		if !ok {
			logger.Debug("release of token %p with no outstanding retain", tok)
			continue
		}
		c -= n
		if c <= 0 {
			delete(t.counts, tok)
			fired = append(fired, tok)
		} else {
			t.counts[tok] = c
		}
	}
	t.mu.Unlock()
	for _, tok := range fired {
		tok.fire()
	}
}

// Count returns the outstanding reference count for a token, zero if it has
// no entry.
func (t *RefTable) Count(tok *Token) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[tok]
}

// Outstanding returns the number of tokens with live entries.
func (t *RefTable) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}
