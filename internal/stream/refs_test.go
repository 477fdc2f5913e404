package stream

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefTable_Release_FiresExactlyOnce(t *testing.T) {
	table := NewRefTable()

	var fired int32
	tok := NewToken(func() { atomic.AddInt32(&fired, 1) })
	md := Metadata{tok}

	table.Retain(md, 3)
	assert.Equal(t, 3, table.Count(tok))

	table.Release(md, 1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	table.Release(md, 1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	table.Release(md, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))

	assert.Equal(t, 0, table.Count(tok))
	assert.Equal(t, 0, table.Outstanding())
}

func TestRefTable_Release_WithoutRetainIsNoOp(t *testing.T) {
	table := NewRefTable()

	var fired int32
	tok := NewToken(func() { atomic.AddInt32(&fired, 1) })
	md := Metadata{tok}

	// 失败路径上的重复释放不应触发回调
	table.Release(md, 1)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	table.Retain(md, 1)
	table.Release(md, 1)
	table.Release(md, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestRefTable_Release_BatchDecrement(t *testing.T) {
	table := NewRefTable()

	var fired int32
	tok := NewToken(func() { atomic.AddInt32(&fired, 1) })
	md := Metadata{tok}

	table.Retain(md, 5)
	table.Release(md, 3)
	assert.Equal(t, 2, table.Count(tok))
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	table.Release(md, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestRefTable_NilAndZeroInputs(t *testing.T) {
	table := NewRefTable()

	tok := NewToken(nil)
	md := Metadata{tok, nil}

	table.Retain(md, 0)
	assert.Equal(t, 0, table.Outstanding())

	table.Retain(md, 1)
	assert.Equal(t, 1, table.Outstanding())

	// nil 回调的令牌释放时不应 panic
	assert.NotPanics(t, func() { table.Release(md, 1) })
	assert.Equal(t, 0, table.Outstanding())
}

func TestRefTable_MultipleTokensSharedMetadata(t *testing.T) {
	table := NewRefTable()

	var a, b int32
	md := Metadata{
		NamedToken("a", func() { atomic.AddInt32(&a, 1) }),
		NamedToken("b", func() { atomic.AddInt32(&b, 1) }),
	}

	table.Retain(md, 2)
	table.Release(md[:1], 2) // 只释放 a
	assert.Equal(t, int32(1), atomic.LoadInt32(&a))
	assert.Equal(t, int32(0), atomic.LoadInt32(&b))

	table.Release(md, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&a))
	assert.Equal(t, int32(1), atomic.LoadInt32(&b))
}

func TestRefTable_ConcurrentRetainRelease(t *testing.T) {
	table := NewRefTable()

	var fired int32
	tok := NewToken(func() { atomic.AddInt32(&fired, 1) })
	md := Metadata{tok}

	const branches = 64
	table.Retain(md, branches)

	var wg sync.WaitGroup
	for i := 0; i < branches; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.Release(md, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.Equal(t, 0, table.Outstanding())
}
