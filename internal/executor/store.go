package executor

import (
	"context"
	"sync"
)

// resultStore 按句柄 ID 保存任务结果。
// 每个条目带有 done 通道，等待方在任务完成前挂起。
type resultStore struct {
	entries map[string]*resultEntry
	mu      sync.Mutex
}

type resultEntry struct {
	done  chan struct{}
	value any
	err   error
}

func newResultStore() *resultStore {
	return &resultStore{
		entries: make(map[string]*resultEntry),
	}
}

// create 为任务预留一个未完成的条目。
func (s *resultStore) create(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; exists {
		return
	}
	s.entries[id] = &resultEntry{done: make(chan struct{})}
}

// complete 记录成功结果并唤醒所有等待方。
func (s *resultStore) complete(id string, value any) {
	s.finish(id, value, nil)
}

// fail 记录失败并唤醒所有等待方。
func (s *resultStore) fail(id string, err error) {
	s.finish(id, nil, err)
}

func (s *resultStore) finish(id string, value any, err error) {
	s.mu.Lock()
	e, exists := s.entries[id]
	if !exists {
		e = &resultEntry{done: make(chan struct{})}
		s.entries[id] = e
	}
	s.mu.Unlock()

	select {
	case <-e.done:
		// 已完成的条目不可变化
		return
	default:
	}
	e.value = value
	e.err = err
	close(e.done)
}

// put 直接存入一个已完成的值（scatter 使用）。
func (s *resultStore) put(id string, value any) {
	s.mu.Lock()
	e := &resultEntry{done: make(chan struct{}), value: value}
	close(e.done)
	s.entries[id] = e
	s.mu.Unlock()
}

// wait 挂起直到任务完成、ctx 取消或引擎停止。
func (s *resultStore) wait(ctx context.Context, id string, stop <-chan struct{}) (any, error) {
	s.mu.Lock()
	e, exists := s.entries[id]
	s.mu.Unlock()
	if !exists {
		return nil, ErrUnknownHandle
	}

	// 已完成的结果在引擎停止后仍然可取；stop 和 done 同时就绪时
	// select 会随机选择，所以先单独检查 done
	select {
	case <-e.done:
		return e.value, e.err
	default:
	}

	select {
	case <-e.done:
		return e.value, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-stop:
		return nil, ErrEngineStopped
	}
}

// len 返回存储的条目数量。
func (s *resultStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
