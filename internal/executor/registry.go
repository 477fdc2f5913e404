package executor

import (
	"fmt"
	"sync"
)

// Func 是可按名称注册并被远程任务调用的函数。
type Func func(args ...any) (any, error)

// Registry 管理函数的注册和查找。
type Registry struct {
	funcs map[string]Func
	mu    sync.RWMutex
}

// NewRegistry 创建一个新的函数注册表，内置函数已注册。
func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	registerBuiltins(r)
	return r
}

// Register 为给定名称注册函数。
// 如果该名称已注册函数，则返回错误。
func (r *Registry) Register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("不能注册空函数")
	}
	if name == "" {
		return fmt.Errorf("函数名称不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("函数名称已注册: %s", name)
	}

	r.funcs[name] = fn
	return nil
}

// MustRegister 注册函数，如果出错则 panic。
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Unregister 移除给定名称的函数。
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.funcs, name)
}

// Get 按名称获取函数。
// 如果该名称没有注册函数，则返回 nil。
func (r *Registry) Get(name string) Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funcs[name]
}

// GetOrError 按名称获取函数，如果不存在则返回错误。
func (r *Registry) GetOrError(name string) (Func, error) {
	fn := r.Get(name)
	if fn == nil {
		return nil, NewUnknownFunctionError(name)
	}
	return fn, nil
}

// Has 检查给定名称是否已注册函数。
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.funcs[name]
	return exists
}

// Names 返回所有已注册的函数名称。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}

// Count 返回已注册函数的数量。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}
