package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"yqhp/dataflow-engine/pkg/executor"
	"yqhp/dataflow-engine/pkg/logger"
	"yqhp/dataflow-engine/pkg/types"
)

// Config holds the engine configuration.
type Config struct {
	// Workers is the number of goroutines draining the task queue.
	Workers int `yaml:"workers"`

	// QueueSize bounds the number of tasks accepted but not yet picked
	// up by a worker.
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns a default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers:   4,
		QueueSize: 1024,
	}
}

// Engine 是进程内的远程执行引擎：有界任务队列 + 工作协程池 + 结果存储。
// 它实现 executor.Client 契约。
type Engine struct {
	config   *Config
	registry *Registry
	store    *resultStore
	stats    *statsRecorder

	tasks   chan *types.Task
	stop    chan struct{}
	running atomic.Bool
	wg      sync.WaitGroup
}

var _ executor.Client = (*Engine)(nil)

// NewEngine 创建一个新的执行引擎。
func NewEngine(config *Config, registry *Registry) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		config:   config,
		registry: registry,
		store:    newResultStore(),
		stats:    newStatsRecorder(),
		tasks:    make(chan *types.Task, config.QueueSize),
		stop:     make(chan struct{}),
	}
}

// Registry 返回引擎的函数注册表。
func (e *Engine) Registry() *Registry { return e.registry }

// Start 启动工作协程池。
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("executor: engine already running")
	}
	for i := 0; i < e.config.Workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	logger.Info("executor engine started with %d workers", e.config.Workers)
	return nil
}

// Stop 停止引擎。排队中未执行的任务被标记为失败，
// 以便等待这些句柄的一方不会永久挂起。
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.stop)
	e.wg.Wait()

	for {
		select {
		case t := <-e.tasks:
			e.store.fail(t.ID, ErrEngineStopped)
		default:
			return
		}
	}
}

// Submit 将 fn(args...) 排入任务队列并立即返回结果句柄。
// 只在任务被接受排队前阻塞，从不等待任务执行。
func (e *Engine) Submit(ctx context.Context, fn types.Function, args ...any) (types.Handle, error) {
	if err := fn.Validate(); err != nil {
		return types.Handle{}, err
	}
	if !e.running.Load() {
		return types.Handle{}, ErrEngineStopped
	}

	h := types.Handle{ID: uuid.NewString()}
	e.store.create(h.ID)
	t := &types.Task{ID: h.ID, Function: fn, Args: args}

	select {
	case e.tasks <- t:
		return h, nil
	case <-ctx.Done():
		e.store.fail(h.ID, ctx.Err())
		return types.Handle{}, ctx.Err()
	case <-e.stop:
		e.store.fail(h.ID, ErrEngineStopped)
		return types.Handle{}, ErrEngineStopped
	}
}

// ResolveAll 将 v 中的所有句柄替换为其解析值，挂起直到全部完成。
// v 可以是单个句柄，也可以是包含句柄的切片或字符串键映射。
func (e *Engine) ResolveAll(ctx context.Context, v any) (any, error) {
	switch t := v.(type) {
	case types.Handle:
		return e.store.wait(ctx, t.ID, e.stop)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			resolved, err := e.ResolveAll(ctx, item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			resolved, err := e.ResolveAll(ctx, item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// Scatter 将本地值存入结果存储并返回对应句柄，不做内容去重。
func (e *Engine) Scatter(ctx context.Context, values []any) ([]types.Handle, error) {
	if !e.running.Load() {
		return nil, ErrEngineStopped
	}
	handles := make([]types.Handle, len(values))
	for i, v := range values {
		h := types.Handle{ID: uuid.NewString()}
		e.store.put(h.ID, v)
		handles[i] = h
	}
	return handles, nil
}

// Stats 返回引擎的运行指标快照。
func (e *Engine) Stats() Stats {
	return e.stats.snapshot(e.store.len())
}

// worker 是工作协程主循环。
func (e *Engine) worker(id int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stop:
			return
		case t := <-e.tasks:
			e.runTask(t)
		}
	}
}

// runTask 解析句柄参数、调用函数并记录结果。
func (e *Engine) runTask(t *types.Task) {
	res := types.NewTaskResult(t.ID)

	args, err := e.resolveArgs(t.Args)
	if err == nil {
		var value any
		value, err = e.invoke(t.Function, args)
		if err == nil {
			res.Complete(value)
		}
	}
	if err != nil {
		res.Fail(err)
	}
	res.Finish()

	e.stats.record(res.Duration, !res.IsSuccess())
	if res.IsSuccess() {
		e.store.complete(t.ID, res.Value)
	} else {
		logger.Debug("task %s failed: %s", t.ID, res.Error)
		e.store.fail(t.ID, &TaskError{TaskID: t.ID, Message: res.Error})
	}
}

// resolveArgs 将参数中的句柄替换为已解析的值。
// 等待的任务可能尚未执行，由其他 worker 完成。
func (e *Engine) resolveArgs(args []any) ([]any, error) {
	resolved := make([]any, len(args))
	for i, a := range args {
		h, ok := a.(types.Handle)
		if !ok {
			resolved[i] = a
			continue
		}
		v, err := e.store.wait(context.Background(), h.ID, e.stop)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		resolved[i] = v
	}
	return resolved, nil
}

// invoke 调用注册函数或 JS 脚本函数，并把 panic 转换为任务失败。
func (e *Engine) invoke(fn types.Function, args []any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("function %s panicked: %v", fn, r)
		}
	}()

	if fn.Script != "" {
		return callScript(fn.Script, args)
	}
	f, err := e.registry.GetOrError(fn.Name)
	if err != nil {
		return nil, err
	}
	return f(args...)
}
