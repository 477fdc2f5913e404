package executor

import (
	"fmt"

	"yqhp/dataflow-engine/pkg/types"
)

// registerBuiltins 注册每个执行器实现都必须提供的内置函数。
func registerBuiltins(r *Registry) {
	r.funcs["identity"] = builtinIdentity
	r.funcs["getitem"] = builtinGetitem
	r.funcs["apply"] = func(args ...any) (any, error) {
		return builtinApply(r, args...)
	}
}

func builtinIdentity(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("identity: expected 1 argument, got %d", len(args))
	}
	return args[0], nil
}

// builtinGetitem indexes into a sequence or a string-keyed map. The remote
// fold operator uses it to split a (state, output) pair without resolving
// either half locally.
func builtinGetitem(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("getitem: expected 2 arguments, got %d", len(args))
	}
	switch c := args[0].(type) {
	case []any:
		i, err := asIndex(args[1])
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(c) {
			return nil, fmt.Errorf("getitem: index %d out of range for length %d", i, len(c))
		}
		return c[i], nil
	case map[string]any:
		key, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("getitem: map requires a string key, got %T", args[1])
		}
		v, exists := c[key]
		if !exists {
			return nil, fmt.Errorf("getitem: key %q not found", key)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("getitem: unsupported container %T", args[0])
	}
}

// builtinApply 在 worker 侧展开参数序列并调用目标函数：
// apply(fn, seq) = fn(seq...)。序列参数如果是句柄，已由引擎在调用前
// 解析，所以展开发生在值所在的地方。函数以数据形式到达——进程内是
// types.Function 本身，经过 HTTP 则是它的 JSON 映射。
func builtinApply(r *Registry, args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("apply: expected 2 arguments, got %d", len(args))
	}
	fn, err := asFunction(args[0])
	if err != nil {
		return nil, err
	}
	seq, ok := args[1].([]any)
	if !ok {
		return nil, fmt.Errorf("apply: expected a sequence of arguments, got %T", args[1])
	}
	if fn.Script != "" {
		return callScript(fn.Script, seq)
	}
	f, err := r.GetOrError(fn.Name)
	if err != nil {
		return nil, err
	}
	return f(seq...)
}

func asFunction(v any) (types.Function, error) {
	var fn types.Function
	switch t := v.(type) {
	case types.Function:
		fn = t
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			fn.Name = name
		}
		if script, ok := t["script"].(string); ok {
			fn.Script = script
		}
	default:
		return fn, fmt.Errorf("apply: unsupported function spec %T", v)
	}
	if err := fn.Validate(); err != nil {
		return fn, fmt.Errorf("apply: %w", err)
	}
	return fn, nil
}

func asIndex(v any) (int, error) {
	switch i := v.(type) {
	case int:
		return i, nil
	case int64:
		return int(i), nil
	case float64:
		return int(i), nil
	default:
		return 0, fmt.Errorf("getitem: unsupported index %T", v)
	}
}
