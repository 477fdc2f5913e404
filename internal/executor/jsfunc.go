package executor

import (
	"fmt"

	"github.com/dop251/goja"
)

// callScript 评估 JavaScript 源码并调用它返回的函数。
// 源码必须求值为一个函数，例如 "(x) => x * 2"。
// 每个任务使用独立的运行时，任务之间不共享任何 JS 状态。
func callScript(src string, args []any) (any, error) {
	vm := goja.New()

	v, err := vm.RunString(src)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("script: source did not evaluate to a function")
	}

	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = vm.ToValue(a)
	}

	res, err := fn(goja.Undefined(), jsArgs...)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return res.Export(), nil
}
