package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineStopped 表示引擎未运行，无法接受任务。
	ErrEngineStopped = errors.New("executor: engine not running")

	// ErrUnknownHandle 表示句柄不属于该执行器。
	ErrUnknownHandle = errors.New("executor: unknown handle")
)

// UnknownFunctionError 表示按名称查找函数失败。
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("executor: function not registered: %s", e.Name)
}

// NewUnknownFunctionError 创建函数未注册错误。
func NewUnknownFunctionError(name string) *UnknownFunctionError {
	return &UnknownFunctionError{Name: name}
}

// TaskError wraps the failure of a remote computation; it surfaces at the
// point the handle is resolved.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("executor: task %s failed: %s", e.TaskID, e.Message)
}
