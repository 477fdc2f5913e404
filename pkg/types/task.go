package types

import "time"

// TaskState represents the lifecycle state of a submitted task.
type TaskState string

const (
	// TaskStatePending indicates the task is queued but not yet running.
	TaskStatePending TaskState = "pending"
	// TaskStateRunning indicates a worker is executing the task.
	TaskStateRunning TaskState = "running"
	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed indicates the task function returned an error.
	TaskStateFailed TaskState = "failed"
)

// Task represents one unit of work submitted to the executor. Args may
// contain Handles; the worker resolves them to concrete values before
// invoking the function.
type Task struct {
	ID       string   `json:"id"`
	Function Function `json:"function"`
	Args     []any    `json:"args"`
}

// TaskResult contains the outcome of a task execution.
// 推荐使用 NewTaskResult 创建，执行结束时调用 Finish 填充耗时。
type TaskResult struct {
	TaskID    string        `json:"task_id"`
	State     TaskState     `json:"state"`
	Value     any           `json:"value,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

// NewTaskResult 创建一个初始状态为 running 的 TaskResult。
func NewTaskResult(taskID string) *TaskResult {
	return &TaskResult{
		TaskID:    taskID,
		State:     TaskStateRunning,
		StartTime: time.Now(),
	}
}

// Complete 标记任务成功并记录返回值。
func (r *TaskResult) Complete(value any) {
	r.State = TaskStateCompleted
	r.Value = value
}

// Fail 标记任务失败。
func (r *TaskResult) Fail(err error) {
	r.State = TaskStateFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// Finish 完成结果构建，设置 Duration。
func (r *TaskResult) Finish() {
	r.Duration = time.Since(r.StartTime)
}

// IsSuccess 判断任务是否成功。
func (r *TaskResult) IsSuccess() bool {
	return r.State == TaskStateCompleted
}
