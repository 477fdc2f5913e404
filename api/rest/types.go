package rest

import "yqhp/dataflow-engine/pkg/types"

// TaskSubmitRequest is the body of POST /api/v1/tasks.
type TaskSubmitRequest struct {
	Function types.Function `json:"function"`
	Args     []any          `json:"args"`
}

// TaskSubmitResponse is the response of POST /api/v1/tasks. The task ID is
// the handle ID.
type TaskSubmitResponse struct {
	TaskID string `json:"task_id"`
}

// ResultResponse is the response of GET /api/v1/tasks/:id/result.
type ResultResponse struct {
	TaskID string `json:"task_id"`
	State  string `json:"state"`
	Value  any    `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ScatterRequest is the body of POST /api/v1/scatter.
type ScatterRequest struct {
	Values []any `json:"values"`
}

// ScatterResponse is the response of POST /api/v1/scatter.
type ScatterResponse struct {
	Handles []string `json:"handles"`
}

// GatherRequest is the body of POST /api/v1/gather. Value may be a handle
// or a nested structure containing handles.
type GatherRequest struct {
	Value any `json:"value"`
}

// GatherResponse is the response of POST /api/v1/gather.
type GatherResponse struct {
	Value any `json:"value"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the response of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// decodeValue rehydrates handles out of JSON-decoded data: a map with the
// single key "$handle" becomes a types.Handle. Everything else is walked
// recursively and returned as-is.
func decodeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := t["$handle"].(string); ok && len(t) == 1 {
			return types.Handle{ID: id}
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = decodeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = decodeValue(item)
		}
		return out
	default:
		return v
	}
}

func decodeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = decodeValue(a)
	}
	return out
}
