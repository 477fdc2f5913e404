package rest

import (
	"context"
	"errors"
	"time"

	"yqhp/dataflow-engine/internal/executor"
	"yqhp/dataflow-engine/pkg/types"

	"github.com/gofiber/fiber/v2"
)

// submitTask handles POST /api/v1/tasks. It enqueues the task and returns
// the handle ID immediately without waiting for execution.
func (s *Server) submitTask(c *fiber.Ctx) error {
	var req TaskSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
	}
	if err := req.Function.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_function",
			Message: err.Error(),
		})
	}

	h, err := s.engine.Submit(c.Context(), req.Function, decodeArgs(req.Args)...)
	if err != nil {
		if errors.Is(err, executor.ErrEngineStopped) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
				Error:   "engine_stopped",
				Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "submit_failed",
			Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(TaskSubmitResponse{TaskID: h.ID})
}

// getTaskResult handles GET /api/v1/tasks/:id/result. It blocks until the
// task finishes or the result timeout expires.
func (s *Server) getTaskResult(c *fiber.Ctx) error {
	id := c.Params("id")

	timeout := s.config.ResultTimeout
	if q := c.Query("timeout"); q != "" {
		if d, err := time.ParseDuration(q); err == nil && d > 0 {
			timeout = d
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), timeout)
	defer cancel()

	value, err := s.engine.ResolveAll(ctx, types.Handle{ID: id})
	if err != nil {
		switch {
		case errors.Is(err, executor.ErrUnknownHandle):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "unknown_handle",
				Message: "No task with ID " + id,
			})
		case errors.Is(err, context.DeadlineExceeded):
			return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
				Error:   "result_timeout",
				Message: "Task " + id + " did not finish in time",
			})
		default:
			var taskErr *executor.TaskError
			if errors.As(err, &taskErr) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(ResultResponse{
					TaskID: id,
					State:  string(types.TaskStateFailed),
					Error:  taskErr.Message,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "result_failed",
				Message: err.Error(),
			})
		}
	}

	return c.JSON(ResultResponse{
		TaskID: id,
		State:  string(types.TaskStateCompleted),
		Value:  value,
	})
}

// scatter handles POST /api/v1/scatter. Each value is stored and exchanged
// for a handle.
func (s *Server) scatter(c *fiber.Ctx) error {
	var req ScatterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
	}

	handles, err := s.engine.Scatter(c.Context(), decodeArgs(req.Values))
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "scatter_failed",
			Message: err.Error(),
		})
	}

	ids := make([]string, len(handles))
	for i, h := range handles {
		ids[i] = h.ID
	}
	return c.JSON(ScatterResponse{Handles: ids})
}

// gather handles POST /api/v1/gather. Handles nested anywhere in the value
// are replaced by their resolved results; the call blocks until all of them
// finish.
func (s *Server) gather(c *fiber.Ctx) error {
	var req GatherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), s.config.ResultTimeout)
	defer cancel()

	value, err := s.engine.ResolveAll(ctx, decodeValue(req.Value))
	if err != nil {
		switch {
		case errors.Is(err, executor.ErrUnknownHandle):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "unknown_handle",
				Message: err.Error(),
			})
		case errors.Is(err, context.DeadlineExceeded):
			return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
				Error:   "gather_timeout",
				Message: "Not all handles finished in time",
			})
		default:
			var taskErr *executor.TaskError
			if errors.As(err, &taskErr) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
					Error:   "task_failed",
					Message: taskErr.Message,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error:   "gather_failed",
				Message: err.Error(),
			})
		}
	}

	return c.JSON(GatherResponse{Value: value})
}

// getStats handles GET /api/v1/stats.
func (s *Server) getStats(c *fiber.Ctx) error {
	return c.JSON(s.engine.Stats())
}

// healthCheck handles GET /health and GET /ready.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
