package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/raglegal/api/internal/service"
	"github.com/raglegal/api/pkg/response"
)

type TasksHandler struct {
	service *service.TaskService
}

func NewTasksHandler(svc *service.TaskService) *TasksHandler {
	return &TasksHandler{service: svc}
}

// Status handles GET /api/tasks/:taskId. Unknown or expired ids read as
// PENDING: the result store is time-bounded and a stale poll is not an
// error.
func (h *TasksHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if taskID == "" {
		return response.ValidationError(c, "Task ID is required", nil)
	}

	return response.OK(c, h.service.GetStatus(c.Context(), taskID))
}
