package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/drona-gyawali/Supportix/internal/worker"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// TasksHandler exposes manual triggers for the background tasks, useful for
// operations and scripted runs when the scheduler is disabled.
type TasksHandler struct {
	scheduler *worker.Scheduler
}

// NewTasksHandler constructs the handler.
func NewTasksHandler(scheduler *worker.Scheduler) *TasksHandler {
	return &TasksHandler{scheduler: scheduler}
}

// Run POST /tasks/:name/run.
func (h *TasksHandler) Run(c *fiber.Ctx) error {
	name := c.Params("name")

	var items int
	var err error
	switch name {
	case worker.TaskQueueDrain:
		items, err = h.scheduler.RunQueueDrain(c.UserContext())
	case worker.TaskLoadBalance:
		items, err = h.scheduler.RunLoadBalance(c.UserContext())
	case worker.TaskStaleReaper:
		items, err = h.scheduler.RunStaleReaper(c.UserContext())
	case worker.TaskRuleSweep:
		items, err = h.scheduler.RunRuleSweep(c.UserContext())
	default:
		return util.NewNotFound("task", map[string]any{"task": name})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"task":  name,
		"items": items,
	}})
}
