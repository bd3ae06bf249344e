package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collectarr/collectarr/internal/scheduler"
)

// listTasks returns all scheduled background tasks.
// GET /api/v1/system/tasks
func (s *Server) listTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Scheduler.ListTasks())
}

// getTask returns information about a specific task.
// GET /api/v1/system/tasks/:id
func (s *Server) getTask(c echo.Context) error {
	task, err := s.deps.Scheduler.GetTask(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, task)
}

// runTask manually triggers a task.
// POST /api/v1/system/tasks/:id/run
func (s *Server) runTask(c echo.Context) error {
	taskID := c.Param("id")
	if err := s.deps.Scheduler.RunNow(taskID); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrTaskNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, scheduler.ErrTaskAlreadyRunning):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Task started",
		"taskId":  taskID,
	})
}
