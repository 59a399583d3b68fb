package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"grn-sheet-sync-go/internal/scheduler"
)

// StartScheduler starts the scheduler
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "scheduler_error", Message: err.Error(), Code: http.StatusInternalServerError})
		return
	}
	c.Status(http.StatusOK)
}

// StopScheduler stops the scheduler
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "scheduler_error", Message: err.Error(), Code: http.StatusInternalServerError})
		return
	}
	c.Status(http.StatusOK)
}

// RunOnce starts a run in the background
func (h *Handlers) RunOnce(c *gin.Context) {
	err := h.scheduler.Trigger()
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "run_in_progress", Message: err.Error(), Code: http.StatusConflict})
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "scheduler_error", Message: err.Error(), Code: http.StatusInternalServerError})
	default:
		c.Status(http.StatusAccepted)
	}
}

// GetSchedulerStatus returns scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := "stopped"
	if h.scheduler.IsRunning() {
		status = "running"
	}
	c.JSON(http.StatusOK, SchedulerStatus{
		Status:  status,
		NextRun: timePtr(h.scheduler.GetNextRun()),
		LastRun: timePtr(h.scheduler.GetLastRun()),
	})
}
