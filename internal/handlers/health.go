package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "disabled",
		Scheduler: "stopped",
		Details:   make(map[string]string),
	}

	if h.repo.Enabled() {
		response.Database = "ok"
		if err := h.repo.Ping(c.Request.Context()); err != nil {
			response.Status = "error"
			response.Database = "error"
			logrus.Errorf("Database health check failed: %v", err)
		}
	}

	if h.scheduler.IsRunning() {
		response.Scheduler = "running"
		response.Details["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
	}
	if last := h.scheduler.GetLastRun(); !last.IsZero() {
		response.Details["last_run"] = last.Format(time.RFC3339)
	}
	if summary, ok := h.runs.LastSummary(); ok {
		response.Details["last_status"] = summary.Status
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
