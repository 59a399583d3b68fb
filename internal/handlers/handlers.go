package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/repository"
)

// Scheduler is the scheduler surface exposed over HTTP.
type Scheduler interface {
	Start() error
	Stop() error
	Trigger() error
	IsRunning() bool
	GetNextRun() time.Time
	GetLastRun() time.Time
}

// SummarySource reports the latest run summary.
type SummarySource interface {
	LastSummary() (models.RunSummary, bool)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	repo      *repository.Repository
	scheduler Scheduler
	runs      SummarySource
	gatherer  prometheus.Gatherer
}

// NewHandlers creates new HTTP handlers
func NewHandlers(repo *repository.Repository, s Scheduler, runs SummarySource, gatherer prometheus.Gatherer) *Handlers {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{repo: repo, scheduler: s, runs: runs, gatherer: gatherer}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.GET("/runs", h.GetRuns)
		api.GET("/runs/latest", h.GetLatestRun)
		api.GET("/attachments", h.GetAttachments)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}
