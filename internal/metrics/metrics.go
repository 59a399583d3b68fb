package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeIncomplete = "incomplete"
	OutcomeFailed     = "failed"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	EmailsScanned       prometheus.Counter
	AttachmentsArchived prometheus.Counter
	AttachmentFailures  prometheus.Counter
	ExtractionAttempts  prometheus.Counter
	ExtractionOutcomes  *prometheus.CounterVec
	RowsWritten         prometheus.Counter
	RunDuration         *prometheus.HistogramVec
	LastRunTimestamp    prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		EmailsScanned: f.NewCounter(prometheus.CounterOpts{
			Name: "grn_sheet_sync_emails_scanned_total",
			Help: "Total number of messages returned by mailbox searches",
		}),
		AttachmentsArchived: f.NewCounter(prometheus.CounterOpts{
			Name: "grn_sheet_sync_attachments_archived_total",
			Help: "Total number of attachments uploaded to storage",
		}),
		AttachmentFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "grn_sheet_sync_attachment_failures_total",
			Help: "Total number of attachments that could not be archived",
		}),
		ExtractionAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "grn_sheet_sync_extraction_attempts_total",
			Help: "Total number of extraction calls, retries included",
		}),
		ExtractionOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grn_sheet_sync_extraction_outcomes_total",
			Help: "Processed files by extraction outcome",
		}, []string{"outcome"}),
		RowsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "grn_sheet_sync_rows_written_total",
			Help: "Total number of rows appended to the destination sheet",
		}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grn_sheet_sync_workflow_duration_seconds",
			Help:    "Time spent per workflow execution",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"workflow"}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "grn_sheet_sync_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
}
