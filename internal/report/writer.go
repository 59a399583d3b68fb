package report

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/sheets"
)

// Writer persists run reports to the audit log and the two snapshot tables.
type Writer struct {
	log       *sheets.Table
	failed    *sheets.Table
	remaining *sheets.Table
}

// NewWriter creates a report writer
func NewWriter(log, failed, remaining *sheets.Table) *Writer {
	return &Writer{log: log, failed: failed, remaining: remaining}
}

// LogWorkflow appends one audit row, writing the header first when the log
// table is empty.
func (w *Writer) LogWorkflow(ctx context.Context, e models.WorkflowLogEntry) error {
	header, err := w.log.Header(ctx)
	if err != nil {
		return fmt.Errorf("failed to read log header: %w", err)
	}

	rows := make([][]models.Value, 0, 2)
	if len(header) == 0 {
		head := make([]models.Value, len(LogHeader))
		for i, h := range LogHeader {
			head[i] = models.StringValue(h)
		}
		rows = append(rows, head)
	}
	rows = append(rows, LogCells(e))

	if err := w.log.Append(ctx, rows); err != nil {
		return fmt.Errorf("failed to log workflow: %w", err)
	}
	logrus.Infof("Logged workflow: %s", e.Workflow)
	return nil
}

// SaveFailed replaces the failed-extractions snapshot.
func (w *Writer) SaveFailed(ctx context.Context, failures []models.FailedExtraction) error {
	rows := make([][]models.Value, len(failures))
	for i, f := range failures {
		rows[i] = FailedCells(f)
	}
	if err := w.failed.Overwrite(ctx, FailedHeader, rows); err != nil {
		return fmt.Errorf("failed to save failed extractions: %w", err)
	}
	logrus.Infof("Saved %d failed/incomplete extractions to %s", len(failures), w.failed.Name())
	return nil
}

// SaveRemaining replaces the remaining-files snapshot.
func (w *Writer) SaveRemaining(ctx context.Context, files []models.RemainingFile) error {
	rows := make([][]models.Value, len(files))
	for i, f := range files {
		rows[i] = RemainingCells(f)
	}
	if err := w.remaining.Overwrite(ctx, RemainingHeader, rows); err != nil {
		return fmt.Errorf("failed to save remaining files: %w", err)
	}
	logrus.Infof("Saved %d remaining files to %s", len(files), w.remaining.Name())
	return nil
}
