// Package report turns workflow statistics into audit rows, side tables and
// the run summary notification.
package report

import (
	"fmt"
	"strings"
	"time"

	"grn-sheet-sync-go/internal/models"
)

// Workflow names used in the audit log.
const (
	WorkflowMail  = "Mail to Storage"
	WorkflowSheet = "Storage to Sheet"
)

// Overall run states.
const (
	StatusSuccess        = "SUCCESS"
	StatusPartialSuccess = "PARTIAL SUCCESS"
	StatusFailed         = "FAILED"
)

// TimeLayout formats timestamps written to tables and mail.
const TimeLayout = "2006-01-02 15:04:05"

// Table headers.
var (
	LogHeader = []string{
		"Start Time", "End Time", "Duration", "Workflow",
		"Processed", "Total Items", "Failed", "Skipped", "Incomplete", "Status",
	}
	FailedHeader = []string{
		"Timestamp", "File Name", "File ID", "Status", "Items Extracted",
		"Completeness Score", "Issues", "Attempts", "Strategy Used",
	}
	RemainingHeader = []string{"File Name", "File ID", "Created Time"}
)

// FormatDuration renders d as seconds with two decimals below one minute,
// and as whole minutes and seconds from one minute on.
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 60 {
		return fmt.Sprintf("%.2fs", secs)
	}
	total := int(secs)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// OverallStatus is SUCCESS when the mail workflow succeeded and at least one
// file was processed, PARTIAL SUCCESS when only one of those holds and
// FAILED otherwise.
func OverallStatus(mailSuccess bool, sheetProcessed int) string {
	switch {
	case mailSuccess && sheetProcessed > 0:
		return StatusSuccess
	case mailSuccess || sheetProcessed > 0:
		return StatusPartialSuccess
	default:
		return StatusFailed
	}
}

func workflowStatus(ok bool) string {
	if ok {
		return "Success"
	}
	return "Failed"
}

// MailEntry builds the audit row of a mail-to-storage execution.
func MailEntry(start, end time.Time, s models.MailStats) models.WorkflowLogEntry {
	return models.WorkflowLogEntry{
		Start:      start,
		End:        end,
		Duration:   FormatDuration(end.Sub(start)),
		Workflow:   WorkflowMail,
		Processed:  s.Processed,
		TotalItems: s.TotalAttachments,
		Failed:     s.Failed,
		Status:     workflowStatus(s.Success),
	}
}

// SheetEntry builds the audit row of a storage-to-sheet execution. Total
// items is the number of rows written.
func SheetEntry(start, end time.Time, s models.SheetStats) models.WorkflowLogEntry {
	return models.WorkflowLogEntry{
		Start:      start,
		End:        end,
		Duration:   FormatDuration(end.Sub(start)),
		Workflow:   WorkflowSheet,
		Processed:  s.Processed,
		TotalItems: s.RowsAdded,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Incomplete: s.Incomplete,
		Status:     workflowStatus(s.Processed > 0),
	}
}

// LogCells lays out an audit row in LogHeader order.
func LogCells(e models.WorkflowLogEntry) []models.Value {
	return []models.Value{
		models.StringValue(e.Start.Format(TimeLayout)),
		models.StringValue(e.End.Format(TimeLayout)),
		models.StringValue(e.Duration),
		models.StringValue(e.Workflow),
		models.NumberValue(float64(e.Processed)),
		models.NumberValue(float64(e.TotalItems)),
		models.NumberValue(float64(e.Failed)),
		models.NumberValue(float64(e.Skipped)),
		models.NumberValue(float64(e.Incomplete)),
		models.StringValue(e.Status),
	}
}

// FailedCells lays out a failed extraction in FailedHeader order.
func FailedCells(f models.FailedExtraction) []models.Value {
	return []models.Value{
		models.StringValue(f.Timestamp.Format(TimeLayout)),
		models.StringValue(f.FileName),
		models.StringValue(f.FileID),
		models.StringValue(f.Status),
		models.NumberValue(float64(f.ItemsExtracted)),
		models.StringValue(fmt.Sprintf("%.2f%%", f.CompletenessScore*100)),
		models.StringValue(strings.Join(f.Issues, "; ")),
		models.NumberValue(float64(f.Attempts)),
		models.StringValue(f.StrategyUsed),
	}
}

// RemainingCells lays out a remaining file in RemainingHeader order.
func RemainingCells(f models.RemainingFile) []models.Value {
	created := ""
	if !f.CreatedAt.IsZero() {
		created = f.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []models.Value{
		models.StringValue(f.Name),
		models.StringValue(f.ID),
		models.StringValue(created),
	}
}

// Remaining returns the objects whose id is not in seen, keeping order.
func Remaining(objects []models.StoredObject, seen map[string]struct{}) []models.RemainingFile {
	var out []models.RemainingFile
	for _, o := range objects {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		out = append(out, models.RemainingFile{Name: o.Name, ID: o.ID, CreatedAt: o.CreatedAt})
	}
	return out
}
