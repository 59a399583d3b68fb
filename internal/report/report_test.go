package report

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/sheets"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{12340 * time.Millisecond, "12.34s"},
		{59 * time.Second, "59.00s"},
		{60 * time.Second, "1m 0s"},
		{125 * time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestOverallStatus(t *testing.T) {
	assert.Equal(t, StatusSuccess, OverallStatus(true, 3))
	assert.Equal(t, StatusPartialSuccess, OverallStatus(true, 0))
	assert.Equal(t, StatusPartialSuccess, OverallStatus(false, 1))
	assert.Equal(t, StatusFailed, OverallStatus(false, 0))
}

func TestEntries(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	mail := MailEntry(start, end, models.MailStats{Success: true, Processed: 2, TotalAttachments: 3, Failed: 1})
	assert.Equal(t, WorkflowMail, mail.Workflow)
	assert.Equal(t, "1m 30s", mail.Duration)
	assert.Equal(t, 2, mail.Processed)
	assert.Equal(t, 3, mail.TotalItems)
	assert.Equal(t, "Success", mail.Status)

	sheet := SheetEntry(start, end, models.SheetStats{Processed: 0, RowsAdded: 0, Failed: 4, Skipped: 2})
	assert.Equal(t, WorkflowSheet, sheet.Workflow)
	assert.Equal(t, "Failed", sheet.Status)
	assert.Equal(t, 2, sheet.Skipped)

	cells := LogCells(mail)
	require.Len(t, cells, len(LogHeader))
	assert.Equal(t, "2024-05-01 10:00:00", cells[0].String())
	assert.Equal(t, "2024-05-01 10:01:30", cells[1].String())
}

func TestFailedCells(t *testing.T) {
	cells := FailedCells(models.FailedExtraction{
		Timestamp:         time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		FileName:          "m1_GRN.pdf",
		FileID:            "F1",
		Status:            models.StatusExtractionFailed,
		CompletenessScore: 0.5,
		Issues:            []string{"a", "b"},
		Attempts:          5,
		StrategyUsed:      models.StrategyStandardRetry,
	})
	require.Len(t, cells, len(FailedHeader))
	assert.Equal(t, "50.00%", cells[5].String())
	assert.Equal(t, "a; b", cells[6].String())
	assert.Equal(t, models.StrategyStandardRetry, cells[8].String())
}

func TestRemaining(t *testing.T) {
	objects := []models.StoredObject{{ID: "A", Name: "a.pdf"}, {ID: "B", Name: "b.pdf"}, {ID: "C", Name: "c.pdf"}}
	got := Remaining(objects, map[string]struct{}{"B": {}})
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].ID)
	assert.Equal(t, "C", got[1].ID)
}

func TestSummaryBody(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	body := SummaryBody(SummaryContext{
		AppName:       "GRN Sheet Sync",
		Sender:        "vendor@example.com",
		SearchTerm:    "GRN",
		MailDaysBack:  7,
		SheetDaysBack: 7,
	}, models.RunSummary{
		Mail:          models.MailStats{Success: true, Processed: 2, EmailsProcessed: 2},
		Sheet:         models.SheetStats{TotalFiles: 3, Processed: 2, RowsAdded: 5},
		TotalDuration: 75 * time.Second,
		Status:        StatusSuccess,
	}, now)

	assert.Contains(t, body, "Report Time: 2024-05-01 10:00:00")
	assert.Contains(t, body, "Sender Filter: vendor@example.com")
	assert.Contains(t, body, "Number of files found (last 7 days): 3")
	assert.Contains(t, body, "Total rows added to sheet: 5")
	assert.Contains(t, body, "Total Duration: 1m 15s")
	assert.Contains(t, body, "Workflow Status: SUCCESS")
	assert.True(t, strings.HasPrefix(body, "GRN SHEET SYNC WORKFLOW SUMMARY\n"))
	assert.Equal(t, "GRN Sheet Sync Report - 2024-05-01 10:00:00", Subject("GRN Sheet Sync", now))
}

func newWriter(t *testing.T) (*Writer, *sheets.ExcelService, string) {
	t.Helper()
	svc := sheets.NewExcelService()
	t.Cleanup(func() { _ = svc.Close() })
	path := filepath.Join(t.TempDir(), "logs.xlsx")
	w := NewWriter(
		sheets.NewTable(svc, path, "workflow_logs", 1, 0),
		sheets.NewTable(svc, path, "failed_extractions", 1, 0),
		sheets.NewTable(svc, path, "remaining_files", 1, 0),
	)
	return w, svc, path
}

func TestWriterLogWorkflowWritesHeaderOnce(t *testing.T) {
	ctx := context.Background()
	w, svc, path := newWriter(t)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, w.LogWorkflow(ctx, MailEntry(start, start.Add(time.Second), models.MailStats{Success: true})))
	require.NoError(t, w.LogWorkflow(ctx, SheetEntry(start, start.Add(time.Second), models.SheetStats{Processed: 1})))

	rows, err := svc.ReadRange(ctx, path, "workflow_logs")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, LogHeader, rows[0])
	assert.Equal(t, WorkflowMail, rows[1][3])
	assert.Equal(t, WorkflowSheet, rows[2][3])
}

func TestWriterSnapshotsReplacePreviousContent(t *testing.T) {
	ctx := context.Background()
	w, svc, path := newWriter(t)

	first := []models.FailedExtraction{
		{FileName: "a.pdf", FileID: "A", Status: models.StatusNoRows},
		{FileName: "b.pdf", FileID: "B", Status: models.StatusNoRows},
	}
	require.NoError(t, w.SaveFailed(ctx, first))
	require.NoError(t, w.SaveFailed(ctx, first[:1]))

	rows, err := svc.ReadRange(ctx, path, "failed_extractions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, FailedHeader, rows[0])
	assert.Equal(t, "A", rows[1][2])

	require.NoError(t, w.SaveRemaining(ctx, nil))
	rows, err = svc.ReadRange(ctx, path, "remaining_files")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, RemainingHeader, rows[0])
}
