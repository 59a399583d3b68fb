package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/extraction"
	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/report"
	"grn-sheet-sync-go/internal/repository"
	"grn-sheet-sync-go/internal/storage"
)

func TestRunnerFullRun(t *testing.T) {
	ctx := context.Background()
	fx := newSheetFixture(t)
	pdfs := filepath.Join(fx.root, storage.ArchiveRoot, "GRN", "PDFs")
	require.NoError(t, os.MkdirAll(pdfs, 0o755))

	// archived long ago: outside the extraction window, still listed as remaining
	writePDF(t, pdfs, "old_grn.pdf")
	old := time.Now().AddDate(0, -2, 0)
	require.NoError(t, os.Chtimes(filepath.Join(pdfs, "old_grn.pdf"), old, old))

	cfg := &config.Config{
		App:          config.AppConfig{Name: "GRN Sheet Sync"},
		Mail:         mailConfig(),
		Sheet:        config.SheetConfig{DaysBack: 7},
		Extraction:   config.ExtractionConfig{MaxAttempts: 2},
		Notification: config.NotificationConfig{Enabled: true, Recipients: []string{"ops@example.com"}},
	}

	source := &fakeSource{
		items: []models.MailItem{{ID: "m1"}},
		trees: map[string]*models.PartTree{"m1": nestedTree("m1", "GRN.pdf", "a1")},
		data:  map[string][]byte{"m1/a1": []byte("%PDF-1.4\n%fake\n")},
	}
	store := storage.NewLocalService(fx.root)
	repo := repository.New(nil)
	ext := &fakeExtractor{doc: grnDoc()}
	resolve := func(context.Context) (extraction.Extractor, error) { return ext, nil }

	mail := NewMailToStorage(cfg.Mail, source, store, repo, fx.metrics)
	sheet := NewStorageToSheet(cfg.Sheet, cfg.Extraction, store, resolve, fx.table, fx.reports, fx.metrics)
	sender := &fakeSender{}
	runner := NewRunner(cfg, mail, sheet, fx.reports, sender, repo, fx.metrics)

	_, ok := runner.LastSummary()
	assert.False(t, ok)

	summary, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Mail.Processed)
	assert.Equal(t, 1, summary.Sheet.Processed)
	assert.Equal(t, 2, summary.Sheet.RowsAdded)
	assert.Equal(t, 1, summary.Remaining)
	assert.Equal(t, report.StatusSuccess, summary.Status)

	logs := fx.rows(t, "workflow_logs")
	require.Len(t, logs, 3)
	assert.Equal(t, report.LogHeader, logs[0])
	assert.Equal(t, report.WorkflowMail, logs[1][3])
	assert.Equal(t, report.WorkflowSheet, logs[2][3])

	remaining := fx.rows(t, "remaining_files")
	require.Len(t, remaining, 2)
	assert.Equal(t, "old_grn.pdf", remaining[1][0])

	assert.Equal(t, "me@example.com", sender.from)
	assert.Equal(t, []string{"ops@example.com"}, sender.to)
	assert.True(t, strings.HasPrefix(sender.subject, "GRN Sheet Sync Report - "))
	assert.Contains(t, sender.body, "Workflow Status: SUCCESS")

	last, ok := runner.LastSummary()
	require.True(t, ok)
	assert.Equal(t, summary.RunID, last.RunID)
}

func TestRunnerMissingFolderFails(t *testing.T) {
	fx := newSheetFixture(t)
	cfg := &config.Config{
		App:  config.AppConfig{Name: "GRN Sheet Sync"},
		Mail: mailConfig(),
	}
	store := storage.NewLocalService(fx.root)
	repo := repository.New(nil)
	ext := &fakeExtractor{doc: grnDoc()}
	resolve := func(context.Context) (extraction.Extractor, error) { return ext, nil }

	runner := NewRunner(cfg,
		NewMailToStorage(cfg.Mail, &fakeSource{}, store, repo, fx.metrics),
		NewStorageToSheet(cfg.Sheet, cfg.Extraction, store, resolve, fx.table, fx.reports, fx.metrics),
		fx.reports, nil, repo, fx.metrics)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.StatusFailed, summary.Status)
	assert.Zero(t, ext.Calls())
	assert.Len(t, fx.rows(t, "workflow_logs"), 3)
}

func TestRunnerCancelledDuringDelay(t *testing.T) {
	fx := newSheetFixture(t)
	cfg := &config.Config{
		Mail:      mailConfig(),
		Scheduler: config.SchedulerConfig{WorkflowDelay: time.Hour},
	}
	store := storage.NewLocalService(fx.root)
	repo := repository.New(nil)
	resolve := func(context.Context) (extraction.Extractor, error) { return &fakeExtractor{}, nil }
	runner := NewRunner(cfg,
		NewMailToStorage(cfg.Mail, &fakeSource{}, store, repo, fx.metrics),
		NewStorageToSheet(cfg.Sheet, cfg.Extraction, store, resolve, fx.table, fx.reports, fx.metrics),
		fx.reports, nil, repo, fx.metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
