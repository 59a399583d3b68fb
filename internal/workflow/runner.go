package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/mailbox"
	"grn-sheet-sync-go/internal/metrics"
	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/report"
	"grn-sheet-sync-go/internal/repository"
	"grn-sheet-sync-go/internal/storage"
)

// Runner executes one scheduled run: mail to storage, a pause, storage to
// sheet, the remaining-files snapshot and the summary notification.
type Runner struct {
	cfg     *config.Config
	mail    *MailToStorage
	sheet   *StorageToSheet
	reports *report.Writer
	sender  mailbox.Sender
	repo    *repository.Repository
	metrics *metrics.Metrics
	now     func() time.Time

	mu   sync.RWMutex
	last *models.RunSummary
}

// NewRunner creates a new runner. sender may be nil, which disables the
// summary notification.
func NewRunner(cfg *config.Config, mail *MailToStorage, sheet *StorageToSheet, reports *report.Writer,
	sender mailbox.Sender, repo *repository.Repository, m *metrics.Metrics) *Runner {
	return &Runner{
		cfg:     cfg,
		mail:    mail,
		sheet:   sheet,
		reports: reports,
		sender:  sender,
		repo:    repo,
		metrics: m,
		now:     time.Now,
	}
}

// LastSummary returns the summary of the latest completed run.
func (r *Runner) LastSummary() (models.RunSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return models.RunSummary{}, false
	}
	return *r.last, true
}

// Run executes both workflows in sequence. Workflow failures are reported
// in the summary; the error is non-nil only when ctx ends mid-run.
func (r *Runner) Run(ctx context.Context) (models.RunSummary, error) {
	summary := models.RunSummary{RunID: uuid.NewString(), Started: r.now()}
	log := logrus.WithField("run_id", summary.RunID)
	log.Info("Starting scheduled workflow run")

	log.Info("[1/2] Starting mail to storage workflow")
	mailStart := r.now()
	summary.Mail = r.mail.Run(ctx)
	r.record(ctx, summary.RunID, report.MailEntry(mailStart, r.now(), summary.Mail))

	if err := sleep(ctx, r.cfg.Scheduler.WorkflowDelay); err != nil {
		return r.finish(ctx, summary, err)
	}

	log.Info("[2/2] Starting storage to sheet workflow")
	sheetStart := r.now()
	folderID, err := r.sheetFolder(ctx)
	if err != nil {
		log.Errorf("Could not resolve sheet source folder: %v", err)
	} else {
		summary.Sheet = r.sheet.Run(ctx, folderID)
	}
	r.record(ctx, summary.RunID, report.SheetEntry(sheetStart, r.now(), summary.Sheet))

	if err == nil {
		summary.Remaining = r.saveRemaining(ctx, folderID)
	}

	return r.finish(ctx, summary, ctx.Err())
}

func (r *Runner) finish(ctx context.Context, summary models.RunSummary, runErr error) (models.RunSummary, error) {
	summary.Finished = r.now()
	summary.TotalDuration = summary.Finished.Sub(summary.Started)
	summary.Status = report.OverallStatus(summary.Mail.Success, summary.Sheet.Processed)

	if runErr == nil {
		r.notify(ctx, summary)
	}

	r.metrics.LastRunTimestamp.Set(float64(summary.Finished.Unix()))
	r.mu.Lock()
	r.last = &summary
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"run_id":      summary.RunID,
		"duration":    report.FormatDuration(summary.TotalDuration),
		"status":      summary.Status,
		"attachments": summary.Mail.Processed,
		"emails":      summary.Mail.EmailsProcessed,
		"pdfs":        summary.Sheet.Processed,
		"rows_added":  summary.Sheet.RowsAdded,
	}).Info("Scheduled workflow run completed")
	return summary, runErr
}

func (r *Runner) sheetFolder(ctx context.Context) (string, error) {
	if r.cfg.Sheet.FolderID != "" {
		return r.cfg.Sheet.FolderID, nil
	}
	return r.mail.ResolveFolder(ctx)
}

func (r *Runner) record(ctx context.Context, runID string, e models.WorkflowLogEntry) {
	r.metrics.RunDuration.WithLabelValues(e.Workflow).Observe(e.End.Sub(e.Start).Seconds())
	if err := r.reports.LogWorkflow(ctx, e); err != nil {
		logrus.Errorf("Failed to log workflow to sheet: %v", err)
	}
	if err := r.repo.RecordRun(ctx, runID, e); err != nil {
		logrus.Warnf("Failed to record run history: %v", err)
	}
}

// saveRemaining rewrites the list of archived PDFs that have no rows in the
// sheet and returns its length.
func (r *Runner) saveRemaining(ctx context.Context, folderID string) int {
	all, err := r.sheet.store.ListObjects(ctx, folderID, storage.MimeTypePDF, time.Time{})
	if err != nil {
		logrus.Errorf("Failed to list all PDFs: %v", err)
		return 0
	}
	remaining := report.Remaining(all, r.sheet.ExistingIDs(ctx))
	if err := r.reports.SaveRemaining(ctx, remaining); err != nil {
		logrus.Errorf("Failed to save remaining files: %v", err)
	}
	return len(remaining)
}

func (r *Runner) notify(ctx context.Context, summary models.RunSummary) {
	n := r.cfg.Notification
	if r.sender == nil || !n.Enabled || len(n.Recipients) == 0 {
		return
	}

	from := n.Sender
	if from == "" {
		addr, err := r.sender.Address(ctx)
		if err != nil {
			logrus.Warnf("Could not get sender address: %v", err)
			return
		}
		from = addr
	}

	now := r.now()
	body := report.SummaryBody(report.SummaryContext{
		AppName:       r.cfg.App.Name,
		Sender:        r.cfg.Mail.Sender,
		SearchTerm:    r.cfg.Mail.SearchTerm,
		MailDaysBack:  r.cfg.Mail.DaysBack,
		SheetDaysBack: r.cfg.Sheet.DaysBack,
	}, summary, now)

	id, err := r.sender.Send(ctx, from, n.Recipients, report.Subject(r.cfg.App.Name, now), body)
	if err != nil {
		logrus.Errorf("Failed to send notification: %v", err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"message_id": id,
		"recipients": strings.Join(n.Recipients, ", "),
	}).Info("Notification sent")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("run interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
