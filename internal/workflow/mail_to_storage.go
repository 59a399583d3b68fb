// Package workflow runs the two pipeline stages, mailbox to storage and
// storage to sheet, and the scheduled run that chains them.
package workflow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/config"
	"grn-sheet-sync-go/internal/mailbox"
	"grn-sheet-sync-go/internal/metrics"
	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/repository"
	"grn-sheet-sync-go/internal/storage"
)

// MailToStorage archives matching mail attachments into the storage folder
// Gmail_Attachments/<workflow>/PDFs.
type MailToStorage struct {
	cfg     config.MailConfig
	source  mailbox.Source
	store   storage.Service
	repo    *repository.Repository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewMailToStorage creates a new mail-to-storage workflow
func NewMailToStorage(cfg config.MailConfig, source mailbox.Source, store storage.Service, repo *repository.Repository, m *metrics.Metrics) *MailToStorage {
	return &MailToStorage{
		cfg:     cfg,
		source:  source,
		store:   store,
		repo:    repo,
		metrics: m,
		now:     time.Now,
	}
}

// ResolveFolder returns the id of the archive folder. Missing segments
// yield storage.ErrTargetFolderNotFound.
func (w *MailToStorage) ResolveFolder(ctx context.Context) (string, error) {
	return storage.ResolvePath(ctx, w.store, w.cfg.RootFolderID, storage.ArchivePath(w.cfg.WorkflowName)...)
}

// Run searches the mailbox and archives every attachment named like the
// configured filter. A message with no archived attachment counts as failed.
func (w *MailToStorage) Run(ctx context.Context) models.MailStats {
	var stats models.MailStats
	logrus.Info("Starting mail to storage workflow")

	folderID, err := w.ResolveFolder(ctx)
	if err != nil {
		logrus.Errorf("Target folder structure not found: %v", err)
		return stats
	}

	q := mailbox.NewQuery(w.cfg.Sender, w.cfg.SearchTerm, w.cfg.DaysBack, w.cfg.MaxResults, w.now())
	items, err := w.source.Search(ctx, q)
	if err != nil {
		logrus.Errorf("Mailbox search failed: %v", err)
		return stats
	}
	w.metrics.EmailsScanned.Add(float64(len(items)))

	stats.Success = true
	if len(items) == 0 {
		logrus.Warn("No emails found matching criteria")
		return stats
	}
	logrus.Infof("Found %d emails. Processing attachments...", len(items))

	for i, item := range items {
		if ctx.Err() != nil {
			logrus.Warnf("Mail workflow interrupted: %v", ctx.Err())
			break
		}
		logrus.Infof("Processing email %d/%d", i+1, len(items))

		n, err := w.archiveMessage(ctx, item, folderID)
		if err != nil {
			logrus.WithField("message_id", item.ID).Errorf("Failed to process email: %v", err)
			stats.Failed++
			continue
		}
		if n == 0 {
			stats.Failed++
			continue
		}
		stats.Processed += n
	}

	stats.TotalAttachments = len(items)
	stats.EmailsProcessed = len(items)
	logrus.Infof("Mail workflow completed. Processed %d attachments", stats.Processed)
	return stats
}

// archiveMessage returns how many attachments of the message are in the
// archive after the call, previously archived ones included.
func (w *MailToStorage) archiveMessage(ctx context.Context, item models.MailItem, folderID string) (int, error) {
	tree, err := w.source.FetchMessage(ctx, item.ID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, part := range mailbox.MatchAttachments(tree, w.cfg.AttachmentFilter) {
		fields := logrus.Fields{"message_id": item.ID, "filename": part.Filename}

		data, err := w.source.FetchAttachment(ctx, item.ID, part.AttachmentID)
		if err != nil {
			logrus.WithFields(fields).Errorf("Failed to fetch attachment: %v", err)
			w.metrics.AttachmentFailures.Inc()
			continue
		}

		name := storage.ArchivedName(item.ID, part.Filename)
		id, uploaded, err := storage.ArchiveOnce(ctx, w.store, data, name, folderID)
		if err != nil {
			logrus.WithFields(fields).Errorf("Failed to archive attachment: %v", err)
			w.metrics.AttachmentFailures.Inc()
			continue
		}
		count++

		if !uploaded {
			continue
		}
		w.metrics.AttachmentsArchived.Inc()
		err = w.repo.RecordAttachment(ctx, models.ArchivedAttachment{
			StorageID:       id,
			Name:            name,
			SourceMessageID: item.ID,
			OriginalName:    part.Filename,
			CreatedAt:       w.now(),
		})
		if err != nil {
			logrus.WithFields(fields).Warnf("Failed to record attachment history: %v", err)
		}
	}
	return count, nil
}
