package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grn-sheet-sync-go/internal/models"
)

// Repository stores run history. A Repository over a nil *gorm.DB accepts
// writes and drops them, and returns empty listings.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Enabled reports whether a database is attached.
func (r *Repository) Enabled() bool {
	return r != nil && r.db != nil
}

// RecordRun stores the outcome of one workflow execution.
func (r *Repository) RecordRun(ctx context.Context, runID string, e models.WorkflowLogEntry) error {
	if !r.Enabled() {
		return nil
	}
	run := models.WorkflowRun{
		RunID:      runID,
		Workflow:   e.Workflow,
		StartedAt:  e.Start,
		FinishedAt: e.End,
		Duration:   e.Duration,
		Processed:  e.Processed,
		TotalItems: e.TotalItems,
		Failed:     e.Failed,
		Skipped:    e.Skipped,
		Incomplete: e.Incomplete,
		Status:     e.Status,
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record workflow run: %w", err)
	}
	return nil
}

// RecordAttachment stores an archived attachment. Duplicate storage ids are
// ignored.
func (r *Repository) RecordAttachment(ctx context.Context, a models.ArchivedAttachment) error {
	if !r.Enabled() {
		return nil
	}
	rec := models.ArchivedAttachmentRecord{
		StorageID:       a.StorageID,
		Name:            a.Name,
		SourceMessageID: a.SourceMessageID,
		OriginalName:    a.OriginalName,
		CreatedAt:       a.CreatedAt,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if result.Error != nil {
		return fmt.Errorf("failed to record archived attachment: %w", result.Error)
	}
	return nil
}

// ListRuns returns the latest runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit, offset int) ([]models.WorkflowRun, error) {
	runs := []models.WorkflowRun{}
	if !r.Enabled() {
		return runs, nil
	}
	result := r.db.WithContext(ctx).Order("id desc").Limit(limit).Offset(offset).Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get workflow runs: %w", result.Error)
	}
	return runs, nil
}

// ListAttachments returns the latest archived attachments, newest first.
func (r *Repository) ListAttachments(ctx context.Context, limit, offset int) ([]models.ArchivedAttachmentRecord, error) {
	recs := []models.ArchivedAttachmentRecord{}
	if !r.Enabled() {
		return recs, nil
	}
	result := r.db.WithContext(ctx).Order("id desc").Limit(limit).Offset(offset).Find(&recs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get archived attachments: %w", result.Error)
	}
	return recs, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
