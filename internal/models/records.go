package models

import (
	"time"

	"gorm.io/gorm"
)

// WorkflowRun is the run-history row for one workflow execution
type WorkflowRun struct {
	ID         uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID      string         `json:"run_id" gorm:"type:varchar(36);not null;index"`
	Workflow   string         `json:"workflow" gorm:"type:varchar(100);not null"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   string         `json:"duration" gorm:"type:varchar(32)"`
	Processed  int            `json:"processed"`
	TotalItems int            `json:"total_items"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	Incomplete int            `json:"incomplete"`
	Status     string         `json:"status" gorm:"type:varchar(50);not null"` // Success, Failed
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for WorkflowRun
func (WorkflowRun) TableName() string {
	return "workflow_runs"
}

// ArchivedAttachmentRecord tracks every attachment uploaded to storage
type ArchivedAttachmentRecord struct {
	ID              uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	StorageID       string         `json:"storage_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Name            string         `json:"name" gorm:"type:varchar(512);not null"`
	SourceMessageID string         `json:"source_message_id" gorm:"type:varchar(255);not null;index"`
	OriginalName    string         `json:"original_name" gorm:"type:varchar(255)"`
	CreatedAt       time.Time      `json:"created_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for ArchivedAttachmentRecord
func (ArchivedAttachmentRecord) TableName() string {
	return "archived_attachments"
}
