package models

import "time"

// WorkflowLogEntry is one audit row per workflow execution.
type WorkflowLogEntry struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Duration   string    `json:"duration"`
	Workflow   string    `json:"workflow"`
	Processed  int       `json:"processed"`
	TotalItems int       `json:"total_items"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Incomplete int       `json:"incomplete"`
	Status     string    `json:"status"`
}

// MailStats is the outcome of the mail-to-storage workflow.
type MailStats struct {
	Success          bool `json:"success"`
	Processed        int  `json:"processed"`
	TotalAttachments int  `json:"total_attachments"`
	Failed           int  `json:"failed"`
	EmailsProcessed  int  `json:"emails_processed"`
}

// SheetStats is the outcome of the storage-to-sheet workflow.
type SheetStats struct {
	TotalFiles       int `json:"total_files"`
	Processed        int `json:"processed"`
	Failed           int `json:"failed"`
	Skipped          int `json:"skipped"`
	RowsAdded        int `json:"rows_added"`
	Incomplete       int `json:"incomplete"`
	DownloadFailed   int `json:"download_failed"`
	ExtractionFailed int `json:"extraction_failed"`
	NoRows           int `json:"no_rows"`
}

// RunSummary aggregates one scheduled run.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	Started       time.Time     `json:"started"`
	Finished      time.Time     `json:"finished"`
	Mail          MailStats     `json:"mail"`
	Sheet         SheetStats    `json:"sheet"`
	Remaining     int           `json:"remaining"`
	TotalDuration time.Duration `json:"total_duration"`
	Status        string        `json:"status"`
}
