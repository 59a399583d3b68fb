package models

import "time"

// ExtractionResult is the raw document returned by an extraction service.
type ExtractionResult struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Failed extraction status labels.
const (
	StatusDownloadFailed   = "Download Failed"
	StatusExtractionFailed = "Extraction Failed"
	StatusNoRows           = "No Rows Extracted"
	StatusProcessingError  = "Processing Error"
	StatusWriteFailed      = "Sheet Write Failed"
)

// Strategy labels recorded with failed extractions.
const (
	StrategyStandardRetry = "standard_retry"
	StrategyNone          = "N/A"
)

// FailedExtraction describes a file that produced no usable rows.
type FailedExtraction struct {
	Timestamp         time.Time `json:"timestamp"`
	FileName          string    `json:"file_name"`
	FileID            string    `json:"file_id"`
	Status            string    `json:"status"`
	ItemsExtracted    int       `json:"items_extracted"`
	CompletenessScore float64   `json:"completeness_score"`
	Issues            []string  `json:"issues"`
	Attempts          int       `json:"attempts"`
	StrategyUsed      string    `json:"strategy_used"`
}
