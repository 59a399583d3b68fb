// Package extraction turns a PDF into structured line items through an
// external document-extraction service and normalizes the result into rows.
package extraction

import (
	"context"
	"errors"

	"grn-sheet-sync-go/internal/models"
)

var (
	// ErrAgentNotFound is returned when the configured agent or processor
	// does not exist.
	ErrAgentNotFound = errors.New("extraction agent not found")
	// ErrNotPDF is returned for payloads that are not readable PDFs.
	ErrNotPDF = errors.New("not a PDF document")
)

// Extractor runs one extraction over a local file.
type Extractor interface {
	Extract(ctx context.Context, localPath string) (*models.ExtractionResult, error)
}
