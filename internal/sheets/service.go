// Package sheets reads and writes row tables in a spreadsheet. Tables are
// addressed by spreadsheet id and sheet title; row 1 is the header.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"grn-sheet-sync-go/internal/models"
)

// ErrSheetNotFound is returned when a sheet title has no numeric id.
var ErrSheetNotFound = errors.New("sheet not found")

// SheetInfo identifies one sheet of a spreadsheet.
type SheetInfo struct {
	ID    int64
	Title string
}

// Service is the spreadsheet backend.
type Service interface {
	// ReadRange returns every populated row of sheet, header included.
	ReadRange(ctx context.Context, spreadsheetID, sheet string) ([][]string, error)
	ReadHeaderRow(ctx context.Context, spreadsheetID, sheet string) ([]string, error)
	WriteHeaderRow(ctx context.Context, spreadsheetID, sheet string, header []string) error
	AppendRows(ctx context.Context, spreadsheetID, sheet string, rows [][]models.Value) error
	ClearRange(ctx context.Context, spreadsheetID, sheet string) error
	// BatchDeleteRows removes rows by 0-based index in one request. Indices
	// must be sorted in descending order.
	BatchDeleteRows(ctx context.Context, spreadsheetID string, sheetID int64, indices []int) error
	SheetMetadata(ctx context.Context, spreadsheetID string) ([]SheetInfo, error)
}

// LookupSheetID resolves the numeric id of title.
func LookupSheetID(ctx context.Context, svc Service, spreadsheetID, title string) (int64, error) {
	infos, err := svc.SheetMetadata(ctx, spreadsheetID)
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet metadata: %w", err)
	}
	for _, info := range infos {
		if info.Title == title {
			return info.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, title)
}

// Cells converts plain values into a table row.
func Cells(vals ...any) []models.Value {
	row := make([]models.Value, len(vals))
	for i, v := range vals {
		row[i] = models.ValueOf(v)
	}
	return row
}
