package sheets

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/retry"
)

// Table is one sheet of a spreadsheet. Appends are retried with a fixed
// delay.
type Table struct {
	svc           Service
	spreadsheetID string
	sheet         string
	appendPolicy  retry.Policy

	mu      sync.Mutex
	sheetID *int64
}

// NewTable binds a sheet of spreadsheetID. attempts and backoff configure
// the append retry.
func NewTable(svc Service, spreadsheetID, sheet string, attempts int, backoff time.Duration) *Table {
	return &Table{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		appendPolicy:  retry.Policy{MaxAttempts: attempts, Delay: backoff},
	}
}

func (t *Table) Name() string { return t.sheet }

func (t *Table) SpreadsheetID() string { return t.spreadsheetID }

// Read returns the whole sheet, header included.
func (t *Table) Read(ctx context.Context) ([][]string, error) {
	return t.svc.ReadRange(ctx, t.spreadsheetID, t.sheet)
}

func (t *Table) Header(ctx context.Context) ([]string, error) {
	return t.svc.ReadHeaderRow(ctx, t.spreadsheetID, t.sheet)
}

func (t *Table) WriteHeader(ctx context.Context, header []string) error {
	return t.svc.WriteHeaderRow(ctx, t.spreadsheetID, t.sheet, header)
}

// Append adds rows after the last populated row.
func (t *Table) Append(ctx context.Context, rows [][]models.Value) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := retry.Do(ctx, t.appendPolicy, "append to "+t.sheet, func(ctx context.Context, _ int) error {
		return t.svc.AppendRows(ctx, t.spreadsheetID, t.sheet, rows)
	})
	return err
}

func (t *Table) Clear(ctx context.Context) error {
	return t.svc.ClearRange(ctx, t.spreadsheetID, t.sheet)
}

// Overwrite replaces the sheet contents with header followed by rows.
func (t *Table) Overwrite(ctx context.Context, header []string, rows [][]models.Value) error {
	if err := t.Clear(ctx); err != nil {
		return err
	}
	all := make([][]models.Value, 0, len(rows)+1)
	headerRow := make([]models.Value, len(header))
	for i, h := range header {
		headerRow[i] = models.StringValue(h)
	}
	all = append(all, headerRow)
	all = append(all, rows...)
	return t.Append(ctx, all)
}

// SheetID resolves and caches the numeric id of the sheet.
func (t *Table) SheetID(ctx context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sheetID != nil {
		return *t.sheetID, nil
	}
	id, err := LookupSheetID(ctx, t.svc, t.spreadsheetID, t.sheet)
	if err != nil {
		return 0, err
	}
	t.sheetID = &id
	return id, nil
}

// DeleteRows removes rows by 0-based sheet index in a single request.
func (t *Table) DeleteRows(ctx context.Context, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	id, err := t.SheetID(ctx)
	if err != nil {
		return err
	}

	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	if err := t.svc.BatchDeleteRows(ctx, t.spreadsheetID, id, sorted); err != nil {
		return fmt.Errorf("failed to delete rows from %s: %w", t.sheet, err)
	}
	return nil
}
