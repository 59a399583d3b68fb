package rowsync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/sheets"
)

// Engine replaces the rows of one source file in a table.
type Engine struct {
	table  *sheets.Table
	column string
}

// NewEngine creates a replacement engine keyed on CorrelationColumn.
func NewEngine(table *sheets.Table) *Engine {
	return &Engine{table: table, column: CorrelationColumn}
}

// ReplaceResult reports what Replace changed.
type ReplaceResult struct {
	Deleted  int
	Appended int
}

// Replace deletes every row tagged with fileID, then appends rows. Deletion
// happens in a single batched request with indices in descending order.
// When the table is empty or has no correlation column the rows are simply
// appended.
func (e *Engine) Replace(ctx context.Context, fileID string, rows [][]models.Value) (ReplaceResult, error) {
	var res ReplaceResult

	snapshot, err := e.table.Read(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to get sheet data: %w", err)
	}

	if len(snapshot) > 0 {
		if columnIndex(snapshot, e.column) < 0 {
			logrus.Infof("No '%s' column found, appending new rows", e.column)
		} else if indices := MatchingRows(snapshot, e.column, fileID); len(indices) > 0 {
			if err := e.table.DeleteRows(ctx, indices); err != nil {
				return res, err
			}
			res.Deleted = len(indices)
			logrus.Infof("Deleted %d existing rows for file %s", len(indices), fileID)
		}
	}

	if err := e.table.Append(ctx, rows); err != nil {
		return res, fmt.Errorf("failed to append rows for file %s: %w", fileID, err)
	}
	res.Appended = len(rows)
	return res, nil
}
