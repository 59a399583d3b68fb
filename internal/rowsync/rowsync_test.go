package rowsync

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/sheets"
)

func TestExistingIDs(t *testing.T) {
	snapshot := [][]string{
		{"description", "drive_file_id"},
		{"Onion", "F1"},
		{"Garlic", "F1"},
		{"Rice"},
		{"Salt", ""},
		{"Sugar", "F2"},
	}

	ids := ExistingIDs(snapshot, CorrelationColumn)

	assert.Equal(t, map[string]struct{}{"F1": {}, "F2": {}}, ids)
}

func TestExistingIDsWithoutColumn(t *testing.T) {
	assert.Empty(t, ExistingIDs([][]string{{"description"}, {"Onion"}}, CorrelationColumn))
	assert.Empty(t, ExistingIDs(nil, CorrelationColumn))
}

func TestMatchingRowsSkipsHeader(t *testing.T) {
	snapshot := [][]string{
		{"drive_file_id"},
		{"F1"},
		{"F2"},
		{"F1"},
	}

	assert.Equal(t, []int{1, 3}, MatchingRows(snapshot, CorrelationColumn, "F1"))
	assert.Empty(t, MatchingRows(snapshot, CorrelationColumn, "F3"))
	assert.Empty(t, MatchingRows(snapshot, "drive_file_id", "drive_file_id"))
}

func newTable(t *testing.T) *sheets.Table {
	t.Helper()
	svc := sheets.NewExcelService()
	t.Cleanup(func() { _ = svc.Close() })
	path := filepath.Join(t.TempDir(), "grn.xlsx")
	return sheets.NewTable(svc, path, "grn", 3, 0)
}

func TestReplaceKeepsExactlyOneGeneration(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	require.NoError(t, table.Append(ctx, [][]models.Value{
		sheets.Cells("description", "drive_file_id"),
		sheets.Cells("old-1", "F1"),
		sheets.Cells("other", "F2"),
		sheets.Cells("old-2", "F1"),
		sheets.Cells("old-3", "F1"),
	}))

	engine := NewEngine(table)
	res, err := engine.Replace(ctx, "F1", [][]models.Value{
		sheets.Cells("new-1", "F1"),
		sheets.Cells("new-2", "F1"),
	})
	require.NoError(t, err)
	assert.Equal(t, ReplaceResult{Deleted: 3, Appended: 2}, res)

	rows, err := table.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"description", "drive_file_id"},
		{"other", "F2"},
		{"new-1", "F1"},
		{"new-2", "F1"},
	}, rows)
}

func TestReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	require.NoError(t, table.WriteHeader(ctx, []string{"description", "drive_file_id"}))

	engine := NewEngine(table)
	batch := [][]models.Value{sheets.Cells("Onion", "F1")}
	for i := 0; i < 3; i++ {
		_, err := engine.Replace(ctx, "F1", batch)
		require.NoError(t, err)
	}

	rows, err := table.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"description", "drive_file_id"}, {"Onion", "F1"}}, rows)
}

func TestReplaceAppendsWithoutCorrelationColumn(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	require.NoError(t, table.WriteHeader(ctx, []string{"description"}))

	res, err := NewEngine(table).Replace(ctx, "F1", [][]models.Value{sheets.Cells("Onion")})
	require.NoError(t, err)
	assert.Equal(t, ReplaceResult{Appended: 1}, res)
}

func TestReplaceOnEmptyTable(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)

	res, err := NewEngine(table).Replace(ctx, "F1", [][]models.Value{sheets.Cells("Onion", "F1")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)

	rows, err := table.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Onion", "F1"}}, rows)
}
