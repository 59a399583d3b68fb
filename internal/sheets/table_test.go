package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grn-sheet-sync-go/internal/models"
)

// flakyService fails the first failAppends appends and records deletes.
type flakyService struct {
	Service
	failAppends int
	appends     int
	deleted     []int
	metaCalls   int
}

func (f *flakyService) AppendRows(context.Context, string, string, [][]models.Value) error {
	f.appends++
	if f.appends <= f.failAppends {
		return errors.New("quota exceeded")
	}
	return nil
}

func (f *flakyService) BatchDeleteRows(_ context.Context, _ string, _ int64, indices []int) error {
	f.deleted = append(f.deleted, indices...)
	return nil
}

func (f *flakyService) SheetMetadata(context.Context, string) ([]SheetInfo, error) {
	f.metaCalls++
	return []SheetInfo{{ID: 0, Title: "Sheet1"}, {ID: 42, Title: "grn"}}, nil
}

func TestTableAppendRetries(t *testing.T) {
	svc := &flakyService{failAppends: 2}
	table := NewTable(svc, "sheet-1", "grn", 3, 0)

	err := table.Append(context.Background(), [][]models.Value{Cells("x")})

	require.NoError(t, err)
	assert.Equal(t, 3, svc.appends)
}

func TestTableAppendGivesUpAfterAttempts(t *testing.T) {
	svc := &flakyService{failAppends: 10}
	table := NewTable(svc, "sheet-1", "grn", 3, 0)

	err := table.Append(context.Background(), [][]models.Value{Cells("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 3, svc.appends)
}

func TestTableAppendNothing(t *testing.T) {
	svc := &flakyService{}
	table := NewTable(svc, "sheet-1", "grn", 3, 0)

	require.NoError(t, table.Append(context.Background(), nil))
	assert.Zero(t, svc.appends)
}

func TestTableDeleteRowsSortsDescendingAndCachesID(t *testing.T) {
	svc := &flakyService{}
	table := NewTable(svc, "sheet-1", "grn", 3, 0)
	ctx := context.Background()

	require.NoError(t, table.DeleteRows(ctx, []int{2, 7, 4}))
	require.NoError(t, table.DeleteRows(ctx, []int{1}))

	assert.Equal(t, []int{7, 4, 2, 1}, svc.deleted)
	assert.Equal(t, 1, svc.metaCalls)

	id, err := table.SheetID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTableOverwrite(t *testing.T) {
	ctx := context.Background()
	svc, path := newWorkbook(t)
	table := NewTable(svc, path, "remaining_files", 3, 0)

	require.NoError(t, table.Overwrite(ctx, []string{"File Name", "File ID"}, [][]models.Value{Cells("a.pdf", "F1")}))
	require.NoError(t, table.Overwrite(ctx, []string{"File Name", "File ID"}, [][]models.Value{Cells("b.pdf", "F2")}))

	rows, err := table.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"File Name", "File ID"}, {"b.pdf", "F2"}}, rows)
}
