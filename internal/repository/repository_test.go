package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"grn-sheet-sync-go/internal/models"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return New(gdb), mock
}

func TestRecordRun(t *testing.T) {
	repo, mock := newMockRepository(t)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `workflow_runs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.RecordRun(context.Background(), "run-1", models.WorkflowLogEntry{
		Start:     start,
		End:       start.Add(time.Minute),
		Duration:  "1m 0s",
		Workflow:  "Storage to Sheet",
		Processed: 2,
		Status:    "Success",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttachmentError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `archived_attachments`").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.RecordAttachment(context.Background(), models.ArchivedAttachment{
		StorageID:       "F1",
		Name:            "m1_grn.pdf",
		SourceMessageID: "m1",
		OriginalName:    "GRN.pdf",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record archived attachment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := sqlmock.NewRows([]string{"id", "run_id", "workflow", "status", "processed"}).
		AddRow(2, "run-2", "Storage to Sheet", "Success", 3).
		AddRow(1, "run-1", "Mail to Storage", "Failed", 0)
	mock.ExpectQuery("SELECT \\* FROM `workflow_runs`").WillReturnRows(rows)

	runs, err := repo.ListRuns(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 3, runs[0].Processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisabledRepository(t *testing.T) {
	repo := New(nil)
	assert.False(t, repo.Enabled())
	assert.NoError(t, repo.RecordRun(context.Background(), "run-1", models.WorkflowLogEntry{}))

	runs, err := repo.ListRuns(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
