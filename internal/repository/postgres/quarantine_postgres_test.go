package postgres

import (
	"context"
	"testing"
	"time"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quarantineCols = []string{"id", "file_name", "storage_path", "file_size", "file_type", "error_message", "uploaded_by", "created_at"}

func TestQuarantinePostgres_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQuarantinePostgres(db)
	now := time.Now().UTC()

	q := &model.QuarantineDocument{
		ID:           "q-1",
		Filename:     "weird_file.pdf",
		StoragePath:  "quarantine/q-1.pdf",
		Size:         10,
		ContentType:  "application/pdf",
		ErrorMessage: "Invalid Naming Convention. Expected format: DKC-[Type]-[Company]-[ID]-[Date]",
		CreatedAt:    now,
	}

	mock.ExpectQuery("INSERT INTO quarantine_documents").
		WithArgs(q.ID, q.Filename, q.StoragePath, q.Size, q.ContentType, q.ErrorMessage, nil, now).
		WillReturnRows(sqlmock.NewRows(quarantineCols).
			AddRow(q.ID, q.Filename, q.StoragePath, q.Size, q.ContentType, q.ErrorMessage, nil, now))

	out, err := repo.Create(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, "q-1", out.ID)
	assert.Empty(t, out.UploadedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuarantinePostgres_ListAndDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewQuarantinePostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM quarantine_documents").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM quarantine_documents ORDER BY").
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(quarantineCols).
			AddRow("q-1", "a.pdf", "quarantine/q-1.pdf", 1, "application/pdf", "bad", "user-1", now))

	res, err := repo.List(ctx, repository.PageQuery{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "user-1", res.Items[0].UploadedBy)

	mock.ExpectQuery("SELECT (.+) FROM quarantine_documents WHERE id = ?").
		WithArgs("q-1").
		WillReturnRows(sqlmock.NewRows(quarantineCols).
			AddRow("q-1", "a.pdf", "quarantine/q-1.pdf", 1, "application/pdf", "bad", nil, now))
	found, err := repo.FindByID(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", found.Filename)

	mock.ExpectExec("DELETE FROM quarantine_documents WHERE id = ?").
		WithArgs("q-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(ctx, "q-1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
