package postgres

import (
	"context"
	"database/sql"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

const quarantineColumns = `id, file_name, storage_path, file_size, file_type, error_message, uploaded_by, created_at`

type QuarantinePostgres struct {
	db *sql.DB
}

func NewQuarantinePostgres(db *sql.DB) *QuarantinePostgres {
	return &QuarantinePostgres{db: db}
}

var _ repository.QuarantineRepository = (*QuarantinePostgres)(nil)

func scanQuarantine(row rowScanner) (*model.QuarantineDocument, error) {
	var (
		q          model.QuarantineDocument
		uploadedBy sql.NullString
	)
	if err := row.Scan(&q.ID, &q.Filename, &q.StoragePath, &q.Size, &q.ContentType, &q.ErrorMessage, &uploadedBy, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.UploadedBy = uploadedBy.String
	return &q, nil
}

func (r *QuarantinePostgres) Create(ctx context.Context, q *model.QuarantineDocument) (*model.QuarantineDocument, error) {
	const stmt = `
		INSERT INTO quarantine_documents (` + quarantineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + quarantineColumns
	row := r.db.QueryRowContext(ctx, stmt,
		q.ID,
		q.Filename,
		q.StoragePath,
		q.Size,
		q.ContentType,
		q.ErrorMessage,
		nullString(q.UploadedBy),
		q.CreatedAt,
	)
	return scanQuarantine(row)
}

func (r *QuarantinePostgres) FindByID(ctx context.Context, id string) (*model.QuarantineDocument, error) {
	const q = `SELECT ` + quarantineColumns + ` FROM quarantine_documents WHERE id = $1`
	return scanQuarantine(r.db.QueryRowContext(ctx, q, id))
}

func (r *QuarantinePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.QuarantineDocument], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quarantine_documents`).Scan(&total); err != nil {
		return nil, err
	}

	const q = `
		SELECT ` + quarantineColumns + `
		FROM quarantine_documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.QuarantineDocument, 0)
	for rows.Next() {
		d, err := scanQuarantine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.QuarantineDocument]{Items: items, Total: total}, nil
}

func (r *QuarantinePostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM quarantine_documents WHERE id = $1`, id)
	return err
}
