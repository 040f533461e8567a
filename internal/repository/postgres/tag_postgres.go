package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

type TagPostgres struct {
	db *sql.DB
}

func NewTagPostgres(db *sql.DB) *TagPostgres {
	return &TagPostgres{db: db}
}

var _ repository.TagRepository = (*TagPostgres)(nil)

func scanTag(row rowScanner) (*model.Tag, error) {
	var t model.Tag
	if err := row.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: tag name already exists", repository.ErrConflict)
		}
		return nil, err
	}
	return &t, nil
}

func scanTags(rows *sql.Rows) ([]model.Tag, error) {
	defer rows.Close()
	out := make([]model.Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TagPostgres) Create(ctx context.Context, tag *model.Tag) (*model.Tag, error) {
	const q = `
		INSERT INTO tags (id, name, color, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, color, created_at
	`
	return scanTag(r.db.QueryRowContext(ctx, q, tag.ID, tag.Name, tag.Color, tag.CreatedAt))
}

func (r *TagPostgres) Update(ctx context.Context, tag *model.Tag) (*model.Tag, error) {
	const q = `
		UPDATE tags SET name = $2, color = $3
		WHERE id = $1
		RETURNING id, name, color, created_at
	`
	return scanTag(r.db.QueryRowContext(ctx, q, tag.ID, tag.Name, tag.Color))
}

func (r *TagPostgres) FindByID(ctx context.Context, id string) (*model.Tag, error) {
	return scanTag(r.db.QueryRowContext(ctx, `SELECT id, name, color, created_at FROM tags WHERE id = $1`, id))
}

func (r *TagPostgres) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return scanTags(rows)
}

// Delete removes a tag; its document assignments cascade.
func (r *TagPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	return err
}

func (r *TagPostgres) Attach(ctx context.Context, documentID, tagID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_tags (document_id, tag_id, created_at) VALUES ($1, $2, NOW())`,
		documentID, tagID)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: tag already attached", repository.ErrConflict)
	case isForeignKeyViolation(err):
		return sql.ErrNoRows
	}
	return err
}

func (r *TagPostgres) Detach(ctx context.Context, documentID, tagID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = $1 AND tag_id = $2`, documentID, tagID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *TagPostgres) ListForDocument(ctx context.Context, documentID string) ([]model.Tag, error) {
	const q = `
		SELECT t.id, t.name, t.color, t.created_at
		FROM tags t
		JOIN document_tags dt ON dt.tag_id = t.id
		WHERE dt.document_id = $1
		ORDER BY t.name
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	return scanTags(rows)
}
