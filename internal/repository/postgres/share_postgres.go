package postgres

import (
	"context"
	"database/sql"
	"time"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

const shareColumns = `id, document_id, token, pin_hash, expires_at, max_views, view_count, created_by, revoked_at, created_at`

type SharePostgres struct {
	db *sql.DB
}

func NewSharePostgres(db *sql.DB) *SharePostgres {
	return &SharePostgres{db: db}
}

var _ repository.ShareRepository = (*SharePostgres)(nil)

func scanShare(row rowScanner) (*model.SharedLink, error) {
	var (
		s                  model.SharedLink
		pinHash, createdBy sql.NullString
	)
	if err := row.Scan(&s.ID, &s.DocumentID, &s.Token, &pinHash, &s.ExpiresAt, &s.MaxViews, &s.ViewCount, &createdBy, &s.RevokedAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.PINHash = pinHash.String
	s.HasPIN = pinHash.Valid && pinHash.String != ""
	s.CreatedBy = createdBy.String
	return &s, nil
}

func (r *SharePostgres) Create(ctx context.Context, link *model.SharedLink) (*model.SharedLink, error) {
	const q = `
		INSERT INTO shared_links (` + shareColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + shareColumns
	row := r.db.QueryRowContext(ctx, q,
		link.ID,
		link.DocumentID,
		link.Token,
		nullString(link.PINHash),
		link.ExpiresAt,
		link.MaxViews,
		link.ViewCount,
		nullString(link.CreatedBy),
		link.RevokedAt,
		link.CreatedAt,
	)
	out, err := scanShare(row)
	if isForeignKeyViolation(err) {
		return nil, sql.ErrNoRows
	}
	return out, err
}

func (r *SharePostgres) FindByToken(ctx context.Context, token string) (*model.SharedLink, error) {
	const q = `SELECT ` + shareColumns + ` FROM shared_links WHERE token = $1`
	return scanShare(r.db.QueryRowContext(ctx, q, token))
}

func (r *SharePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.SharedLink], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shared_links`).Scan(&total); err != nil {
		return nil, err
	}

	const q = `
		SELECT ` + shareColumns + `
		FROM shared_links
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, q, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.SharedLink, 0)
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.SharedLink]{Items: items, Total: total}, nil
}

func (r *SharePostgres) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE shared_links SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
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

// IncrementView is a single conditional update so concurrent viewers cannot
// exceed max_views.
func (r *SharePostgres) IncrementView(ctx context.Context, id string, now time.Time) (bool, error) {
	const q = `
		UPDATE shared_links SET view_count = view_count + 1
		WHERE id = $1
		  AND revoked_at IS NULL
		  AND expires_at > $2
		  AND (max_views IS NULL OR view_count < max_views)
	`
	res, err := r.db.ExecContext(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
