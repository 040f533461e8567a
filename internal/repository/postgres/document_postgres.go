package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

const documentColumns = `id, file_name, storage_path, file_size, file_type, doc_prefix, doc_type,
	company_name, doc_serial, doc_date_raw, doc_date, identity_key, version, parent_id,
	is_latest, uploaded_by, created_at, updated_at`

const insertDocumentSQL = `
	INSERT INTO documents (` + documentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	RETURNING ` + documentColumns

// promoteHighestSQL flags the highest version of a key as latest, but only
// when the key currently has no latest version.
const promoteHighestSQL = `
	UPDATE documents SET is_latest = true, updated_at = NOW()
	WHERE id = (
		SELECT id FROM documents WHERE identity_key = $1 ORDER BY version DESC LIMIT 1
	)
	AND NOT EXISTS (SELECT 1 FROM documents WHERE identity_key = $1 AND is_latest)
	RETURNING ` + documentColumns

var documentSortColumns = map[string]string{
	"created_at":   "created_at",
	"doc_date":     "doc_date",
	"file_name":    "file_name",
	"company_name": "company_name",
	"doc_type":     "doc_type",
	"doc_serial":   "doc_serial",
	"version":      "version",
	"file_size":    "file_size",
}

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// Version transitions rely on the partial unique index on
// (identity_key) WHERE is_latest to reject lost races.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d          model.Document
		uploadedBy sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.Filename,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.Prefix,
		&d.DocType,
		&d.CompanyName,
		&d.DocSerial,
		&d.RawDate,
		&d.DocDate,
		&d.IdentityKey,
		&d.Version,
		&d.ParentID,
		&d.IsLatest,
		&uploadedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.UploadedBy = uploadedBy.String
	return &d, nil
}

func scanDocuments(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()
	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func insertDocument(ctx context.Context, q queryer, doc *model.Document) (*model.Document, error) {
	row := q.QueryRowContext(ctx, insertDocumentSQL,
		doc.ID,
		doc.Filename,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.Prefix,
		doc.DocType,
		doc.CompanyName,
		doc.DocSerial,
		doc.RawDate,
		doc.DocDate,
		doc.IdentityKey,
		doc.Version,
		doc.ParentID,
		doc.IsLatest,
		nullString(doc.UploadedBy),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", repository.ErrConflict, err)
		}
		return nil, err
	}
	return out, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return insertDocument(ctx, r.db, doc)
}

// CreateVersion flips the previous latest and inserts the successor in one transaction.
func (r *DocumentPostgres) CreateVersion(ctx context.Context, prevID string, doc *model.Document) (*model.Document, error) {
	var out *model.Document
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const q = `UPDATE documents SET is_latest = false, updated_at = $2 WHERE id = $1 AND is_latest = true`
		res, err := tx.ExecContext(ctx, q, prevID, doc.CreatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: document %s is no longer latest", repository.ErrConflict, prevID)
		}
		out, err = insertDocument(ctx, tx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Replace deletes the whole chain for the key and inserts doc in one transaction.
func (r *DocumentPostgres) Replace(ctx context.Context, doc *model.Document) (*model.Document, []model.Document, error) {
	var (
		out     *model.Document
		removed []model.Document
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `DELETE FROM documents WHERE identity_key = $1 RETURNING `+documentColumns, doc.IdentityKey)
		if err != nil {
			return err
		}
		if removed, err = scanDocuments(rows); err != nil {
			return err
		}
		out, err = insertDocument(ctx, tx, doc)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return out, removed, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

func (r *DocumentPostgres) FindLatestByKey(ctx context.Context, key string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE identity_key = $1 AND is_latest = true`
	return scanDocument(r.db.QueryRowContext(ctx, q, key))
}

func (r *DocumentPostgres) ListChain(ctx context.Context, key string) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE identity_key = $1 ORDER BY version ASC`
	rows, err := r.db.QueryContext(ctx, q, key)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

func buildDocumentWhere(f model.DocumentFilter, a *args) string {
	var clauses []string
	if f.LatestOnly {
		clauses = append(clauses, "is_latest = true")
	}
	if len(f.Types) > 0 {
		clauses = append(clauses, "doc_type IN "+a.in(f.Types))
	}
	if len(f.Companies) > 0 {
		clauses = append(clauses, "company_name IN "+a.in(f.Companies))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := a.add(containsPattern(s))
		clauses = append(clauses, fmt.Sprintf("(file_name ILIKE %[1]s OR doc_type ILIKE %[1]s OR company_name ILIKE %[1]s OR doc_serial ILIKE %[1]s)", p))
	}
	if f.DateFrom != nil {
		clauses = append(clauses, "doc_date >= "+a.add(*f.DateFrom))
	}
	if f.DateTo != nil {
		clauses = append(clauses, "doc_date <= "+a.add(*f.DateTo))
	}
	if len(f.TagIDs) > 0 {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM document_tags dt WHERE dt.document_id = documents.id AND dt.tag_id IN "+a.in(f.TagIDs)+")")
	}
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func documentOrder(f model.DocumentFilter) string {
	col, ok := documentSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

// List returns documents matching f using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, f model.DocumentFilter) (*repository.PageResult[model.Document], error) {
	countArgs := &args{}
	where := buildDocumentWhere(f, countArgs)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, countArgs.values...).Scan(&total); err != nil {
		return nil, err
	}

	listArgs := &args{}
	where = buildDocumentWhere(f, listArgs)
	q := `SELECT ` + documentColumns + ` FROM documents` + where + documentOrder(f) +
		` LIMIT ` + listArgs.add(f.Limit) + ` OFFSET ` + listArgs.add(f.Offset)

	rows, err := r.db.QueryContext(ctx, q, listArgs.values...)
	if err != nil {
		return nil, err
	}
	items, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// Delete removes one version, promoting the highest remaining one when it was latest.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			key       string
			wasLatest bool
		)
		err := tx.QueryRowContext(ctx, `DELETE FROM documents WHERE id = $1 RETURNING identity_key, is_latest`, id).
			Scan(&key, &wasLatest)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if !wasLatest {
			return nil
		}
		if _, err := scanDocument(tx.QueryRowContext(ctx, promoteHighestSQL, key)); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return nil
	})
}

func (r *DocumentPostgres) DistinctTypes(ctx context.Context) ([]repository.TypeCount, error) {
	const q = `SELECT doc_type, COUNT(*) FROM documents WHERE is_latest = true GROUP BY doc_type ORDER BY doc_type`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.TypeCount, 0)
	for rows.Next() {
		var tc repository.TypeCount
		if err := rows.Scan(&tc.Code, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *DocumentPostgres) DistinctCompanies(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT company_name FROM documents WHERE is_latest = true ORDER BY company_name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *DocumentPostgres) CountLatest(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE is_latest = true`).Scan(&n)
	return n, err
}

// ReconcileLatest restores a latest flag on a chain that lost it.
func (r *DocumentPostgres) ReconcileLatest(ctx context.Context, key string) (*model.Document, error) {
	doc, err := scanDocument(r.db.QueryRowContext(ctx, promoteHighestSQL, key))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case isUniqueViolation(err):
		// another writer restored it first
		return nil, nil
	case err != nil:
		return nil, err
	}
	return doc, nil
}
