package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

const auditColumns = `id, action, resource_type, resource_id, user_id, user_email, details, ip_address, created_at`

type AuditPostgres struct {
	db *sql.DB
}

func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

func (r *AuditPostgres) Create(ctx context.Context, e *model.AuditLog) error {
	var details []byte
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}
	const q = `
		INSERT INTO audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Action,
		e.ResourceType,
		nullString(e.ResourceID),
		nullString(e.UserID),
		nullString(e.UserEmail),
		details,
		nullString(e.IPAddress),
		e.CreatedAt,
	)
	return err
}

func (r *AuditPostgres) List(ctx context.Context, f model.AuditFilter) (*repository.PageResult[model.AuditLog], error) {
	build := func(a *args) string {
		var clauses []string
		if f.Action != "" {
			clauses = append(clauses, "action = "+a.add(f.Action))
		}
		if f.ResourceType != "" {
			clauses = append(clauses, "resource_type = "+a.add(f.ResourceType))
		}
		if f.ResourceID != "" {
			clauses = append(clauses, "resource_id = "+a.add(f.ResourceID))
		}
		if f.UserID != "" {
			clauses = append(clauses, "user_id = "+a.add(f.UserID))
		}
		if len(clauses) == 0 {
			return ""
		}
		return " WHERE " + strings.Join(clauses, " AND ")
	}

	countArgs := &args{}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+build(countArgs), countArgs.values...).Scan(&total); err != nil {
		return nil, err
	}

	listArgs := &args{}
	q := `SELECT ` + auditColumns + ` FROM audit_logs` + build(listArgs) +
		` ORDER BY created_at DESC, id DESC LIMIT ` + listArgs.add(f.Limit) + ` OFFSET ` + listArgs.add(f.Offset)
	rows, err := r.db.QueryContext(ctx, q, listArgs.values...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.AuditLog, 0)
	for rows.Next() {
		var (
			e                                     model.AuditLog
			resourceID, userID, userEmail, ipAddr sql.NullString
			details                               []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.ResourceType, &resourceID, &userID, &userEmail, &details, &ipAddr, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ResourceID = resourceID.String
		e.UserID = userID.String
		e.UserEmail = userEmail.String
		e.IPAddress = ipAddr.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.AuditLog]{Items: items, Total: total}, nil
}
