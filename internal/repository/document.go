package repository

import (
	"context"

	"dmsapi/internal/model"
)

// TypeCount is a distinct document type with the number of latest documents using it.
type TypeCount struct {
	Code  string
	Count int
}

// DocumentRepository defines data access for document versions.
type DocumentRepository interface {
	// Create inserts a first version. A uniqueness violation yields ErrConflict.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// CreateVersion atomically clears is_latest on prevID and inserts doc.
	// If prevID is no longer latest, nothing is written and ErrConflict is returned.
	CreateVersion(ctx context.Context, prevID string, doc *model.Document) (*model.Document, error)

	// Replace atomically deletes every version for doc.IdentityKey and inserts doc.
	// It returns the stored document and the removed rows.
	Replace(ctx context.Context, doc *model.Document) (*model.Document, []model.Document, error)

	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindLatestByKey returns the latest version for an identity key.
	FindLatestByKey(ctx context.Context, key string) (*model.Document, error)

	// ListChain returns all versions for an identity key ordered by version.
	ListChain(ctx context.Context, key string) ([]model.Document, error)

	// List returns a filtered page of documents and the total match count.
	List(ctx context.Context, f model.DocumentFilter) (*PageResult[model.Document], error)

	// Delete removes one version. When it was the latest, the highest remaining
	// version for its key is promoted in the same transaction. Missing rows are not an error.
	Delete(ctx context.Context, id string) error

	DistinctTypes(ctx context.Context) ([]TypeCount, error)
	DistinctCompanies(ctx context.Context) ([]string, error)
	CountLatest(ctx context.Context) (int, error)

	// ReconcileLatest promotes the highest version of key when no version is
	// latest. It returns the promoted row, or nil when the chain was consistent.
	ReconcileLatest(ctx context.Context, key string) (*model.Document, error)
}
