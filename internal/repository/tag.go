package repository

import (
	"context"

	"dmsapi/internal/model"
)

// TagRepository manages tags and their assignment to documents.
// Duplicate names and duplicate assignments yield ErrConflict.
type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) (*model.Tag, error)
	Update(ctx context.Context, tag *model.Tag) (*model.Tag, error)
	FindByID(ctx context.Context, id string) (*model.Tag, error)
	List(ctx context.Context) ([]model.Tag, error)
	Delete(ctx context.Context, id string) error

	Attach(ctx context.Context, documentID, tagID string) error
	// Detach returns sql.ErrNoRows when the tag was not attached.
	Detach(ctx context.Context, documentID, tagID string) error
	ListForDocument(ctx context.Context, documentID string) ([]model.Tag, error)
}
