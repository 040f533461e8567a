package repository

import (
	"context"

	"dmsapi/internal/model"
)

type QuarantineRepository interface {
	Create(ctx context.Context, q *model.QuarantineDocument) (*model.QuarantineDocument, error)
	FindByID(ctx context.Context, id string) (*model.QuarantineDocument, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.QuarantineDocument], error)
	Delete(ctx context.Context, id string) error
}
