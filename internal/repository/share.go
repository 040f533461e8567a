package repository

import (
	"context"
	"time"

	"dmsapi/internal/model"
)

type ShareRepository interface {
	Create(ctx context.Context, link *model.SharedLink) (*model.SharedLink, error)
	FindByToken(ctx context.Context, token string) (*model.SharedLink, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.SharedLink], error)
	// Revoke marks a link revoked. Unknown or already revoked links yield sql.ErrNoRows.
	Revoke(ctx context.Context, id string, at time.Time) error
	// IncrementView consumes one view if the link is still usable at now.
	// It reports false when the link expired, was revoked or ran out of views.
	IncrementView(ctx context.Context, id string, now time.Time) (bool, error)
}
