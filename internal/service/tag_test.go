package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"dmsapi/internal/audit"
	auditMocks "dmsapi/internal/audit/mocks"
	"dmsapi/internal/model"
	"dmsapi/internal/repository"
	repoMocks "dmsapi/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTagService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		in      TagInput
		setup   func(r *repoMocks.MockTagRepository)
		wantErr error
	}{
		{
			name: "default color",
			in:   TagInput{Name: "  urgent "},
			setup: func(r *repoMocks.MockTagRepository) {
				r.On("Create", mock.Anything, mock.MatchedBy(func(tag *model.Tag) bool {
					return tag.ID != "" && tag.Name == "urgent" && tag.Color == model.DefaultTagColor
				})).Return(&model.Tag{ID: "t1", Name: "urgent"}, nil).Once()
			},
		},
		{
			name:    "blank name",
			in:      TagInput{Name: " "},
			setup:   func(r *repoMocks.MockTagRepository) {},
			wantErr: ErrTagNameRequired,
		},
		{
			name:    "bad color",
			in:      TagInput{Name: "x", Color: "red"},
			setup:   func(r *repoMocks.MockTagRepository) {},
			wantErr: ErrInvalidColor,
		},
		{
			name: "duplicate name",
			in:   TagInput{Name: "urgent", Color: "#FF0000"},
			setup: func(r *repoMocks.MockTagRepository) {
				r.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict).Once()
			},
			wantErr: ErrTagExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMocks.MockTagRepository)
			tt.setup(repo)
			svc := NewTagService(repo, nil, time.Second)

			tag, err := svc.Create(ctx, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tag)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "t1", tag.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestTagService_Update(t *testing.T) {
	repo := new(repoMocks.MockTagRepository)
	repo.On("Update", mock.Anything, &model.Tag{ID: "t9", Name: "x", Color: "#000000"}).Return(nil, sql.ErrNoRows).Once()

	_, err := NewTagService(repo, nil, time.Second).Update(context.Background(), "t9", TagInput{Name: "x", Color: "#000000"})

	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestTagService_AttachDetach(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{UserID: "u"}

	t.Run("attach records audit", func(t *testing.T) {
		repo := new(repoMocks.MockTagRepository)
		rec := &auditMocks.Recorder{}
		repo.On("Attach", mock.Anything, "d1", "t1").Return(nil).Once()

		require.NoError(t, NewTagService(repo, rec, time.Second).Attach(ctx, "d1", "t1", actor))
		assert.Equal(t, []audit.Action{audit.TagAdd}, rec.Actions())
	})

	t.Run("attach errors", func(t *testing.T) {
		cases := map[error]error{
			repository.ErrConflict: ErrTagAlreadyAttached,
			sql.ErrNoRows:          ErrNotFound,
			errors.New("boom"):     ErrStorage,
		}
		for repoErr, want := range cases {
			repo := new(repoMocks.MockTagRepository)
			repo.On("Attach", mock.Anything, "d1", "t1").Return(repoErr).Once()
			err := NewTagService(repo, nil, time.Second).Attach(ctx, "d1", "t1", actor)
			assert.ErrorIs(t, err, want)
		}
	})

	t.Run("detach missing", func(t *testing.T) {
		repo := new(repoMocks.MockTagRepository)
		rec := &auditMocks.Recorder{}
		repo.On("Detach", mock.Anything, "d1", "t1").Return(sql.ErrNoRows).Once()

		err := NewTagService(repo, rec, time.Second).Detach(ctx, "d1", "t1", actor)

		assert.ErrorIs(t, err, ErrTagNotAttached)
		assert.Empty(t, rec.Entries)
	})

	t.Run("detach", func(t *testing.T) {
		repo := new(repoMocks.MockTagRepository)
		rec := &auditMocks.Recorder{}
		repo.On("Detach", mock.Anything, "d1", "t1").Return(nil).Once()

		require.NoError(t, NewTagService(repo, rec, time.Second).Detach(ctx, "d1", "t1", actor))
		assert.Equal(t, []audit.Action{audit.TagRemove}, rec.Actions())
	})

	t.Run("missing ids", func(t *testing.T) {
		svc := NewTagService(new(repoMocks.MockTagRepository), nil, time.Second)
		assert.ErrorIs(t, svc.Attach(ctx, "", "t1", actor), ErrIDRequired)
		assert.ErrorIs(t, svc.Detach(ctx, "d1", "", actor), ErrIDRequired)
	})
}
