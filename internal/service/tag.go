package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"dmsapi/internal/audit"
	"dmsapi/internal/model"
	"dmsapi/internal/repository"
)

var (
	colorPattern    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	ErrInvalidColor = errors.New("color must be a #rrggbb hex value")
)

// TagInput creates or updates a tag. An empty Color keeps the default.
type TagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type TagService interface {
	List(ctx context.Context) ([]model.Tag, error)
	Create(ctx context.Context, in TagInput) (*model.Tag, error)
	Update(ctx context.Context, id string, in TagInput) (*model.Tag, error)
	Delete(ctx context.Context, id string) error
	ForDocument(ctx context.Context, documentID string) ([]model.Tag, error)
	Attach(ctx context.Context, documentID, tagID string, actor model.Actor) error
	Detach(ctx context.Context, documentID, tagID string, actor model.Actor) error
}

type tagService struct {
	repo    repository.TagRepository
	audit   audit.Recorder
	timeout deadline
	now     func() time.Time
}

func NewTagService(repo repository.TagRepository, rec audit.Recorder, timeout time.Duration) TagService {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &tagService{repo: repo, audit: rec, timeout: deadline(timeout), now: time.Now}
}

func normalizeTag(in TagInput) (TagInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, ErrTagNameRequired
	}
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = model.DefaultTagColor
	}
	if !colorPattern.MatchString(in.Color) {
		return in, ErrInvalidColor
	}
	return in, nil
}

func tagWriteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrConflict):
		return ErrTagExists
	case errors.Is(err, sql.ErrNoRows):
		return ErrTagNotFound
	default:
		return external(err)
	}
}

func (s *tagService) List(ctx context.Context) ([]model.Tag, error) {
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	tags, err := s.repo.List(ctx)
	if err != nil {
		return nil, external(err)
	}
	return tags, nil
}

func (s *tagService) Create(ctx context.Context, in TagInput) (*model.Tag, error) {
	in, err := normalizeTag(in)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	tag, err := s.repo.Create(ctx, &model.Tag{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Color:     in.Color,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, tagWriteErr(err)
	}
	return tag, nil
}

func (s *tagService) Update(ctx context.Context, id string, in TagInput) (*model.Tag, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	in, err := normalizeTag(in)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	tag, err := s.repo.Update(ctx, &model.Tag{ID: id, Name: in.Name, Color: in.Color})
	if err != nil {
		return nil, tagWriteErr(err)
	}
	return tag, nil
}

func (s *tagService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	return external(s.repo.Delete(ctx, id))
}

func (s *tagService) ForDocument(ctx context.Context, documentID string) ([]model.Tag, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	tags, err := s.repo.ListForDocument(ctx, documentID)
	if err != nil {
		return nil, external(err)
	}
	return tags, nil
}

func (s *tagService) Attach(ctx context.Context, documentID, tagID string, actor model.Actor) error {
	if documentID == "" || tagID == "" {
		return ErrIDRequired
	}
	actx, cancel := s.timeout.bound(ctx)
	defer cancel()
	if err := s.repo.Attach(actx, documentID, tagID); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return ErrTagAlreadyAttached
		case errors.Is(err, sql.ErrNoRows):
			// document or tag missing
			return ErrNotFound
		default:
			return external(err)
		}
	}
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.TagAdd,
		ResourceType: audit.ResourceDocument,
		ResourceID:   documentID,
		Actor:        actor,
		Details:      map[string]any{"tag_id": tagID},
	})
	return nil
}

func (s *tagService) Detach(ctx context.Context, documentID, tagID string, actor model.Actor) error {
	if documentID == "" || tagID == "" {
		return ErrIDRequired
	}
	dctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	if err := s.repo.Detach(dctx, documentID, tagID); err != nil {
		return notFound(err, ErrTagNotAttached)
	}
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.TagRemove,
		ResourceType: audit.ResourceDocument,
		ResourceID:   documentID,
		Actor:        actor,
		Details:      map[string]any{"tag_id": tagID},
	})
	return nil
}
