package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dmsapi/internal/audit"
	"dmsapi/internal/model"
	"dmsapi/internal/repository"
	"dmsapi/internal/share"
	"dmsapi/internal/storage"
)

const maxShareDays = 365

// ShareInput creates a share link. Zero ExpiresInDays uses the default.
type ShareInput struct {
	DocumentID    string `json:"document_id"`
	ExpiresInDays int    `json:"expires_in_days"`
	MaxViews      *int   `json:"max_views"`
	PIN           string `json:"pin"`
}

// SharedDocument is what a share token unlocks.
type SharedDocument struct {
	Document    *model.Document `json:"document"`
	DownloadURL string          `json:"download_url"`
	ExpiresAt   time.Time       `json:"expires_at"`
	ViewsLeft   *int            `json:"views_left,omitempty"`
}

// ShareListResult is a page of share links.
type ShareListResult struct {
	Items []model.SharedLink `json:"data"`
	Total int                `json:"total"`
}

type ShareService interface {
	Create(ctx context.Context, in ShareInput, actor model.Actor) (*model.SharedLink, error)
	// Access consumes one view of the link behind token.
	Access(ctx context.Context, token, pin string, actor model.Actor) (*SharedDocument, error)
	List(ctx context.Context, limit, offset int) (*ShareListResult, error)
	Revoke(ctx context.Context, id string, actor model.Actor) error
}

type shareService struct {
	repo        repository.ShareRepository
	docs        repository.DocumentRepository
	store       storage.Storage
	audit       audit.Recorder
	timeout     deadline
	defaultDays int
	presignTTL  time.Duration
	now         func() time.Time
}

// ShareDeps groups the collaborators of ShareService.
type ShareDeps struct {
	Shares      repository.ShareRepository
	Documents   repository.DocumentRepository
	Store       storage.Storage
	Audit       audit.Recorder
	Timeout     time.Duration
	DefaultDays int
	PresignTTL  time.Duration
}

func NewShareService(d ShareDeps) ShareService {
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.DefaultDays <= 0 {
		d.DefaultDays = 7
	}
	if d.PresignTTL <= 0 {
		d.PresignTTL = 15 * time.Minute
	}
	return &shareService{
		repo:        d.Shares,
		docs:        d.Documents,
		store:       d.Store,
		audit:       d.Audit,
		timeout:     deadline(d.Timeout),
		defaultDays: d.DefaultDays,
		presignTTL:  d.PresignTTL,
		now:         time.Now,
	}
}

func (s *shareService) Create(ctx context.Context, in ShareInput, actor model.Actor) (*model.SharedLink, error) {
	if in.DocumentID == "" {
		return nil, ErrIDRequired
	}
	days := in.ExpiresInDays
	if days == 0 {
		days = s.defaultDays
	}
	if days < 0 || days > maxShareDays {
		return nil, ErrInvalidExpiry
	}
	if in.MaxViews != nil && *in.MaxViews <= 0 {
		return nil, ErrInvalidViews
	}

	fctx, cancel := s.timeout.bound(ctx)
	doc, err := s.docs.FindByID(fctx, in.DocumentID)
	cancel()
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}

	token, err := share.NewToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	link := &model.SharedLink{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Token:      token,
		CreatedBy:  actor.UserID,
		ExpiresAt:  now.AddDate(0, 0, days),
		MaxViews:   in.MaxViews,
		CreatedAt:  now,
	}
	if pin := strings.TrimSpace(in.PIN); pin != "" {
		link.PINHash, err = share.HashPIN(pin)
		if err != nil {
			return nil, err
		}
		link.HasPIN = true
	}

	cctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	stored, err := s.repo.Create(cctx, link)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:       audit.ShareCreate,
		ResourceType: audit.ResourceShare,
		ResourceID:   stored.ID,
		Actor:        actor,
		Details: map[string]any{
			"document_id":     doc.ID,
			"file_name":       doc.Filename,
			"expires_in_days": days,
			"has_pin":         link.HasPIN,
		},
	})
	return stored, nil
}

// usable checks a link's state before a view is consumed.
func usable(link *model.SharedLink, now time.Time) error {
	switch {
	case link.RevokedAt != nil:
		return ErrShareRevoked
	case link.Expired(now):
		return ErrShareExpired
	case link.Exhausted():
		return ErrShareExhausted
	}
	return nil
}

func (s *shareService) Access(ctx context.Context, token, pin string, actor model.Actor) (*SharedDocument, error) {
	if token == "" {
		return nil, ErrShareNotFound
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()

	link, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return nil, notFound(err, ErrShareNotFound)
	}
	now := s.now().UTC()
	if err := usable(link, now); err != nil {
		return nil, err
	}
	if link.PINHash != "" {
		if pin == "" {
			return nil, ErrPINRequired
		}
		ok, err := share.VerifyPIN(pin, link.PINHash)
		if err != nil {
			return nil, fmt.Errorf("verify pin: %w", err)
		}
		if !ok {
			return nil, ErrInvalidPIN
		}
	}

	consumed, err := s.repo.IncrementView(ctx, link.ID, now)
	if err != nil {
		return nil, external(err)
	}
	if !consumed {
		// lost a race for the last view, or the link changed underneath us
		return nil, ErrShareExhausted
	}
	link.ViewCount++

	doc, err := s.docs.FindByID(ctx, link.DocumentID)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.presignTTL)
	if err != nil {
		return nil, external(err)
	}

	out := &SharedDocument{Document: doc, DownloadURL: u, ExpiresAt: link.ExpiresAt}
	if link.MaxViews != nil {
		left := *link.MaxViews - link.ViewCount
		out.ViewsLeft = &left
	}
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.ShareAccess,
		ResourceType: audit.ResourceShare,
		ResourceID:   link.ID,
		Actor:        actor,
		Details:      map[string]any{"document_id": doc.ID, "view_count": link.ViewCount},
	})
	return out, nil
}

func (s *shareService) List(ctx context.Context, limit, offset int) (*ShareListResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, external(err)
	}
	return &ShareListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *shareService) Revoke(ctx context.Context, id string, actor model.Actor) error {
	if id == "" {
		return ErrIDRequired
	}
	rctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	if err := s.repo.Revoke(rctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShareNotFound
		}
		return external(err)
	}
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.ShareRevoke,
		ResourceType: audit.ResourceShare,
		ResourceID:   id,
		Actor:        actor,
	})
	return nil
}
