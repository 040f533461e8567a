package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dmsapi/internal/audit"
	"dmsapi/internal/decision"
	"dmsapi/internal/model"
	"dmsapi/internal/naming"
	"dmsapi/internal/repository"
	"dmsapi/internal/storage"
)

// QuarantineListResult is a page of quarantined files.
type QuarantineListResult struct {
	Items []model.QuarantineDocument `json:"data"`
	Total int                        `json:"total"`
}

// QuarantineService manages uploads held back for a bad filename.
type QuarantineService interface {
	List(ctx context.Context, limit, offset int) (*QuarantineListResult, error)
	Delete(ctx context.Context, id string, actor model.Actor) error
	// Recover files the quarantined blob under filename through the normal
	// upload path and drops the quarantine entry on success.
	Recover(ctx context.Context, id, filename string, intent decision.Intent, actor model.Actor) (*UploadResult, error)
}

type quarantineService struct {
	store   storage.Storage
	repo    repository.QuarantineRepository
	uploads UploadService
	audit   audit.Recorder
	logger  *slog.Logger
	timeout deadline
}

func NewQuarantineService(store storage.Storage, repo repository.QuarantineRepository, uploads UploadService, rec audit.Recorder, logger *slog.Logger, timeout time.Duration) QuarantineService {
	if rec == nil {
		rec = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &quarantineService{store: store, repo: repo, uploads: uploads, audit: rec, logger: logger, timeout: deadline(timeout)}
}

func (s *quarantineService) List(ctx context.Context, limit, offset int) (*QuarantineListResult, error) {
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
	return &QuarantineListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *quarantineService) find(ctx context.Context, id string) (*model.QuarantineDocument, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	q, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrQuarantineNotFound)
	}
	return q, nil
}

func (s *quarantineService) Delete(ctx context.Context, id string, actor model.Actor) error {
	q, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, q); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.QuarantineDelete,
		ResourceType: audit.ResourceQuarantine,
		ResourceID:   id,
		Actor:        actor,
		Details:      map[string]any{"file_name": q.Filename},
	})
	return nil
}

// remove deletes the blob, then the row.
func (s *quarantineService) remove(ctx context.Context, q *model.QuarantineDocument) error {
	sctx, cancel := s.timeout.bound(ctx)
	err := s.store.Delete(sctx, q.StoragePath)
	cancel()
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return fmt.Errorf("delete storage: %w", external(err))
	}
	rctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	if err := s.repo.Delete(rctx, q.ID); err != nil {
		return external(err)
	}
	return nil
}

func (s *quarantineService) Recover(ctx context.Context, id, filename string, intent decision.Intent, actor model.Actor) (*UploadResult, error) {
	if filename == "" {
		return nil, ErrFilenameRequired
	}
	// A recovered file must pass the convention; it never goes back to quarantine.
	if _, err := naming.Parse(filename); err != nil {
		var pe *naming.ParseError
		errors.As(err, &pe)
		return nil, &InvalidFilenameError{Err: pe}
	}
	intent.AllowQuarantine = false

	q, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	gctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	rc, info, err := s.store.Get(gctx, q.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read quarantined blob: %w", external(err))
	}
	defer rc.Close()

	size := info.Size
	if size <= 0 {
		size = q.Size
	}
	res, err := s.uploads.Upload(ctx, UploadInput{
		Reader:      rc,
		Filename:    filename,
		ContentType: q.ContentType,
		Size:        size,
		Intent:      intent,
		Actor:       actor,
	})
	if err != nil {
		return nil, err
	}

	// The document is filed; a failed cleanup only leaves a stale entry.
	if err := s.remove(ctx, q); err != nil {
		s.logger.Warn("quarantine_cleanup_failed", "component", "quarantine", "quarantine_id", q.ID, "error", err.Error())
	}
	details := map[string]any{"original_file_name": q.Filename, "file_name": filename}
	if res.Document != nil {
		details["document_id"] = res.Document.ID
	}
	s.audit.Record(ctx, audit.Entry{
		Action:       audit.QuarantineRecover,
		ResourceType: audit.ResourceQuarantine,
		ResourceID:   q.ID,
		Actor:        actor,
		Details:      details,
	})
	return res, nil
}
