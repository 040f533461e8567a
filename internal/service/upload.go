package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dmsapi/internal/audit"
	"dmsapi/internal/decision"
	"dmsapi/internal/metrics"
	"dmsapi/internal/model"
	"dmsapi/internal/naming"
	"dmsapi/internal/repository"
	"dmsapi/internal/storage"
)

const (
	documentPrefix   = "documents"
	quarantinePrefix = "quarantine"
)

type UploadStatus string

const (
	StatusCreated     UploadStatus = "created"
	StatusReplaced    UploadStatus = "replaced"
	StatusVersioned   UploadStatus = "versioned"
	StatusQuarantined UploadStatus = "quarantined"
)

// UploadInput is one file submitted for filing.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	// Size is the exact byte count, or -1 when unknown.
	Size   int64
	Intent decision.Intent
	Actor  model.Actor
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	Status     UploadStatus              `json:"status"`
	Document   *model.Document           `json:"document,omitempty"`
	Quarantine *model.QuarantineDocument `json:"quarantine,omitempty"`
	// ReplacedVersions counts the versions discarded by a replace.
	ReplacedVersions int `json:"replaced_versions,omitempty"`
}

// UploadService files documents according to the naming convention and the
// versioning rules.
type UploadService interface {
	// Upload decides what to do with the file and applies that decision.
	// Rejections come back as *InvalidFilenameError or *DuplicateError and
	// write nothing.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
}

type uploadService struct {
	engine     *decision.Engine
	store      storage.Storage
	docs       repository.DocumentRepository
	quarantine repository.QuarantineRepository
	audit      audit.Recorder
	metrics    *metrics.UploadMetrics
	logger     *slog.Logger
	timeout    deadline
	now        func() time.Time
}

// UploadDeps groups the collaborators of the upload pipeline.
type UploadDeps struct {
	Engine     *decision.Engine
	Store      storage.Storage
	Documents  repository.DocumentRepository
	Quarantine repository.QuarantineRepository
	Audit      audit.Recorder
	Metrics    *metrics.UploadMetrics
	Logger     *slog.Logger
	Timeout    time.Duration
}

func NewUploadService(d UploadDeps) UploadService {
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &uploadService{
		engine:     d.Engine,
		store:      d.Store,
		docs:       d.Documents,
		quarantine: d.Quarantine,
		audit:      d.Audit,
		metrics:    d.Metrics,
		logger:     d.Logger,
		timeout:    deadline(d.Timeout),
		now:        time.Now,
	}
}

func (s *uploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	in.Filename = strings.TrimSpace(path.Base(strings.ReplaceAll(in.Filename, "\\", "/")))
	if in.Filename == "" || in.Filename == "." || in.Filename == "/" {
		return nil, ErrFilenameRequired
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}

	ctx, span := tracer.Start(ctx, "upload")
	defer span.End()
	span.SetAttributes(attribute.String("dms.filename", in.Filename))

	lctx, cancel := s.timeout.bound(ctx)
	d, err := s.engine.Evaluate(lctx, in.Filename, in.Intent)
	cancel()
	if err != nil {
		err = external(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("dms.decision", string(d.Kind)), attribute.String("dms.identity_key", d.IdentityKey))
	s.metrics.Outcome(string(d.Kind))
	s.logger.Info("upload_decided",
		"component", "upload",
		"decision", string(d.Kind),
		"file_name", in.Filename,
		"identity_key", d.IdentityKey,
		"user_id", in.Actor.UserID,
	)

	var res *UploadResult
	switch d.Kind {
	case decision.RejectInvalid:
		return nil, &InvalidFilenameError{Err: d.ParseErr, QuarantineAvailable: true}
	case decision.RejectDuplicate:
		return nil, &DuplicateError{Existing: d.Existing}
	case decision.Quarantine:
		res, err = s.storeQuarantined(ctx, d, in)
	default:
		res, err = s.storeDocument(ctx, d, in)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return nil, err
	}
	return res, nil
}

func objectKey(prefix, id, filename string) string {
	return prefix + "/" + id + strings.ToLower(naming.Extension(filename))
}

func (s *uploadService) put(ctx context.Context, key string, in UploadInput) (storage.ObjectInfo, error) {
	pctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	info, err := s.store.Put(pctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata:    map[string]string{"original-filename": in.Filename},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload to storage: %w", external(err))
	}
	if info.Key == "" {
		info.Key = key
	}
	return info, nil
}

// rollback removes a blob whose metadata write failed and folds the outcome
// into the returned error.
func (s *uploadService) rollback(ctx context.Context, key string, saveErr error) error {
	dctx, cancel := s.timeout.detached(ctx)
	defer cancel()
	if delErr := s.store.Delete(dctx, key); delErr != nil {
		s.metrics.OrphanedBlob()
		s.logger.Error("orphaned_blob",
			"component", "upload",
			"storage_path", key,
			"reason", "rollback",
			"error", delErr.Error(),
		)
		return fmt.Errorf("db save failed: %w; rollback delete failed: %v", saveErr, delErr)
	}
	return fmt.Errorf("db save failed: %w", saveErr)
}

func (s *uploadService) storeQuarantined(ctx context.Context, d decision.Decision, in UploadInput) (*UploadResult, error) {
	id := uuid.NewString()
	info, err := s.put(ctx, objectKey(quarantinePrefix, id, in.Filename), in)
	if err != nil {
		return nil, err
	}

	q := &model.QuarantineDocument{
		ID:           id,
		Filename:     in.Filename,
		StoragePath:  info.Key,
		Size:         info.Size,
		ContentType:  in.ContentType,
		ErrorMessage: d.ParseErr.Message,
		UploadedBy:   in.Actor.UserID,
		CreatedAt:    s.now().UTC(),
	}
	wctx, cancel := s.timeout.bound(ctx)
	stored, err := s.quarantine.Create(wctx, q)
	cancel()
	if err != nil {
		return nil, s.rollback(ctx, info.Key, external(err))
	}

	s.audit.Record(ctx, audit.Entry{
		Action:       audit.QuarantineUpload,
		ResourceType: audit.ResourceQuarantine,
		ResourceID:   stored.ID,
		Actor:        in.Actor,
		Details:      map[string]any{"file_name": in.Filename, "error": d.ParseErr.Message},
	})
	return &UploadResult{Status: StatusQuarantined, Quarantine: stored}, nil
}

func (s *uploadService) storeDocument(ctx context.Context, d decision.Decision, in UploadInput) (*UploadResult, error) {
	id := uuid.NewString()
	info, err := s.put(ctx, objectKey(documentPrefix, id, in.Filename), in)
	if err != nil {
		return nil, err
	}

	rec, err := d.Record(decision.Blob{
		ID:          id,
		Filename:    in.Filename,
		StoragePath: info.Key,
		Size:        info.Size,
		ContentType: in.ContentType,
		UploadedBy:  in.Actor.UserID,
	}, s.now().UTC())
	if err != nil {
		return nil, s.rollback(ctx, info.Key, err)
	}

	var (
		stored  *model.Document
		removed []model.Document
		status  UploadStatus
		action  audit.Action
	)
	wctx, cancel := s.timeout.bound(ctx)
	switch d.Kind {
	case decision.CreateVersion:
		status, action = StatusVersioned, audit.DocumentVersion
		stored, err = s.docs.CreateVersion(wctx, d.Existing.ID, &rec)
	case decision.ReplaceExisting:
		status, action = StatusReplaced, audit.DocumentReplace
		stored, removed, err = s.docs.Replace(wctx, &rec)
	default:
		status, action = StatusCreated, audit.DocumentUpload
		stored, err = s.docs.Create(wctx, &rec)
	}
	cancel()

	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Warn("upload_conflict",
				"component", "upload",
				"decision", string(d.Kind),
				"identity_key", d.IdentityKey,
			)
			return nil, s.rollback(ctx, info.Key, fmt.Errorf("%w: %w", ErrConcurrentModification, err))
		}
		err = external(err)
		if errors.Is(err, ErrTimeout) {
			landed, confirmErr := s.confirmWrite(ctx, rec.ID)
			switch {
			case confirmErr != nil:
				// Outcome unknown: a stray blob is recoverable, a record without one is not.
				s.logger.Error("write_unconfirmed",
					"component", "upload",
					"document_id", rec.ID,
					"storage_path", info.Key,
					"identity_key", d.IdentityKey,
					"error", confirmErr.Error(),
				)
				return nil, fmt.Errorf("db save unconfirmed: %w", err)
			case landed != nil:
				s.logger.Warn("write_confirmed_after_timeout",
					"component", "upload",
					"document_id", landed.ID,
					"decision", string(d.Kind),
				)
				if d.Kind == decision.ReplaceExisting {
					// The replaced rows are gone and their paths with them.
					s.metrics.OrphanedBlob()
					s.logger.Error("orphaned_blob",
						"component", "upload",
						"identity_key", d.IdentityKey,
						"reason", "replace_unacknowledged",
					)
				}
				stored, err = landed, nil
			}
		}
	}
	if err != nil {
		if d.Kind == decision.CreateVersion {
			s.reconcile(ctx, d.IdentityKey)
		}
		return nil, s.rollback(ctx, info.Key, err)
	}

	s.discardBlobs(ctx, removed)

	details := map[string]any{
		"file_name":    stored.Filename,
		"identity_key": stored.IdentityKey,
		"version":      stored.Version,
		"file_size":    stored.Size,
	}
	if d.Kind == decision.ReplaceExisting {
		details["replaced_versions"] = len(removed)
	}
	s.audit.Record(ctx, audit.Entry{
		Action:       action,
		ResourceType: audit.ResourceDocument,
		ResourceID:   stored.ID,
		Actor:        in.Actor,
		Details:      details,
	})
	return &UploadResult{Status: status, Document: stored, ReplacedVersions: len(removed)}, nil
}

// confirmWrite looks up a record whose write timed out. It returns the
// record when the commit landed and nil when the row is confirmed absent.
func (s *uploadService) confirmWrite(ctx context.Context, id string) (*model.Document, error) {
	fctx, cancel := s.timeout.detached(ctx)
	defer cancel()
	doc, err := s.docs.FindByID(fctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// reconcile restores a latest flag after a failed version write.
func (s *uploadService) reconcile(ctx context.Context, key string) {
	rctx, cancel := s.timeout.detached(ctx)
	defer cancel()
	promoted, err := s.docs.ReconcileLatest(rctx, key)
	switch {
	case err != nil:
		s.logger.Error("reconcile_failed", "component", "upload", "identity_key", key, "error", err.Error())
	case promoted != nil:
		s.logger.Warn("reconcile_promoted", "component", "upload", "identity_key", key, "document_id", promoted.ID, "version", promoted.Version)
	}
}

// discardBlobs deletes the objects of replaced versions. Failures leave
// orphans for reconciliation and never fail the upload.
func (s *uploadService) discardBlobs(ctx context.Context, docs []model.Document) {
	for _, doc := range docs {
		dctx, cancel := s.timeout.detached(ctx)
		err := s.store.Delete(dctx, doc.StoragePath)
		cancel()
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.metrics.OrphanedBlob()
			s.logger.Error("orphaned_blob",
				"component", "upload",
				"storage_path", doc.StoragePath,
				"document_id", doc.ID,
				"reason", "replace",
				"error", err.Error(),
			)
		}
	}
}
