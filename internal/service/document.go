package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"dmsapi/internal/audit"
	"dmsapi/internal/decision"
	"dmsapi/internal/export"
	"dmsapi/internal/metrics"
	"dmsapi/internal/model"
	"dmsapi/internal/naming"
	"dmsapi/internal/repository"
	"dmsapi/internal/storage"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	maxExportRows    = 10000
)

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items  []model.Document `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// DownloadLink is a presigned, time-limited URL for one document.
type DownloadLink struct {
	URL       string    `json:"url"`
	Filename  string    `json:"file_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportResult counts the rows written by an export. Matched exceeds Rows
// when the row cap cut the export short.
type ExportResult struct {
	Rows    int
	Matched int
}

func (r ExportResult) Truncated() bool { return r.Matched > r.Rows }

// ReconcileResult reports the state of a version chain after reconciliation.
type ReconcileResult struct {
	IdentityKey string          `json:"identity_key"`
	Promoted    *model.Document `json:"promoted,omitempty"`
	Versions    int             `json:"versions"`
	Consistent  bool            `json:"consistent"`
	Problem     string          `json:"problem,omitempty"`
}

// DocumentService defines the read and maintenance use cases for documents.
type DocumentService interface {
	// List returns documents matching f with a total count.
	List(ctx context.Context, f model.DocumentFilter) (*DocumentListResult, error)

	// Get returns a single document by its ID, including its tags.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Versions returns every version sharing the document's identity key.
	Versions(ctx context.Context, id string) ([]model.Document, error)

	// Delete removes a document version's record, then its stored file.
	Delete(ctx context.Context, id string, actor model.Actor) error

	// DownloadURL presigns a download for the document's blob.
	DownloadURL(ctx context.Context, id string, actor model.Actor) (*DownloadLink, error)

	// Filters returns the facets available for filtering latest documents.
	Filters(ctx context.Context) (*model.Facets, error)

	// Export writes up to maxExportRows latest documents matching f to w.
	Export(ctx context.Context, w io.Writer, format export.Format, f model.DocumentFilter, actor model.Actor) (ExportResult, error)

	// Reconcile repairs the latest flag of one identity key and validates the chain.
	Reconcile(ctx context.Context, key string) (*ReconcileResult, error)
}

type documentService struct {
	store      storage.Storage
	repo       repository.DocumentRepository
	tags       repository.TagRepository
	classifier *naming.Classifier
	audit      audit.Recorder
	metrics    *metrics.UploadMetrics
	logger     *slog.Logger
	timeout    deadline
	presignTTL time.Duration
	now        func() time.Time
}

// DocumentDeps groups the collaborators of DocumentService.
type DocumentDeps struct {
	Store      storage.Storage
	Documents  repository.DocumentRepository
	Tags       repository.TagRepository
	Classifier *naming.Classifier
	Audit      audit.Recorder
	Metrics    *metrics.UploadMetrics
	Logger     *slog.Logger
	Timeout    time.Duration
	PresignTTL time.Duration
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(d DocumentDeps) DocumentService {
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Classifier == nil {
		d.Classifier = naming.NewClassifier()
	}
	if d.PresignTTL <= 0 {
		d.PresignTTL = 15 * time.Minute
	}
	return &documentService{
		store:      d.Store,
		repo:       d.Documents,
		tags:       d.Tags,
		classifier: d.Classifier,
		audit:      d.Audit,
		metrics:    d.Metrics,
		logger:     d.Logger,
		timeout:    deadline(d.Timeout),
		presignTTL: d.PresignTTL,
		now:        time.Now,
	}
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, f model.DocumentFilter) (*DocumentListResult, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	res, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, external(err)
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *documentService) find(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return doc, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	tctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	tags, err := s.tags.ListForDocument(tctx, id)
	if err != nil {
		return nil, external(err)
	}
	doc.Tags = tags
	return doc, nil
}

func (s *documentService) Versions(ctx context.Context, id string) ([]model.Document, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	cctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	chain, err := s.repo.ListChain(cctx, doc.IdentityKey)
	if err != nil {
		return nil, external(err)
	}
	return chain, nil
}

// Delete removes a document record, then its blob.
func (s *documentService) Delete(ctx context.Context, id string, actor model.Actor) error {
	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	// Row first: a failed blob delete leaves an orphan, never a dangling record.
	rctx, cancel := s.timeout.bound(ctx)
	err = s.repo.Delete(rctx, id)
	cancel()
	if err != nil {
		return notFound(err, ErrNotFound)
	}

	sctx, cancel := s.timeout.detached(ctx)
	err = s.store.Delete(sctx, doc.StoragePath)
	cancel()
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.metrics.OrphanedBlob()
		s.logger.Error("orphaned_blob",
			"component", "documents",
			"storage_path", doc.StoragePath,
			"document_id", id,
			"reason", "delete",
			"error", err.Error(),
		)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:       audit.DocumentDelete,
		ResourceType: audit.ResourceDocument,
		ResourceID:   id,
		Actor:        actor,
		Details: map[string]any{
			"file_name":    doc.Filename,
			"identity_key": doc.IdentityKey,
			"version":      doc.Version,
			"was_latest":   doc.IsLatest,
		},
	})
	return nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string, actor model.Actor) (*DownloadLink, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	pctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	u, err := s.store.PresignGet(pctx, doc.StoragePath, s.presignTTL)
	if err != nil {
		return nil, external(err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:       audit.DocumentDownload,
		ResourceType: audit.ResourceDocument,
		ResourceID:   id,
		Actor:        actor,
		Details:      map[string]any{"file_name": doc.Filename},
	})
	return &DownloadLink{URL: u, Filename: doc.Filename, ExpiresAt: s.now().UTC().Add(s.presignTTL)}, nil
}

// Filters gathers the facets concurrently.
func (s *documentService) Filters(ctx context.Context) (*model.Facets, error) {
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()

	var (
		types     []repository.TypeCount
		companies []string
		total     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		types, err = s.repo.DistinctTypes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		companies, err = s.repo.DistinctCompanies(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountLatest(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, external(err)
	}

	facets := &model.Facets{
		Types:     make([]model.TypeFacet, 0, len(types)),
		Companies: companies,
		Total:     total,
	}
	if facets.Companies == nil {
		facets.Companies = []string{}
	}
	for _, t := range types {
		dt := s.classifier.Classify(t.Code)
		facets.Types = append(facets.Types, model.TypeFacet{
			Code:     dt.Code,
			Label:    dt.Label,
			Category: dt.Category,
			Count:    t.Count,
		})
	}
	return facets, nil
}

func (s *documentService) Export(ctx context.Context, w io.Writer, format export.Format, f model.DocumentFilter, actor model.Actor) (ExportResult, error) {
	f.LatestOnly = true
	f.Limit = maxExportRows
	f.Offset = 0
	if f.SortBy == "" {
		f.SortBy, f.SortDesc = "doc_date", true
	}

	lctx, cancel := s.timeout.bound(ctx)
	res, err := s.repo.List(lctx, f)
	cancel()
	if err != nil {
		return ExportResult{}, external(err)
	}
	if err := export.Write(w, format, res.Items); err != nil {
		return ExportResult{}, fmt.Errorf("write %s export: %w", format, err)
	}
	out := ExportResult{Rows: len(res.Items), Matched: max(res.Total, len(res.Items))}
	if out.Truncated() {
		s.logger.Warn("export_truncated", "component", "documents", "rows", out.Rows, "matched", out.Matched)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:       audit.DocumentsExport,
		ResourceType: audit.ResourceExport,
		Actor:        actor,
		Details: map[string]any{
			"count":     out.Rows,
			"matched":   out.Matched,
			"format":    string(format),
			"types":     strings.Join(f.Types, ","),
			"companies": strings.Join(f.Companies, ","),
		},
	})
	return out, nil
}

func (s *documentService) Reconcile(ctx context.Context, key string) (*ReconcileResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrIDRequired
	}
	ctx, span := tracer.Start(ctx, "reconcile", trace.WithAttributes(attribute.String("dms.identity_key", key)))
	defer span.End()
	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()

	promoted, err := s.repo.ReconcileLatest(ctx, key)
	if err != nil {
		return nil, external(err)
	}
	chain, err := s.repo.ListChain(ctx, key)
	if err != nil {
		return nil, external(err)
	}
	if len(chain) == 0 {
		return nil, ErrNotFound
	}

	res := &ReconcileResult{IdentityKey: key, Promoted: promoted, Versions: len(chain), Consistent: true}
	if err := decision.CheckChain(chain); err != nil {
		span.SetStatus(codes.Error, "chain inconsistent")
		res.Consistent = false
		res.Problem = err.Error()
		s.logger.Error("chain_inconsistent", "component", "reconcile", "identity_key", key, "error", err.Error())
	} else if promoted != nil {
		s.logger.Warn("reconcile_promoted", "component", "reconcile", "identity_key", key, "document_id", promoted.ID, "version", promoted.Version)
	}
	return res, nil
}
