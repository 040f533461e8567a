package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"dmsapi/internal/audit"
	auditMocks "dmsapi/internal/audit/mocks"
	"dmsapi/internal/decision"
	"dmsapi/internal/logging"
	"dmsapi/internal/metrics"
	"dmsapi/internal/model"
	"dmsapi/internal/naming"
	"dmsapi/internal/repository"
	repoMocks "dmsapi/internal/repository/mocks"
	"dmsapi/internal/storage"
	storeMocks "dmsapi/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const validName = "DKC-INV-Acme-14411300001A-02122025.pdf"

type uploadFixture struct {
	store *storeMocks.MockStorage
	docs  *repoMocks.MockDocumentRepository
	quar  *repoMocks.MockQuarantineRepository
	rec   *auditMocks.Recorder
	log   *bytes.Buffer
	svc   UploadService
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	f := &uploadFixture{
		store: new(storeMocks.MockStorage),
		docs:  new(repoMocks.MockDocumentRepository),
		quar:  new(repoMocks.MockQuarantineRepository),
		rec:   &auditMocks.Recorder{},
		log:   &bytes.Buffer{},
	}
	m, err := metrics.NewUploadMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	f.svc = NewUploadService(UploadDeps{
		Engine:     decision.NewEngine(f.docs, naming.KeySerial),
		Store:      f.store,
		Documents:  f.docs,
		Quarantine: f.quar,
		Audit:      f.rec,
		Metrics:    m,
		Logger:     logging.New(f.log, "debug", time.UTC),
		Timeout:    time.Second,
	})
	return f
}

// echoPut stores whatever key it is given.
func echoPut(_ context.Context, key string, r io.Reader, _ storage.PutObjectOptions) storage.ObjectInfo {
	b, _ := io.ReadAll(r)
	return storage.ObjectInfo{Key: key, Size: int64(len(b))}
}

func input(name string, intent decision.Intent) UploadInput {
	return UploadInput{
		Reader:      strings.NewReader("hello"),
		Filename:    name,
		ContentType: "application/pdf",
		Size:        5,
		Intent:      intent,
		Actor:       model.Actor{UserID: "u-1", Email: "u@dkc.test", Role: model.RoleEditor},
	}
}

func existingDoc() *model.Document {
	return &model.Document{
		ID:          "old-id",
		Filename:    validName,
		StoragePath: "documents/old-id.pdf",
		DocSerial:   "14411300001A",
		IdentityKey: "14411300001A",
		Version:     2,
		IsLatest:    true,
	}
}

func TestUploadService_CreateNew(t *testing.T) {
	f := newUploadFixture(t)

	f.docs.On("FindLatestByKey", mock.Anything, "14411300001A").Return(nil, sql.ErrNoRows).Once()
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".pdf")
	}), mock.Anything, storage.PutObjectOptions{
		Size:        5,
		ContentType: "application/pdf",
		Metadata:    map[string]string{"original-filename": validName},
	}).Return(echoPut, nil).Once()

	var saved *model.Document
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
		return d.Version == 1 && d.IsLatest && d.ParentID == nil &&
			d.IdentityKey == "14411300001A" && d.DocType == "INV" &&
			d.CompanyName == "Acme" && d.DocDate.String() == "2025-12-02" &&
			d.Filename == validName && d.UploadedBy == "u-1"
	})).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*model.Document)
	}).Return(&model.Document{ID: "new-id", Version: 1, IsLatest: true, Filename: validName}, nil).Once()

	res, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{}))

	require.NoError(t, err)
	assert.Equal(t, StatusCreated, res.Status)
	assert.Equal(t, "new-id", res.Document.ID)
	require.NotNil(t, saved)
	assert.Equal(t, "documents/"+saved.ID+".pdf", saved.StoragePath)
	assert.Equal(t, []audit.Action{audit.DocumentUpload}, f.rec.Actions())
	assert.Contains(t, f.log.String(), `"msg":"upload_decided"`)
	f.docs.AssertExpectations(t)
	f.store.AssertExpectations(t)
}

func TestUploadService_DuplicateWritesNothing(t *testing.T) {
	f := newUploadFixture(t)
	existing := existingDoc()
	f.docs.On("FindLatestByKey", mock.Anything, "14411300001A").Return(existing, nil).Once()

	res, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{}))

	assert.Nil(t, res)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, existing, dup.Existing)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.rec.Actions())
}

func TestUploadService_InvalidFilename(t *testing.T) {
	f := newUploadFixture(t)

	_, err := f.svc.Upload(context.Background(), input("invoice-final.pdf", decision.Intent{}))

	var inv *InvalidFilenameError
	require.ErrorAs(t, err, &inv)
	assert.True(t, inv.QuarantineAvailable)
	assert.ErrorIs(t, err, naming.ErrInvalidFormat)
	assert.Equal(t, "Invalid Naming Convention. Expected format: DKC-[Type]-[Company]-[ID]-[Date]", err.Error())
	f.docs.AssertNotCalled(t, "FindLatestByKey", mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadService_InvalidDate(t *testing.T) {
	f := newUploadFixture(t)

	_, err := f.svc.Upload(context.Background(), input("DKC-INV-Acme-1-31022025.pdf", decision.Intent{}))

	assert.ErrorIs(t, err, naming.ErrInvalidDate)
}

func TestUploadService_Quarantine(t *testing.T) {
	f := newUploadFixture(t)

	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "quarantine/") && strings.HasSuffix(key, ".pdf")
	}), mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	f.quar.On("Create", mock.Anything, mock.MatchedBy(func(q *model.QuarantineDocument) bool {
		return q.Filename == "scan 001.PDF" &&
			strings.HasPrefix(q.ErrorMessage, "Invalid Naming Convention") &&
			q.Size == 5
	})).Return(&model.QuarantineDocument{ID: "q-1", Filename: "scan 001.PDF"}, nil).Once()

	res, err := f.svc.Upload(context.Background(), input("scan 001.PDF", decision.Intent{AllowQuarantine: true}))

	require.NoError(t, err)
	assert.Equal(t, StatusQuarantined, res.Status)
	assert.Equal(t, "q-1", res.Quarantine.ID)
	assert.Equal(t, []audit.Action{audit.QuarantineUpload}, f.rec.Actions())
	f.docs.AssertNotCalled(t, "FindLatestByKey", mock.Anything, mock.Anything)
}

func TestUploadService_QuarantineFlagIgnoredForValidName(t *testing.T) {
	f := newUploadFixture(t)
	f.docs.On("FindLatestByKey", mock.Anything, "14411300001A").Return(nil, nil).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	f.docs.On("Create", mock.Anything, mock.Anything).Return(&model.Document{ID: "new-id"}, nil).Once()

	res, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{AllowQuarantine: true}))

	require.NoError(t, err)
	assert.Equal(t, StatusCreated, res.Status)
	f.quar.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUploadService_CreateVersion(t *testing.T) {
	f := newUploadFixture(t)
	f.docs.On("FindLatestByKey", mock.Anything, "14411300001A").Return(existingDoc(), nil).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	f.docs.On("CreateVersion", mock.Anything, "old-id", mock.MatchedBy(func(d *model.Document) bool {
		return d.Version == 3 && d.IsLatest && d.ParentID != nil && *d.ParentID == "old-id"
	})).Return(&model.Document{ID: "v3", Version: 3, IsLatest: true}, nil).Once()

	// createVersion wins over forceUpload
	res, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{CreateVersion: true, ForceReplace: true}))

	require.NoError(t, err)
	assert.Equal(t, StatusVersioned, res.Status)
	assert.Equal(t, 3, res.Document.Version)
	assert.Equal(t, []audit.Action{audit.DocumentVersion}, f.rec.Actions())
	f.docs.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestUploadService_VersionConflictRollsBack(t *testing.T) {
	f := newUploadFixture(t)
	f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(existingDoc(), nil).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	f.docs.On("CreateVersion", mock.Anything, "old-id", mock.Anything).Return(nil, repository.ErrConflict).Once()
	f.store.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "documents/")
	})).Return(nil).Once()

	_, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{CreateVersion: true}))

	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.ErrorIs(t, err, repository.ErrConflict)
	f.docs.AssertNotCalled(t, "ReconcileLatest", mock.Anything, mock.Anything)
	f.store.AssertExpectations(t)
	assert.Empty(t, f.rec.Actions())
}

func TestUploadService_VersionFailureReconciles(t *testing.T) {
	f := newUploadFixture(t)
	f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(existingDoc(), nil).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	f.docs.On("CreateVersion", mock.Anything, "old-id", mock.Anything).Return(nil, errors.New("tx aborted")).Once()
	f.docs.On("ReconcileLatest", mock.Anything, "14411300001A").Return(nil, nil).Once()
	f.store.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{CreateVersion: true}))

	assert.ErrorIs(t, err, ErrStorage)
	assert.EqualError(t, err, "db save failed: storage failure: tx aborted")
	f.docs.AssertExpectations(t)
}

func TestUploadService_ReplaceDiscardsOldBlobs(t *testing.T) {
	f := newUploadFixture(t)
	f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(existingDoc(), nil).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	removed := []model.Document{
		{ID: "v1", StoragePath: "documents/v1.pdf"},
		{ID: "v2", StoragePath: "documents/v2.pdf"},
	}
	f.docs.On("Replace", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
		return d.Version == 1 && d.IsLatest && d.ParentID == nil
	})).Return(&model.Document{ID: "fresh", Version: 1, IsLatest: true}, removed, nil).Once()
	f.store.On("Delete", mock.Anything, "documents/v1.pdf").Return(nil).Once()
	f.store.On("Delete", mock.Anything, "documents/v2.pdf").Return(errors.New("minio down")).Once()

	res, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{ForceReplace: true}))

	require.NoError(t, err)
	assert.Equal(t, StatusReplaced, res.Status)
	assert.Equal(t, 2, res.ReplacedVersions)
	assert.Contains(t, f.log.String(), `"msg":"orphaned_blob"`)
	assert.Contains(t, f.log.String(), "documents/v2.pdf")
	assert.Equal(t, []audit.Action{audit.DocumentReplace}, f.rec.Actions())
	f.store.AssertExpectations(t)
}

func TestUploadService_Failures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *uploadFixture)
		in         func() UploadInput
		wantErr    error
		wantErrMsg string
	}{
		{
			name:    "nil reader",
			setup:   func(f *uploadFixture) {},
			in:      func() UploadInput { in := input(validName, decision.Intent{}); in.Reader = nil; return in },
			wantErr: ErrReaderNil,
		},
		{
			name:    "blank filename",
			setup:   func(f *uploadFixture) {},
			in:      func() UploadInput { return input("  ", decision.Intent{}) },
			wantErr: ErrFilenameRequired,
		},
		{
			name: "lookup timeout",
			setup: func(f *uploadFixture) {
				f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Once()
			},
			in:      func() UploadInput { return input(validName, decision.Intent{}) },
			wantErr: ErrTimeout,
		},
		{
			name: "storage error",
			setup: func(f *uploadFixture) {
				f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail")).Once()
			},
			in:         func() UploadInput { return input(validName, decision.Intent{}) },
			wantErr:    ErrStorage,
			wantErrMsg: "upload to storage: storage failure: storage fail",
		},
		{
			name: "repository error with successful rollback",
			setup: func(f *uploadFixture) {
				f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
				f.docs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail")).Once()
				f.store.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
			},
			in:         func() UploadInput { return input(validName, decision.Intent{}) },
			wantErr:    ErrStorage,
			wantErrMsg: "db save failed: storage failure: db fail",
		},
		{
			name: "repository error with failed rollback",
			setup: func(f *uploadFixture) {
				f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
				f.docs.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail")).Once()
				f.store.On("Delete", mock.Anything, mock.Anything).Return(errors.New("delete fail")).Once()
			},
			in:         func() UploadInput { return input(validName, decision.Intent{}) },
			wantErr:    ErrStorage,
			wantErrMsg: "rollback delete failed: delete fail",
		},
		{
			name: "write timeout with row absent rolls back",
			setup: func(f *uploadFixture) {
				f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
				f.docs.On("Create", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Once()
				f.docs.On("FindByID", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
			},
			in:         func() UploadInput { return input(validName, decision.Intent{}) },
			wantErr:    ErrTimeout,
			wantErrMsg: "db save failed: operation timed out",
		},
		{
			name: "write timeout with unknown outcome keeps blob",
			setup: func(f *uploadFixture) {
				f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
				f.docs.On("Create", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Once()
				f.docs.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()
			},
			in:         func() UploadInput { return input(validName, decision.Intent{}) },
			wantErr:    ErrTimeout,
			wantErrMsg: "db save unconfirmed",
		},
		{
			name: "concurrent first upload",
			setup: func(f *uploadFixture) {
				f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
				f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
				f.docs.On("Create", mock.Anything, mock.Anything).Return(nil, repository.ErrConflict).Once()
				f.store.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()
			},
			in:      func() UploadInput { return input(validName, decision.Intent{}) },
			wantErr: ErrConcurrentModification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUploadFixture(t)
			tt.setup(f)

			res, err := f.svc.Upload(context.Background(), tt.in())

			assert.Nil(t, res)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantErrMsg != "" {
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			}
			assert.Empty(t, f.rec.Actions())
			f.docs.AssertExpectations(t)
			f.store.AssertExpectations(t)
		})
	}
}

func TestUploadService_WriteTimeoutAfterCommitKeepsBlob(t *testing.T) {
	f := newUploadFixture(t)
	f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()

	// The row commits but the acknowledgement is lost.
	var committed *model.Document
	f.docs.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		d := *args.Get(1).(*model.Document)
		committed = &d
	}).Return(nil, context.DeadlineExceeded).Once()
	f.docs.On("FindByID", mock.Anything, mock.MatchedBy(func(id string) bool {
		return committed != nil && committed.ID == id
	})).Return(&model.Document{ID: "landed", Version: 1, IsLatest: true}, nil).Once()

	res, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{}))

	require.NoError(t, err)
	assert.Equal(t, StatusCreated, res.Status)
	assert.Equal(t, "landed", res.Document.ID)
	f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Contains(t, f.log.String(), `"msg":"write_confirmed_after_timeout"`)
	assert.Equal(t, []audit.Action{audit.DocumentUpload}, f.rec.Actions())
}

func TestUploadService_ReplaceTimeoutAfterCommitFlagsOrphans(t *testing.T) {
	f := newUploadFixture(t)
	f.docs.On("FindLatestByKey", mock.Anything, mock.Anything).Return(existingDoc(), nil).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	f.docs.On("Replace", mock.Anything, mock.Anything).Return(nil, nil, context.DeadlineExceeded).Once()
	f.docs.On("FindByID", mock.Anything, mock.Anything).Return(&model.Document{ID: "fresh", Version: 1, IsLatest: true}, nil).Once()

	res, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{ForceReplace: true}))

	require.NoError(t, err)
	assert.Equal(t, StatusReplaced, res.Status)
	f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Contains(t, f.log.String(), `"reason":"replace_unacknowledged"`)
}

func TestUploadService_TypeCompanySerialKey(t *testing.T) {
	f := newUploadFixture(t)
	f.svc = NewUploadService(UploadDeps{
		Engine:    decision.NewEngine(f.docs, naming.KeyTypeCompanySerial),
		Store:     f.store,
		Documents: f.docs,
		Timeout:   time.Second,
	})
	f.docs.On("FindLatestByKey", mock.Anything, "INV|Acme|14411300001A").Return(nil, sql.ErrNoRows).Once()
	f.store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(echoPut, nil).Once()
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
		return d.IdentityKey == "INV|Acme|14411300001A"
	})).Return(&model.Document{ID: "x"}, nil).Once()

	_, err := f.svc.Upload(context.Background(), input(validName, decision.Intent{}))

	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}
