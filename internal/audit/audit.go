// Package audit records who did what to which resource. Recording is
// best-effort: sink failures are logged and never reach the caller.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"dmsapi/internal/model"
)

type Action string

const (
	DocumentUpload   Action = "document.upload"
	DocumentVersion  Action = "document.version"
	DocumentReplace  Action = "document.replace"
	DocumentDelete   Action = "document.delete"
	DocumentDownload Action = "document.download"
	DocumentsExport  Action = "documents.export"

	QuarantineUpload  Action = "quarantine.upload"
	QuarantineRecover Action = "quarantine.recover"
	QuarantineDelete  Action = "quarantine.delete"

	ShareCreate Action = "share.create"
	ShareAccess Action = "share.access"
	ShareRevoke Action = "share.revoke"

	TagAdd    Action = "tag.add"
	TagRemove Action = "tag.remove"
)

// Resource types.
const (
	ResourceDocument   = "document"
	ResourceQuarantine = "quarantine"
	ResourceShare      = "share"
	ResourceTag        = "tag"
	ResourceExport     = "export"
)

// Entry is one auditable event.
type Entry struct {
	Action       Action
	ResourceType string
	ResourceID   string
	Actor        model.Actor
	Details      map[string]any
}

// Recorder accepts audit entries. Record never fails.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Sink persists or forwards a single audit log.
type Sink interface {
	Name() string
	Write(ctx context.Context, log model.AuditLog) error
}

// Logger fans entries out to its sinks, each bounded by timeout. A Logger
// built with NewAsyncLogger hands entries to a background worker and never
// blocks the caller; NewLogger writes inline.
type Logger struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	queue  chan queued
	closed bool
	done   chan struct{}
}

type queued struct {
	ctx context.Context
	log model.AuditLog
}

func NewLogger(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Logger{sinks: sinks, timeout: timeout, logger: logger, now: time.Now}
}

// NewAsyncLogger starts a worker draining up to size pending entries.
// Entries arriving while the queue is full are dropped and logged.
// Close flushes the queue.
func NewAsyncLogger(logger *slog.Logger, timeout time.Duration, size int, sinks ...Sink) *Logger {
	l := NewLogger(logger, timeout, sinks...)
	if size <= 0 {
		size = 1024
	}
	l.queue = make(chan queued, size)
	l.done = make(chan struct{})
	go l.run()
	return l
}

func (l *Logger) run() {
	defer close(l.done)
	for q := range l.queue {
		l.write(q.ctx, q.log)
	}
}

// Record writes e to every sink. The caller's cancellation is ignored so an
// aborted request still leaves its trail, but each sink gets its own deadline.
func (l *Logger) Record(ctx context.Context, e Entry) {
	entry := model.AuditLog{
		ID:           uuid.NewString(),
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		UserID:       e.Actor.UserID,
		UserEmail:    e.Actor.Email,
		Details:      e.Details,
		IPAddress:    e.Actor.IP,
		CreatedAt:    l.now().UTC(),
	}
	base := context.WithoutCancel(ctx)
	if l.queue == nil {
		l.write(base, entry)
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped(entry, "closed")
		return
	}
	select {
	case l.queue <- queued{ctx: base, log: entry}:
	default:
		l.dropped(entry, "queue_full")
	}
}

func (l *Logger) write(ctx context.Context, entry model.AuditLog) {
	for _, s := range l.sinks {
		sctx, cancel := context.WithTimeout(ctx, l.timeout)
		err := s.Write(sctx, entry)
		cancel()
		if err != nil {
			l.logger.Warn("audit_record_failed",
				"component", "audit",
				"sink", s.Name(),
				"action", entry.Action,
				"resource_id", entry.ResourceID,
				"error", err.Error(),
			)
		}
	}
}

func (l *Logger) dropped(entry model.AuditLog, reason string) {
	l.logger.Error("audit_dropped",
		"component", "audit",
		"reason", reason,
		"action", entry.Action,
		"resource_type", entry.ResourceType,
		"resource_id", entry.ResourceID,
		"user_id", entry.UserID,
	)
}

// Close stops accepting entries and waits for queued ones to reach the
// sinks, or for ctx to end. It is a no-op for an inline Logger.
func (l *Logger) Close(ctx context.Context) error {
	if l.queue == nil {
		return nil
	}
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
