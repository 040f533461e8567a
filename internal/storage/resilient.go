package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"dmsapi/internal/resilience"
)

type resilientStorage struct {
	next Storage
	exec *resilience.Executor
}

// NewResilient decorates next with retries and a circuit breaker per
// operation. Put is retried only when the body can be rewound.
func NewResilient(next Storage, exec *resilience.Executor) Storage {
	return &resilientStorage{next: next, exec: exec}
}

// Classify is the storage error policy: missing objects and caller
// cancellation do not count against the breaker.
func Classify(err error) resilience.ErrorClassification {
	if errors.Is(err, ErrObjectNotFound) {
		return resilience.ErrorClassification{}
	}
	return resilience.TemporaryClassifier(err)
}

func noRetry(err error) resilience.ErrorClassification {
	c := Classify(err)
	c.Retryable = false
	return c
}

func (s *resilientStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	classifier := noRetry
	seeker, canRewind := r.(io.Seeker)
	var start int64
	if canRewind {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err == nil {
			start = pos
			classifier = Classify
		} else {
			canRewind = false
		}
	}

	var info ObjectInfo
	attempt := 0
	err := s.exec.Execute(ctx, "storage.put", func(ctx context.Context) error {
		attempt++
		if attempt > 1 && canRewind {
			if _, err := seeker.Seek(start, io.SeekStart); err != nil {
				return err
			}
		}
		var err error
		info, err = s.next.Put(ctx, key, r, opt)
		return err
	}, classifier)
	return info, err
}

func (s *resilientStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	var (
		rc   io.ReadCloser
		info ObjectInfo
	)
	err := s.exec.Execute(ctx, "storage.get", func(ctx context.Context) error {
		var err error
		rc, info, err = s.next.Get(ctx, key)
		return err
	}, Classify)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return rc, info, nil
}

func (s *resilientStorage) Delete(ctx context.Context, key string) error {
	return s.exec.Execute(ctx, "storage.delete", func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	}, Classify)
}

func (s *resilientStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	var u string
	err := s.exec.Execute(ctx, "storage.presign", func(ctx context.Context) error {
		var err error
		u, err = s.next.PresignGet(ctx, key, expiry)
		return err
	}, Classify)
	return u, err
}
