// Package service holds the use cases behind the HTTP API. Every call to
// storage or the database runs under a deadline; a timeout is a failure.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
)

// DefaultTimeout bounds a single external call when none is configured.
const DefaultTimeout = 15 * time.Second

var tracer = otel.Tracer("dmsapi/service")

type deadline time.Duration

func (d deadline) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	t := time.Duration(d)
	if t <= 0 {
		t = DefaultTimeout
	}
	return context.WithTimeout(ctx, t)
}

// detached keeps values but survives caller cancellation; used for cleanup.
func (d deadline) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return d.bound(context.WithoutCancel(ctx))
}

// notFound maps sql.ErrNoRows onto target and classifies anything else.
func notFound(err, target error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return external(err)
}
