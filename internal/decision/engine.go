package decision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dmsapi/internal/model"
	"dmsapi/internal/naming"
)

// LatestLookup finds the current latest record for an identity key.
// Implementations return sql.ErrNoRows, or a nil document, when none exists.
type LatestLookup interface {
	FindLatestByKey(ctx context.Context, key string) (*model.Document, error)
}

// Engine evaluates uploads against the metadata store.
type Engine struct {
	lookup LatestLookup
	keys   naming.KeyStrategy
}

func NewEngine(lookup LatestLookup, keys naming.KeyStrategy) *Engine {
	if keys == "" {
		keys = naming.KeySerial
	}
	return &Engine{lookup: lookup, keys: keys}
}

// KeyStrategy returns the identity key strategy in use.
func (e *Engine) KeyStrategy() naming.KeyStrategy { return e.keys }

// Evaluate parses filename, looks up the latest record for its identity key
// and decides. Lookup is skipped for unparseable names. A lookup error is
// returned as-is so the caller never mistakes an unknown state for "absent".
func (e *Engine) Evaluate(ctx context.Context, filename string, intent Intent) (Decision, error) {
	parsed, err := naming.Parse(filename)
	if err != nil {
		return Decide(filename, naming.ParsedName{}, err, "", nil, intent), nil
	}

	key := e.keys.IdentityKey(parsed)
	existing, err := e.lookup.FindLatestByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Decision{}, fmt.Errorf("lookup latest for %q: %w", key, err)
		}
		existing = nil
	}
	return Decide(filename, parsed, nil, key, existing, intent), nil
}
