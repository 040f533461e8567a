// Package decision turns an upload request into exactly one outcome:
// reject, quarantine, create a first version, create a successor version or
// replace an existing chain. Decide is pure; Engine adds the store lookup.
package decision

import (
	"errors"

	"dmsapi/internal/model"
	"dmsapi/internal/naming"
)

// Kind is the outcome of an upload decision.
type Kind string

const (
	RejectInvalid   Kind = "reject_invalid"
	Quarantine      Kind = "quarantine"
	RejectDuplicate Kind = "reject_duplicate"
	CreateNew       Kind = "create_new"
	CreateVersion   Kind = "create_version"
	// ReplaceExisting discards the whole chain for the key and starts over at v1.
	ReplaceExisting Kind = "replace_existing"
)

// Writes reports whether the outcome persists a document record.
func (k Kind) Writes() bool {
	return k == CreateNew || k == CreateVersion || k == ReplaceExisting
}

// Intent carries the caller's explicit opt-ins.
type Intent struct {
	ForceReplace    bool
	CreateVersion   bool
	AllowQuarantine bool
}

// Decision is the result of evaluating one upload.
type Decision struct {
	Kind        Kind
	Filename    string
	Parsed      naming.ParsedName
	IdentityKey string
	// Existing is the current latest record for IdentityKey, if any.
	Existing *model.Document
	// ParseErr is set for RejectInvalid and Quarantine.
	ParseErr *naming.ParseError
}

// Decide applies the upload state machine. parseErr is the result of
// naming.Parse; existing is the latest record for key or nil.
func Decide(filename string, parsed naming.ParsedName, parseErr error, key string, existing *model.Document, intent Intent) Decision {
	d := Decision{Filename: filename}

	if parseErr != nil {
		var pe *naming.ParseError
		if !errors.As(parseErr, &pe) {
			pe = &naming.ParseError{Kind: naming.FormatError, Filename: filename, Message: parseErr.Error()}
		}
		d.ParseErr = pe
		d.Kind = RejectInvalid
		if intent.AllowQuarantine {
			d.Kind = Quarantine
		}
		return d
	}

	d.Parsed = parsed
	d.IdentityKey = key
	d.Existing = existing

	switch {
	case existing == nil:
		d.Kind = CreateNew
	case intent.CreateVersion:
		// createVersion wins when both flags are set.
		d.Kind = CreateVersion
	case intent.ForceReplace:
		d.Kind = ReplaceExisting
	default:
		d.Kind = RejectDuplicate
	}
	return d
}
