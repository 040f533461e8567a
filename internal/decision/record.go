package decision

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"dmsapi/internal/model"
)

var ErrNoRecord = errors.New("decision does not produce a record")

// Chain consistency violations.
var (
	ErrNoLatest         = errors.New("chain has no latest version")
	ErrMultipleLatest   = errors.New("chain has more than one latest version")
	ErrLatestNotHead    = errors.New("latest version is not the highest version")
	ErrDuplicateVersion = errors.New("chain repeats a version number")
)

// Blob describes the stored object backing a new record.
type Blob struct {
	ID          string
	Filename    string
	StoragePath string
	Size        int64
	ContentType string
	UploadedBy  string
}

// Record builds the document row a writing decision must persist.
// CreateNew and ReplaceExisting start a chain at v1; CreateVersion
// succeeds Existing.
func (d Decision) Record(b Blob, now time.Time) (model.Document, error) {
	if !d.Kind.Writes() {
		return model.Document{}, fmt.Errorf("%w: %s", ErrNoRecord, d.Kind)
	}
	doc := model.Document{
		ID:          b.ID,
		Filename:    b.Filename,
		StoragePath: b.StoragePath,
		Size:        b.Size,
		ContentType: b.ContentType,
		Prefix:      d.Parsed.Prefix,
		DocType:     d.Parsed.Type,
		CompanyName: d.Parsed.Company,
		DocSerial:   d.Parsed.Serial,
		RawDate:     d.Parsed.RawDate,
		DocDate:     model.NewDate(d.Parsed.Date),
		IdentityKey: d.IdentityKey,
		Version:     1,
		IsLatest:    true,
		UploadedBy:  b.UploadedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d.Kind == CreateVersion {
		if d.Existing == nil {
			return model.Document{}, fmt.Errorf("create version without existing record for %q", d.IdentityKey)
		}
		parent := d.Existing.ID
		doc.Version = d.Existing.Version + 1
		doc.ParentID = &parent
	}
	return doc, nil
}

// CheckChain verifies the versions of one identity key: version numbers are
// unique and exactly one record, the highest version, is latest. Gaps are
// allowed since individual versions can be deleted.
func CheckChain(chain []model.Document) error {
	if len(chain) == 0 {
		return nil
	}
	sorted := make([]model.Document, len(chain))
	copy(sorted, chain)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	latest := 0
	for i, doc := range sorted {
		if doc.IsLatest {
			latest++
		}
		if i > 0 && doc.Version == sorted[i-1].Version {
			return fmt.Errorf("%w: v%d", ErrDuplicateVersion, doc.Version)
		}
	}
	switch {
	case latest == 0:
		return ErrNoLatest
	case latest > 1:
		return ErrMultipleLatest
	case !sorted[len(sorted)-1].IsLatest:
		return ErrLatestNotHead
	}
	return nil
}
