package model

import "time"

// Document is one version of a logical document. Versions sharing an
// IdentityKey form a chain linked through ParentID; exactly one of them
// has IsLatest set.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"file_size"`
	ContentType string    `json:"file_type"`
	Prefix      string    `json:"doc_prefix"`
	DocType     string    `json:"doc_type"`
	CompanyName string    `json:"company_name"`
	DocSerial   string    `json:"doc_serial"`
	RawDate     string    `json:"doc_date_raw"`
	DocDate     Date      `json:"doc_date"`
	IdentityKey string    `json:"identity_key"`
	Version     int       `json:"version"`
	ParentID    *string   `json:"parent_id"`
	IsLatest    bool      `json:"is_latest"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Tags []Tag `json:"tags,omitempty"`
}

// DocumentFilter narrows a document listing. Zero values mean "no constraint".
type DocumentFilter struct {
	Types      []string
	Companies  []string
	Search     string
	DateFrom   *Date
	DateTo     *Date
	TagIDs     []string
	LatestOnly bool
	SortBy     string
	SortDesc   bool
	Limit      int
	Offset     int
}

// TypeFacet is a distinct document type with its display information.
type TypeFacet struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Facets summarizes the values available for filtering.
type Facets struct {
	Types     []TypeFacet `json:"types"`
	Companies []string    `json:"companies"`
	Total     int         `json:"total"`
}
