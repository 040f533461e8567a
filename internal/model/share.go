package model

import "time"

// SharedLink grants time-limited access to one document through an opaque token.
type SharedLink struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	Token      string     `json:"token"`
	CreatedBy  string     `json:"created_by,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	MaxViews   *int       `json:"max_views,omitempty"`
	ViewCount  int        `json:"view_count"`
	PINHash    string     `json:"-"`
	HasPIN     bool       `json:"has_pin"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the link is past its expiry at now.
func (s SharedLink) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Exhausted reports whether the view budget is spent.
func (s SharedLink) Exhausted() bool {
	return s.MaxViews != nil && s.ViewCount >= *s.MaxViews
}
