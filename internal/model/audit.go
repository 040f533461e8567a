package model

import "time"

// AuditLog is a persisted audit trail entry.
type AuditLog struct {
	ID           string         `json:"id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	UserEmail    string         `json:"user_email,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditFilter narrows an audit log listing.
type AuditFilter struct {
	Action       string
	ResourceType string
	ResourceID   string
	UserID       string
	Limit        int
	Offset       int
}
