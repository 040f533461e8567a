package model

import "time"

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#6b7280"

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}
