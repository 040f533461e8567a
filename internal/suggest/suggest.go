// Package suggest proposes convention-compliant names for badly named files.
// Suggestions are advisory only.
package suggest

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("rename suggestions are disabled")

// Breakdown lists the components the suggester inferred.
type Breakdown struct {
	Type    string `json:"type"`
	Company string `json:"company"`
	Serial  string `json:"serial"`
	Date    string `json:"date"`
}

// Suggestion is a proposed filename with the model's confidence.
type Suggestion struct {
	Suggested  string    `json:"suggested"`
	Confidence float64   `json:"confidence"`
	Breakdown  Breakdown `json:"breakdown"`
	Reasoning  string    `json:"reasoning"`
}

type Suggester interface {
	Suggest(ctx context.Context, filename string) (Suggestion, error)
}
