package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dmsapi/internal/naming"
	"dmsapi/internal/suggest"
)

// RenameSuggestion is an advisory name for a file, checked against the
// naming convention.
type RenameSuggestion struct {
	Original string `json:"original"`
	// Suggestion.Suggested carries the original file's extension.
	suggest.Suggestion
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type RenameService interface {
	Suggest(ctx context.Context, filename string) (*RenameSuggestion, error)
}

type renameService struct {
	suggester suggest.Suggester
	timeout   deadline
}

// NewRenameService wraps s; a nil suggester disables suggestions.
func NewRenameService(s suggest.Suggester, timeout time.Duration) RenameService {
	return &renameService{suggester: s, timeout: deadline(timeout)}
}

func (s *renameService) Suggest(ctx context.Context, filename string) (*RenameSuggestion, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, ErrFilenameRequired
	}
	if s.suggester == nil {
		return nil, ErrSuggestionsDisabled
	}

	ctx, cancel := s.timeout.bound(ctx)
	defer cancel()
	sg, err := s.suggester.Suggest(ctx, naming.StripExtension(filename))
	if err != nil {
		return nil, fmt.Errorf("rename suggestion: %w", external(err))
	}

	stem := naming.StripExtension(sg.Suggested)
	sg.Suggested = stem + naming.Extension(filename)
	out := &RenameSuggestion{Original: filename, Suggestion: sg, Valid: true}
	if _, err := naming.Parse(stem); err != nil {
		out.Valid = false
		out.Error = err.Error()
	}
	return out, nil
}
