// Package repository contains data access abstractions. Implementations live in
// subpackages (postgres) and contain no business logic.
//
// Lookups of a missing row return sql.ErrNoRows; callers map it.
package repository

import "errors"

// ErrConflict reports a write that lost a race against a concurrent writer or
// collided with a uniqueness constraint.
var ErrConflict = errors.New("conflicting write")

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
