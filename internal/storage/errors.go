package storage

import "errors"

var (
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("storage: not found")
	// ErrVersionConflict is returned by conditional saves when the stored
	// account changed since it was read.
	ErrVersionConflict = errors.New("storage: version conflict")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("storage: duplicate key")
	// ErrScale is returned for money values with more decimal places than
	// models.MoneyScale, which the store would otherwise round.
	ErrScale = errors.New("storage: too many decimal places")
)
