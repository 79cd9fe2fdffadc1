package store

import "errors"

// Error Handling Guidelines:
// - Stores: return these sentinels, wrapped with fmt.Errorf("context: %w", err)
// - Services: translate sentinels into apperrors.* taxonomy errors

// Predefined errors for the store layer.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicate indicates a uniqueness violation, e.g. a second active
	// collaborator entry for the same user.
	ErrDuplicate = errors.New("duplicate resource")

	// ErrAlreadyResolved indicates a guarded status transition found the
	// record no longer pending. The caller must not re-apply.
	ErrAlreadyResolved = errors.New("record already resolved")

	// ErrConflict indicates a concurrent-write conflict.
	ErrConflict = errors.New("conflict")
)
