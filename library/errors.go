package library

import "errors"

// Domain errors. Call sites wrap them with context; test with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrNoOperationsToUndo = errors.New("no operations to undo")
	ErrNoOperationsToRedo = errors.New("no operations to redo")
)
