package errs

import (
	"errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrDuplicate           = errors.New("already exists")
	ErrCopyUnavailable     = errors.New("copy is not available")
	ErrCopyRetired         = errors.New("copy is retired")
	ErrAlreadyReturned     = errors.New("loan already returned")
	ErrNothingToUndo       = errors.New("nothing to undo")
	ErrUndoStale           = errors.New("undo entry no longer applies")
	ErrConcurrencyConflict = errors.New("concurrent modification, try again")
)
