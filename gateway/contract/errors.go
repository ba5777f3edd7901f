package contract

import "errors"

var (
	ErrBackend    = errors.New("completion backend failed")
	ErrStore      = errors.New("document store failed")
	ErrValidation = errors.New("validation failed")
	ErrEmptyReply = errors.New("backend returned empty reply")
)
