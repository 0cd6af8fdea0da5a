package model

import "errors"

// Domain errors. Services return these (possibly wrapped); transports map
// them to status codes.
var (
	ErrNotFound     = errors.New("record not found")
	ErrForbidden    = errors.New("caller is not allowed to act on this record")
	ErrInvalidState = errors.New("slot or request is not in a state that permits this action")
	ErrConflict     = errors.New("operation conflicts with an active negotiation")
)
