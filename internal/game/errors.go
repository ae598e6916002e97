package game

import "errors"

// Rejection categories. Engine errors wrap exactly one of these so callers
// can classify them with errors.Is.
var (
	ErrWrongPhase    = errors.New("wrong phase")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrSeating       = errors.New("seating")
	ErrIllegalMove   = errors.New("illegal move")
	ErrBusy          = errors.New("trick settlement in progress")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvariant     = errors.New("invariant violation")
)
