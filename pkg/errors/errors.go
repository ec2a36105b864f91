package errors

import "errors"

// Board operation errors. Transport layers match these with errors.Is to
// pick a status code: out-of-range and malformed input are client errors,
// illegal moves are conflicts, a corrupted board is a server error.
var (
	ErrOutOfBounds   = errors.New("position out of bounds")
	ErrEmptyCell     = errors.New("no card at this position")
	ErrSameCell      = errors.New("second flip must target a different cell")
	ErrInvalidPlayer = errors.New("invalid player id")
	ErrInvalidLabel  = errors.New("invalid card label")

	// ErrBoardCorrupt is returned by every operation once an internal
	// consistency check has failed. The board refuses further mutation.
	ErrBoardCorrupt = errors.New("board state corrupted")
)
