package board

import (
	"fmt"
	"regexp"
	"unicode"

	appErr "scramble-service/pkg/errors"
)

// Card is an immutable card value. Two cards are interchangeable iff their
// labels are equal.
type Card struct {
	Label string
}

func (c Card) String() string {
	return c.Label
}

// Pos identifies one cell on the grid, 0-indexed from the top-left.
type Pos struct {
	Row int
	Col int
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

var playerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidPlayerID reports whether id is a legal player identity: a non-empty
// string of alphanumeric or underscore characters.
func ValidPlayerID(id string) bool {
	return playerIDPattern.MatchString(id)
}

// ValidLabel reports whether s is a legal card label: non-empty with no
// whitespace or control characters.
func ValidLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func checkLabel(s string) error {
	if !ValidLabel(s) {
		return fmt.Errorf("%w: %q", appErr.ErrInvalidLabel, s)
	}
	return nil
}
