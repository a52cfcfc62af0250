package parser

import (
	"fmt"

	"github.com/safequery/safequery/internal/sqlast"
)

// SyntaxError reports malformed SQL with the position of the offending
// token and what the grammar expected there.
type SyntaxError struct {
	Pos      sqlast.Pos
	Expected string
	Found    string
	Reason   string // set instead of Expected/Found for limit violations
}

func (e *SyntaxError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Reason)
	}
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}
