package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fold normalizes an identifier for case-insensitive matching.
// Identifiers are NFC-normalized before lower-casing so that
// differently-composed Unicode spellings of the same name compare equal.
func Fold(ident string) string {
	return strings.ToLower(norm.NFC.String(ident))
}
