package library

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeName trims s and puts it in NFC so that visually identical
// usernames and titles compare equal in SQLite.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
