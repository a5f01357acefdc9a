// Package textutil normalizes feed text for display.
package textutil

import (
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// DescriptionLimit is the maximum description length in runes.
const DescriptionLimit = 180

// Clean strips HTML tags, decodes entities, collapses whitespace runs to a
// single space and trims the result. Tags are treated as word boundaries.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; keep whatever text was recovered.
			return collapse(norm.NFC.String(b.String()))
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}

// collapse joins whitespace-separated fields with single spaces.
// strings.Fields treats U+00A0 as space, so decoded &nbsp; collapses too.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Description cleans s and truncates it to DescriptionLimit runes.
func Description(s string) string {
	return Truncate(Clean(s), DescriptionLimit)
}

// ISODate renders t as a calendar date in UTC, or "" when t is nil.
func ISODate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
