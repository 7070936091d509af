package opentoken

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// canonicalDateFormat is the single output form for birth dates. It is part
// of the token contract: changing it changes every token that references a
// date and requires a catalog version bump.
const canonicalDateFormat = "2006-01-02"

// dateFormats is the fixed set of accepted input date layouts, tried in
// order. First match wins.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"20060102",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	separatorRe  = regexp.MustCompile(`[\s.-]+`)
)

// normalizeDate parses a raw date against the accepted layouts and re-emits
// it in canonical form. Unparseable input is invalid, not an error.
func normalizeDate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(canonicalDateFormat), true
		}
	}
	return "", false
}

// normalizeName strips diacritics and collapses interior whitespace so that
// "José  García" and "Jose Garcia" yield the same fragments. Case is left
// alone; rules uppercase explicitly.
func normalizeName(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	s = stripDiacritics(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return s, true
}

// normalizeDigits strips separator characters (whitespace, hyphens, dots)
// from identifier-like values such as SSNs. Remaining content is left as-is
// for the expression layer to match against.
func normalizeDigits(raw string) (string, bool) {
	s := separatorRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return "", false
	}
	return s, true
}

// normalizeTrim trims surrounding whitespace and rejects blank values.
func normalizeTrim(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	return s, true
}

// stripDiacritics removes combining marks: NFD decomposition splits
// characters like 'é' into 'e' plus a combining accent, which is dropped.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
