package opentoken

import (
	"regexp"
	"strings"
)

// Validator is a pure predicate on a raw attribute value. Validators are
// constructed once per attribute kind and are stateless, so they may be
// shared freely across records and goroutines.
type Validator interface {
	Valid(value string) bool
}

// notInValidator rejects blank values and values in a disallowed set.
type notInValidator struct {
	disallowed map[string]struct{}
}

// NotIn returns a validator that rejects blank values and any value in the
// given set, compared case-insensitively after trimming. An empty set
// accepts every non-blank value.
func NotIn(values ...string) Validator {
	disallowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		disallowed[strings.ToUpper(strings.TrimSpace(v))] = struct{}{}
	}
	return &notInValidator{disallowed: disallowed}
}

func (v *notInValidator) Valid(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	_, bad := v.disallowed[strings.ToUpper(trimmed)]
	return !bad
}

// patternValidator rejects values that do not fully match a pattern.
type patternValidator struct {
	re *regexp.Regexp
}

// Pattern returns a validator that accepts only values fully matching the
// given regular expression after trimming. The pattern must compile; it is
// part of the static attribute table, so a bad pattern is a programming
// error.
func Pattern(expr string) Validator {
	return &patternValidator{re: regexp.MustCompile(`^(?:` + expr + `)$`)}
}

func (v *patternValidator) Valid(value string) bool {
	return v.re.MatchString(strings.TrimSpace(value))
}
