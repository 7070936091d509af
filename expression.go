package opentoken

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operation codes for the expression notation.
const (
	opTrim      = 'T'
	opUpper     = 'U'
	opSubstring = 'S'
	opDate      = 'D'
	opMatch     = 'M'
)

// operation is one step of an expression pipeline. Exactly one of the
// argument fields is meaningful, selected by code.
type operation struct {
	code    byte
	start   int            // opSubstring
	length  int            // opSubstring
	pattern *regexp.Regexp // opMatch
}

// Expression is a canonicalization recipe: an ordered pipeline of string
// operations applied left to right, each consuming the previous operation's
// output. Expressions are immutable once parsed.
type Expression struct {
	src string
	ops []operation
}

// ParseExpression parses the pipe-separated rule notation, e.g. "T|S(0,1)|U".
// An unknown operation code or malformed argument list is a configuration
// error, surfaced at catalog-load time rather than per record.
func ParseExpression(src string) (Expression, error) {
	parts := splitOps(src)
	if len(parts) == 0 {
		return Expression{}, newConfigError(ErrUnknownOperation, "empty expression")
	}

	ops := make([]operation, 0, len(parts))
	for _, part := range parts {
		op, err := parseOp(part)
		if err != nil {
			return Expression{}, err
		}
		ops = append(ops, op)
	}

	return Expression{src: src, ops: ops}, nil
}

// MustParseExpression is ParseExpression for the static rule tables, where
// a parse failure is a programming error.
func MustParseExpression(src string) Expression {
	expr, err := ParseExpression(src)
	if err != nil {
		panic(err)
	}
	return expr
}

// splitOps splits on top-level pipes only, so patterns containing '|'
// inside M(...) survive intact.
func splitOps(src string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				parts = append(parts, src[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, src[start:])

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseOp parses a single operation token.
func parseOp(token string) (operation, error) {
	code := token[0]
	args := ""
	if len(token) > 1 {
		if token[1] != '(' || token[len(token)-1] != ')' {
			return operation{}, newConfigError(ErrUnknownOperation, token)
		}
		args = token[2 : len(token)-1]
	}

	switch code {
	case opTrim, opUpper, opDate:
		if args != "" {
			return operation{}, newConfigError(ErrUnknownOperation, token)
		}
		return operation{code: code}, nil

	case opSubstring:
		fields := strings.Split(args, ",")
		if len(fields) != 2 {
			return operation{}, newConfigError(ErrUnknownOperation, token)
		}
		start, err1 := strconv.Atoi(strings.TrimSpace(fields[0]))
		length, err2 := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err1 != nil || err2 != nil || start < 0 || length < 0 {
			return operation{}, newConfigError(ErrUnknownOperation, token)
		}
		return operation{code: code, start: start, length: length}, nil

	case opMatch:
		if args == "" {
			return operation{}, newConfigError(ErrUnknownOperation, token)
		}
		re, err := regexp.Compile(`^(?:` + args + `)$`)
		if err != nil {
			return operation{}, newConfigError(ErrUnknownOperation, fmt.Sprintf("%s: %v", token, err))
		}
		return operation{code: code, pattern: re}, nil

	default:
		return operation{}, newConfigError(ErrUnknownOperation, token)
	}
}

// Evaluate runs the pipeline against a raw value and returns the canonical
// fragment. A false return means the value cannot produce a fragment under
// this expression; that marks the enclosing rule invalid for the record and
// is a normal outcome, never an error.
func (e Expression) Evaluate(raw string) (string, bool) {
	value := raw
	for _, op := range e.ops {
		switch op.code {
		case opTrim:
			value = strings.TrimSpace(value)

		case opUpper:
			value = strings.ToUpper(value)

		case opSubstring:
			// Tolerant truncation: a value shorter than the requested
			// window yields a shorter (possibly empty) fragment.
			runes := []rune(value)
			if op.start >= len(runes) {
				value = ""
				break
			}
			end := op.start + op.length
			if end > len(runes) {
				end = len(runes)
			}
			value = string(runes[op.start:end])

		case opDate:
			canonical, ok := normalizeDate(value)
			if !ok {
				return "", false
			}
			value = canonical

		case opMatch:
			if !op.pattern.MatchString(value) {
				return "", false
			}
		}
	}
	return value, true
}

// String returns the expression in its source notation.
func (e Expression) String() string {
	return e.src
}
