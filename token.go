package opentoken

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// signatureSeparator joins fragments so that adjacent fragments cannot run
// together ambiguously. It is part of the token contract and versioned with
// the catalog.
const signatureSeparator = "|"

// Generator computes base tokens for (record, rule) pairs against one
// catalog. It is stateless apart from the read-only catalog and safe for
// concurrent use.
type Generator struct {
	catalog *Catalog
}

// NewGenerator returns a generator bound to a catalog.
func NewGenerator(catalog *Catalog) *Generator {
	return &Generator{catalog: catalog}
}

// Catalog returns the generator's catalog.
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Signature builds the canonical signature for a record under a rule: each
// term's attribute is validated, normalized, and evaluated, and the
// fragments are joined in declared order. A false return means some term
// could not produce a fragment; the rule is skipped for this record.
func (g *Generator) Signature(record PersonRecord, rule TokenRule) (string, bool) {
	fragments := make([]string, 0, len(rule.Terms))
	for _, term := range rule.Terms {
		raw, present := record.Attributes[term.Kind]
		if !present {
			return "", false
		}
		if !Validate(term.Kind, raw) {
			return "", false
		}
		normalized, ok := Normalize(term.Kind, raw)
		if !ok {
			return "", false
		}
		fragment, ok := term.Expr.Evaluate(normalized)
		if !ok {
			return "", false
		}
		fragments = append(fragments, fragment)
	}
	return strings.Join(fragments, signatureSeparator), true
}

// Generate computes the base token for a record under the named rule.
// The token is a pure function of (catalog version, rule, normalized
// attribute values): base64 of the SHA-256 digest of the signature's UTF-8
// bytes, with no randomness.
//
// ok=false reports an expected skip (absent, invalid, or unevaluable
// attribute). An error is returned only for invalid usage: a rule id not in
// the catalog.
func (g *Generator) Generate(record PersonRecord, ruleID string) (token string, ok bool, err error) {
	rule, err := g.catalog.Rule(ruleID)
	if err != nil {
		return "", false, err
	}
	signature, ok := g.Signature(record, rule)
	if !ok {
		return "", false, nil
	}
	return digestToken(signature), true, nil
}

// digestToken is the one-way signature-to-token step. The digest choice is
// fixed and versioned with the catalog; changing it breaks reproducibility.
func digestToken(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return base64.StdEncoding.EncodeToString(sum[:])
}
