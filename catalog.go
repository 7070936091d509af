package opentoken

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Term binds one attribute kind to the expression that canonicalizes it.
type Term struct {
	Kind Kind
	Expr Expression
}

// TokenRule is a named recipe for one token variant: an ordered list of
// terms whose fragments are concatenated, in order, into a signature.
type TokenRule struct {
	ID    string
	Terms []Term
}

// Catalog is a versioned, immutable set of token rules. The version is
// independent of the attribute vocabulary: header renames are absorbed by
// alias resolution, never by rule changes, so historical tokens stay
// reproducible.
type Catalog struct {
	version string
	rules   map[string]TokenRule
	ids     []string
}

// DefaultCatalogVersion identifies the built-in rule set.
const DefaultCatalogVersion = "2.0"

// defaultRules is the built-in scheme as a declarative table. Order within
// each rule is significant; reordering terms changes every token.
var defaultRules = []TokenRule{
	{ID: "T1", Terms: []Term{
		{LastName, MustParseExpression(`T|U`)},
		{FirstName, MustParseExpression(`T|S(0,1)|U`)},
		{Gender, MustParseExpression(`T|U`)},
		{BirthDate, MustParseExpression(`T|D`)},
	}},
	{ID: "T2", Terms: []Term{
		{LastName, MustParseExpression(`T|U`)},
		{FirstName, MustParseExpression(`T|U`)},
		{BirthDate, MustParseExpression(`T|D`)},
		{PostalCode, MustParseExpression(`T|S(0,3)|U`)},
	}},
	{ID: "T3", Terms: []Term{
		{LastName, MustParseExpression(`T|U`)},
		{FirstName, MustParseExpression(`T|U`)},
		{Gender, MustParseExpression(`T|U`)},
		{BirthDate, MustParseExpression(`T|D`)},
	}},
	{ID: "T4", Terms: []Term{
		{SSN, MustParseExpression(`T|M(\d+)`)},
		{Gender, MustParseExpression(`T|U`)},
		{BirthDate, MustParseExpression(`T|D`)},
	}},
	{ID: "T5", Terms: []Term{
		{LastName, MustParseExpression(`T|U`)},
		{FirstName, MustParseExpression(`T|S(0,3)|U`)},
		{Gender, MustParseExpression(`T|U`)},
	}},
}

var defaultCatalog = mustNewCatalog(DefaultCatalogVersion, defaultRules)

// DefaultCatalog returns the built-in rule catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// NewCatalog builds a catalog from a rule table. Duplicate or empty rule
// ids and rules without terms are configuration errors.
func NewCatalog(version string, rules []TokenRule) (*Catalog, error) {
	if version == "" {
		return nil, newConfigError(ErrInvalidCatalog, "missing version")
	}

	byID := make(map[string]TokenRule, len(rules))
	ids := make([]string, 0, len(rules))
	for _, rule := range rules {
		if rule.ID == "" {
			return nil, newConfigError(ErrInvalidCatalog, "rule with empty id")
		}
		if len(rule.Terms) == 0 {
			return nil, newConfigError(ErrInvalidCatalog, "rule "+rule.ID+" has no terms")
		}
		if _, dup := byID[rule.ID]; dup {
			return nil, newConfigError(ErrInvalidCatalog, "duplicate rule "+rule.ID)
		}
		for _, term := range rule.Terms {
			if _, ok := specByKind[term.Kind]; !ok {
				return nil, newConfigError(ErrUnknownAttribute, string(term.Kind))
			}
		}
		byID[rule.ID] = rule
		ids = append(ids, rule.ID)
	}
	sort.Strings(ids)

	return &Catalog{version: version, rules: byID, ids: ids}, nil
}

func mustNewCatalog(version string, rules []TokenRule) *Catalog {
	c, err := NewCatalog(version, rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Version returns the catalog version string. Callers should record it
// alongside output for reproducibility audits.
func (c *Catalog) Version() string {
	return c.version
}

// RuleIDs returns all rule ids in stable sorted order.
func (c *Catalog) RuleIDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Rule looks up a rule by id. An unknown id is invalid usage, not a skip.
func (c *Catalog) Rule(id string) (TokenRule, error) {
	rule, ok := c.rules[id]
	if !ok {
		return TokenRule{}, fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}
	return rule, nil
}

// catalogDoc is the YAML shape for externally defined catalogs.
type catalogDoc struct {
	Version string `yaml:"version"`
	Rules   []struct {
		ID    string `yaml:"id"`
		Terms []struct {
			Attribute  string `yaml:"attribute"`
			Expression string `yaml:"expression"`
		} `yaml:"terms"`
	} `yaml:"rules"`
}

// LoadCatalog parses a YAML catalog definition. Unknown attribute names and
// unparseable expressions are fatal here, before any record is processed.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newConfigError(ErrInvalidCatalog, err.Error())
	}

	rules := make([]TokenRule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		terms := make([]Term, 0, len(r.Terms))
		for _, t := range r.Terms {
			kind, ok := KindByName(t.Attribute)
			if !ok {
				return nil, newConfigError(ErrUnknownAttribute, t.Attribute)
			}
			expr, err := ParseExpression(t.Expression)
			if err != nil {
				return nil, err
			}
			terms = append(terms, Term{Kind: kind, Expr: expr})
		}
		rules = append(rules, TokenRule{ID: r.ID, Terms: terms})
	}

	return NewCatalog(doc.Version, rules)
}

// Process-wide catalog registry, keyed by version.
var (
	catalogRegistry   = map[string]*Catalog{DefaultCatalogVersion: defaultCatalog}
	catalogRegistryMu sync.RWMutex
)

// RegisterCatalog makes a catalog retrievable by version for later runs.
func RegisterCatalog(c *Catalog) {
	catalogRegistryMu.Lock()
	defer catalogRegistryMu.Unlock()
	catalogRegistry[c.version] = c
}

// LookupCatalog retrieves a previously registered catalog by version.
func LookupCatalog(version string) (*Catalog, bool) {
	catalogRegistryMu.RLock()
	defer catalogRegistryMu.RUnlock()
	c, ok := catalogRegistry[version]
	return c, ok
}

// ResetCatalogs restores the registry to only the built-in catalog.
// This is primarily useful for test isolation.
func ResetCatalogs() {
	catalogRegistryMu.Lock()
	defer catalogRegistryMu.Unlock()
	catalogRegistry = map[string]*Catalog{DefaultCatalogVersion: defaultCatalog}
}
