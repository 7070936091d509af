package opentoken

import (
	"sort"
	"strings"
)

// Kind identifies a category of personal data with its own aliasing,
// validation, and normalization rules. The set of kinds is closed: every
// kind the engine understands is declared in the attributes table below,
// and dispatch is by tag rather than by polymorphic call.
type Kind string

const (
	RecordID   Kind = "RecordId"
	FirstName  Kind = "FirstName"
	LastName   Kind = "LastName"
	Gender     Kind = "Gender"
	BirthDate  Kind = "BirthDate"
	PostalCode Kind = "PostalCode"
	SSN        Kind = "SocialSecurityNumber"
)

// placeholderNames are junk values that must never contribute to a token.
var placeholderNames = []string{
	"unknown", "n/a", "none", "test", "sample", "anonymous", "patient", "donor",
}

// invalidSSNs are well-known junk social security numbers, in both dashed
// and plain form.
var invalidSSNs = []string{
	"000-00-0000", "000000000",
	"111-11-1111", "111111111",
	"222-22-2222", "222222222",
	"333-33-3333", "333333333",
	"444-44-4444", "444444444",
	"555-55-5555", "555555555",
	"666-66-6666", "666666666",
	"777-77-7777", "777777777",
	"888-88-8888", "888888888",
	"999-99-9999", "999999999",
	"123-45-6789", "123456789",
	"987-65-4321", "987654321",
}

// attributeSpec is one entry in the closed attribute table: canonical name,
// accepted input aliases, ordered validators, and a normalizer.
type attributeSpec struct {
	kind       Kind
	aliases    []string
	validators []Validator
	normalize  func(string) (string, bool)
}

// attributes is the full registry, defined once at process start and
// immutable for the process lifetime.
var attributes = []attributeSpec{
	{
		kind:       RecordID,
		aliases:    []string{"RecordId", "Id"},
		validators: []Validator{NotIn()},
		normalize:  normalizeTrim,
	},
	{
		kind:       FirstName,
		aliases:    []string{"FirstName", "GivenName"},
		validators: []Validator{NotIn(placeholderNames...)},
		normalize:  normalizeName,
	},
	{
		kind:       LastName,
		aliases:    []string{"LastName", "Surname", "FamilyName"},
		validators: []Validator{NotIn(placeholderNames...)},
		normalize:  normalizeName,
	},
	{
		kind:       Gender,
		aliases:    []string{"Gender", "Sex"},
		validators: []Validator{NotIn()},
		normalize:  normalizeTrim,
	},
	{
		kind:       BirthDate,
		aliases:    []string{"BirthDate", "DateOfBirth", "DOB"},
		validators: []Validator{NotIn()},
		normalize:  normalizeDate,
	},
	{
		kind:       PostalCode,
		aliases:    []string{"PostalCode", "ZipCode", "Zip"},
		validators: []Validator{NotIn()},
		normalize:  normalizeTrim,
	},
	{
		kind:       SSN,
		aliases:    []string{"SocialSecurityNumber", "SSN", "NationalIdentificationNumber"},
		validators: []Validator{Pattern(`\d{3}-?\d{2}-?\d{4}`), NotIn(invalidSSNs...)},
		normalize:  normalizeDigits,
	},
}

// specByKind and kindByAlias are derived lookup tables, built once. They
// are ordinary var initializers (not init funcs) so that package-level
// consumers such as the default catalog can depend on them.
var specByKind = func() map[Kind]*attributeSpec {
	m := make(map[Kind]*attributeSpec, len(attributes))
	for i := range attributes {
		m[attributes[i].kind] = &attributes[i]
	}
	return m
}()

var kindByAlias = func() map[string]Kind {
	m := make(map[string]Kind)
	for i := range attributes {
		for _, alias := range attributes[i].aliases {
			m[strings.ToLower(alias)] = attributes[i].kind
		}
	}
	return m
}()

// Resolve maps an input column header to an attribute kind by
// case-insensitive exact match against the declared alias sets. Unmatched
// headers are not an error; callers ignore those columns.
func Resolve(header string) (Kind, bool) {
	kind, ok := kindByAlias[strings.ToLower(strings.TrimSpace(header))]
	return kind, ok
}

// Validate runs every validator declared for the kind; all must pass.
// Unknown kinds never validate.
func Validate(kind Kind, raw string) bool {
	spec, ok := specByKind[kind]
	if !ok {
		return false
	}
	for _, v := range spec.validators {
		if !v.Valid(raw) {
			return false
		}
	}
	return true
}

// Normalize converts a raw value to the kind's canonical form. A false
// return marks the attribute invalid for this record; it is a normal,
// expected outcome rather than an error.
func Normalize(kind Kind, raw string) (string, bool) {
	spec, ok := specByKind[kind]
	if !ok {
		return "", false
	}
	return spec.normalize(raw)
}

// KindByName maps a canonical attribute name (as used in catalog
// definitions) to its kind.
func KindByName(name string) (Kind, bool) {
	_, ok := specByKind[Kind(name)]
	if !ok {
		return "", false
	}
	return Kind(name), ok
}

// Kinds returns all registered attribute kinds in stable sorted order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(attributes))
	for _, spec := range attributes {
		kinds = append(kinds, spec.kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Aliases returns the accepted input aliases for a kind.
func Aliases(kind Kind) []string {
	spec, ok := specByKind[kind]
	if !ok {
		return nil
	}
	out := make([]string, len(spec.aliases))
	copy(out, spec.aliases)
	return out
}
