// Package opentoken converts identifying person attributes into irreversible,
// linkable tokens so records held by different parties can be matched without
// exchanging raw personal data.
//
// The same logical person, represented with superficial input differences
// (header naming, casing, partial values), always yields the same token under
// the same secret key. Matching is exact: two records produce the same token
// iff every attribute a rule references normalizes to the same fragment.
//
// # Pipeline
//
// A raw record flows through five stages:
//
//   - Attribute registry: resolves input headers to attribute kinds,
//     validates raw values, and normalizes them to canonical form.
//   - Expression evaluator: applies an ordered pipeline of string operations
//     (trim, uppercase, substring, date canonicalization, regex match) to one
//     normalized value, producing a canonical fragment.
//   - Token rule catalog: a versioned, named set of rules; each rule is an
//     ordered list of (attribute, expression) terms.
//   - Token generator: concatenates a rule's fragments into a signature and
//     digests it with SHA-256 into a base token.
//   - Transformer chain: keyed transformers (HMAC hash, AES encrypt) applied
//     in order to the base token before it leaves the process.
//
// # Rule Notation
//
// Expressions use a compact pipe-separated notation:
//
//	T         trim whitespace
//	U         uppercase (ASCII-safe, locale-invariant)
//	S(i,n)    substring of n runes starting at i; tolerant of short input
//	D         canonicalize a date to 2006-01-02
//	M(re)     value must fully match the pattern
//
// The built-in catalog (version "2.0") defines rules T1..T5 over last name,
// first name, gender, birth date, postal code, and SSN. For example T1 is:
//
//	LastName T|U, FirstName T|S(0,1)|U, Gender T|U, BirthDate T|D
//
// # Basic Usage
//
//	hash, _ := opentoken.NewHashTransformer(os.Getenv("HASH_KEY"))
//	enc, _ := opentoken.NewEncryptTransformer(os.Getenv("ENCRYPT_KEY"))
//	proc := opentoken.NewProcessor(opentoken.DefaultCatalog(), opentoken.Chain{hash, enc})
//
//	err := proc.Process(ctx, source, sink)
//
// Sources and sinks are collaborator interfaces; the csv and msgpack
// subpackages provide file-format implementations.
//
// # Failure Model
//
// A missing, invalid, or unevaluable attribute skips that (record, rule)
// pair silently; other rules for the record still emit. Misconfiguration
// (bad key length, blank secret, unknown operation code) fails at
// construction time, before any record is processed. Blank tokens passed to
// a transformer are invalid usage and error immediately.
package opentoken

// PersonRecord is one input row: an opaque record identifier plus a mapping
// from attribute kind to raw string value. Records are never mutated after
// creation and each is processed independently of all others.
type PersonRecord struct {
	ID         string
	Attributes map[Kind]string
}

// OutputRecord is one emitted result: the input record's identifier, the
// rule that produced the token, and the final transformed token.
type OutputRecord struct {
	RecordID string `csv:"RecordId" msgpack:"record_id"`
	RuleID   string `csv:"RuleId" msgpack:"rule_id"`
	Token    string `csv:"Token" msgpack:"token"`
}

// RecordSource supplies a sequence of person records. Next returns io.EOF
// when the sequence is exhausted; any other error aborts processing and
// propagates unchanged.
type RecordSource interface {
	Next() (PersonRecord, error)
}

// RecordSink accepts emitted output records and is responsible for
// serialization. The processor serializes calls to Write; implementations
// need not be safe for concurrent use.
type RecordSink interface {
	Write(OutputRecord) error
}

// TokenTransformer is a keyed mapping from token to token. Implementations
// must be safe for concurrent use and must reject blank tokens with
// ErrBlankToken.
type TokenTransformer interface {
	Transform(token string) (string, error)
}
