// Package testing provides test fixtures for opentoken.
package testing

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/zoobzio/opentoken"
)

// TestHashKey returns the keyed-hash secret used across tests.
func TestHashKey() string {
	return "hash_key"
}

// TestEncryptKey returns a valid 32-byte AES-256 key for testing.
func TestEncryptKey() string {
	return "the_encryption_key_goes_here...."
}

// TestHashTransformer returns a hash transformer built with TestHashKey.
func TestHashTransformer() *opentoken.HashTransformer {
	t, err := opentoken.NewHashTransformer(TestHashKey())
	if err != nil {
		panic(err)
	}
	return t
}

// TestEncryptTransformer returns a GCM encrypt transformer built with
// TestEncryptKey.
func TestEncryptTransformer() *opentoken.EncryptTransformer {
	t, err := opentoken.NewEncryptTransformer(TestEncryptKey())
	if err != nil {
		panic(err)
	}
	return t
}

// SampleRecord returns a fully populated record that every built-in rule
// can tokenize.
func SampleRecord() opentoken.PersonRecord {
	return opentoken.PersonRecord{
		ID: "evaluation-record-1",
		Attributes: map[opentoken.Kind]string{
			opentoken.RecordID:   "evaluation-record-1",
			opentoken.LastName:   "Wonderland",
			opentoken.FirstName:  "Alice",
			opentoken.Gender:     "Female",
			opentoken.BirthDate:  "1993-08-10",
			opentoken.PostalCode: "98052",
			opentoken.SSN:        "345-54-6795",
		},
	}
}

// Name pools for synthetic data.
var (
	firstNames = []string{"Alice", "Bob", "Carol", "David", "Erin", "Frank", "Grace", "Hugo", "Irene", "Jorge"}
	lastNames  = []string{"Wonderland", "Smith", "García", "Nguyen", "Okafor", "Johnson", "Müller", "Brown", "Silva", "Kim"}
	genders    = []string{"Male", "Female"}
)

// SyntheticRecords generates n records with unique record ids. With
// probability dup, a record reuses the person attributes of an earlier
// record, modeling the same person appearing under a fresh record id. The
// seed fixes the sequence so tests are reproducible.
func SyntheticRecords(n int, dup float64, seed int64) []opentoken.PersonRecord {
	rng := rand.New(rand.NewSource(seed))
	records := make([]opentoken.PersonRecord, 0, n)

	for i := 0; i < n; i++ {
		id := uuid.NewString()
		if len(records) > 0 && rng.Float64() < dup {
			prior := records[rng.Intn(len(records))]
			attrs := make(map[opentoken.Kind]string, len(prior.Attributes))
			for k, v := range prior.Attributes {
				attrs[k] = v
			}
			attrs[opentoken.RecordID] = id
			records = append(records, opentoken.PersonRecord{ID: id, Attributes: attrs})
			continue
		}

		attrs := map[opentoken.Kind]string{
			opentoken.RecordID:   id,
			opentoken.FirstName:  firstNames[rng.Intn(len(firstNames))],
			opentoken.LastName:   lastNames[rng.Intn(len(lastNames))],
			opentoken.Gender:     genders[rng.Intn(len(genders))],
			opentoken.BirthDate:  fmt.Sprintf("%04d-%02d-%02d", 1940+rng.Intn(70), 1+rng.Intn(12), 1+rng.Intn(28)),
			opentoken.PostalCode: fmt.Sprintf("%05d", 10000+rng.Intn(89999)),
			opentoken.SSN:        syntheticSSN(rng),
		}
		records = append(records, opentoken.PersonRecord{ID: id, Attributes: attrs})
	}
	return records
}

// syntheticSSN generates a plausible SSN that passes validation.
func syntheticSSN(rng *rand.Rand) string {
	for {
		ssn := fmt.Sprintf("%03d-%02d-%04d", 100+rng.Intn(799), 10+rng.Intn(89), 1000+rng.Intn(8999))
		if opentoken.Validate(opentoken.SSN, ssn) {
			return ssn
		}
	}
}
