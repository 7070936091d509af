package opentoken

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrInvalidKey indicates an encryption key has an invalid size.
	ErrInvalidKey = errors.New("invalid key")

	// ErrBlankSecret indicates a required secret was blank or missing.
	ErrBlankSecret = errors.New("blank secret")

	// ErrBlankToken indicates a blank token was passed to a transformer.
	// This is an invalid-usage error, never a data condition.
	ErrBlankToken = errors.New("blank token")

	// ErrUnknownRule indicates a rule id not present in the catalog.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrUnknownOperation indicates an unrecognized expression operation code.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnknownAttribute indicates an attribute name not in the registry.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrInvalidCatalog indicates a catalog definition failed to load.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrCiphertextShort indicates ciphertext too short to contain an IV.
	ErrCiphertextShort = errors.New("ciphertext too short")

	// ErrDecryptionFailed indicates authenticated decryption failed.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// ConfigError represents a construction-time configuration error.
// It wraps a sentinel error with context about what was misconfigured.
// Configuration errors are fatal before any record is processed.
type ConfigError struct {
	Err    error  // Underlying sentinel error (ErrInvalidKey, ErrBlankSecret, etc.)
	Detail string // Human-readable detail (rule id, operation code, key length)
}

func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransformError represents a failure inside a token transformer.
type TransformError struct {
	Err         error  // Underlying sentinel error (ErrBlankToken, ErrDecryptionFailed, etc.)
	Transformer string // Transformer kind (noop, hash, encrypt)
	Cause       error  // Original error from the cryptographic primitive
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s transformer: %s: %v", e.Transformer, e.Err.Error(), e.Cause)
	}
	return fmt.Sprintf("%s transformer: %s", e.Transformer, e.Err.Error())
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// newConfigError creates a ConfigError with detail context.
func newConfigError(sentinel error, detail string) error {
	return &ConfigError{Err: sentinel, Detail: detail}
}

// newTransformError creates a TransformError for a transformer failure.
func newTransformError(sentinel error, transformer string, cause error) error {
	return &TransformError{Err: sentinel, Transformer: transformer, Cause: cause}
}
