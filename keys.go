package opentoken

import (
	"crypto/sha256"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey expands an operator passphrase into a KeySize-byte AES key via
// HKDF-SHA256. Derivation is deterministic for a given (passphrase, salt)
// pair, so independent installations sharing both inputs arrive at the same
// key without ever exchanging it.
//
// The passphrase is treated as opaque bytes and is never logged or
// persisted. A blank passphrase is a fatal configuration error.
func DeriveKey(passphrase, salt string) ([]byte, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, newConfigError(ErrBlankSecret, "key derivation")
	}

	kdf := hkdf.New(sha256.New, []byte(passphrase), []byte(salt), []byte("opentoken-aes-key"))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, newConfigError(ErrInvalidKey, err.Error())
	}
	return key, nil
}
