package opentoken

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// KeySize is the required encryption key length: AES-256.
const KeySize = 32

// Chain is an ordered sequence of token transformers. The final output is
// t_n(...t_1(base)); producer and consumer must configure the same order
// for later comparison to work.
type Chain []TokenTransformer

// Apply runs the token through every transformer in order.
func (c Chain) Apply(token string) (string, error) {
	var err error
	for _, t := range c {
		token, err = t.Transform(token)
		if err != nil {
			return "", err
		}
	}
	return token, nil
}

// NoopTransformer passes the token through unchanged. Used when a consumer
// needs raw base tokens, e.g. an internal reference set that will be hashed
// independently at comparison time.
type NoopTransformer struct{}

// Transform returns the token unchanged. Blank tokens are still rejected;
// they indicate a caller bug, not a data condition.
func (NoopTransformer) Transform(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", newTransformError(ErrBlankToken, "noop", nil)
	}
	return token, nil
}

// HashTransformer applies HMAC-SHA256 keyed by an operator-supplied secret.
// Identical input and key always produce identical output, which is what
// makes linkage across independent runs possible.
type HashTransformer struct {
	secret []byte
}

// NewHashTransformer builds a keyed-hash transformer. A blank secret is a
// fatal construction error: a silently unkeyed hash would emit tokens that
// can never match anyone else's.
func NewHashTransformer(secret string) (*HashTransformer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, newConfigError(ErrBlankSecret, "hash transformer")
	}
	return &HashTransformer{secret: []byte(secret)}, nil
}

// Transform returns base64(HMAC-SHA256(token)). A fresh MAC state is built
// per call, so the transformer is safe for unsynchronized concurrent use.
func (t *HashTransformer) Transform(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", newTransformError(ErrBlankToken, "hash", nil)
	}
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(token))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// CipherMode selects the encryption deployment profile.
type CipherMode string

const (
	// ModeGCM is authenticated AES-GCM, the default profile.
	ModeGCM CipherMode = "gcm"

	// ModeCBC is AES-CBC with PKCS#7 padding, retained for consumers whose
	// decryption tooling predates the GCM profile.
	ModeCBC CipherMode = "cbc"
)

// EncryptTransformer applies AES-256 encryption with a fresh random IV per
// call, so repeated encryption of the same token yields different
// ciphertext that decrypts to the same plaintext. The IV is prepended to
// the ciphertext before base64 encoding, so a key holder can decrypt
// without external context.
type EncryptTransformer struct {
	mode  CipherMode
	block cipher.Block
	gcm   cipher.AEAD
}

// NewEncryptTransformer builds an AES-256-GCM transformer. The key must be
// exactly KeySize bytes.
func NewEncryptTransformer(key string) (*EncryptTransformer, error) {
	return newEncryptTransformer(key, ModeGCM)
}

// NewEncryptTransformerCBC builds the AES-256-CBC profile.
func NewEncryptTransformerCBC(key string) (*EncryptTransformer, error) {
	return newEncryptTransformer(key, ModeCBC)
}

func newEncryptTransformer(key string, mode CipherMode) (*EncryptTransformer, error) {
	if strings.TrimSpace(key) == "" {
		return nil, newConfigError(ErrBlankSecret, "encrypt transformer")
	}
	if len(key) != KeySize {
		return nil, newConfigError(ErrInvalidKey, fmt.Sprintf("must be %d bytes, got %d", KeySize, len(key)))
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, newConfigError(ErrInvalidKey, err.Error())
	}

	t := &EncryptTransformer{mode: mode, block: block}
	if mode == ModeGCM {
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, newConfigError(ErrInvalidKey, err.Error())
		}
		t.gcm = gcm
	}
	return t, nil
}

// Mode returns the transformer's cipher profile.
func (t *EncryptTransformer) Mode() CipherMode {
	return t.mode
}

// Transform encrypts the token and returns base64(IV || ciphertext).
// crypto/rand is safe for concurrent use, and every call constructs its own
// cipher state, so no locking is needed.
func (t *EncryptTransformer) Transform(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", newTransformError(ErrBlankToken, "encrypt", nil)
	}

	plaintext := []byte(token)
	var message []byte

	switch t.mode {
	case ModeGCM:
		nonce := make([]byte, t.gcm.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return "", newTransformError(ErrDecryptionFailed, "encrypt", err)
		}
		message = t.gcm.Seal(nonce, nonce, plaintext, nil)

	case ModeCBC:
		padded := padPKCS7(plaintext, aes.BlockSize)
		message = make([]byte, aes.BlockSize+len(padded))
		iv := message[:aes.BlockSize]
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			return "", newTransformError(ErrDecryptionFailed, "encrypt", err)
		}
		cipher.NewCBCEncrypter(t.block, iv).CryptBlocks(message[aes.BlockSize:], padded)
	}

	return base64.StdEncoding.EncodeToString(message), nil
}

// Decrypt reverses Transform for audit comparison: a holder of both keys
// can decrypt a hashed-then-encrypted token and compare it against an
// independently hashed reference.
func (t *EncryptTransformer) Decrypt(encoded string) (string, error) {
	message, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", newTransformError(ErrDecryptionFailed, "encrypt", err)
	}

	switch t.mode {
	case ModeGCM:
		nonceSize := t.gcm.NonceSize()
		if len(message) < nonceSize {
			return "", newTransformError(ErrCiphertextShort, "encrypt", nil)
		}
		plaintext, err := t.gcm.Open(nil, message[:nonceSize], message[nonceSize:], nil)
		if err != nil {
			return "", newTransformError(ErrDecryptionFailed, "encrypt", err)
		}
		return string(plaintext), nil

	default: // ModeCBC
		if len(message) < aes.BlockSize || len(message)%aes.BlockSize != 0 {
			return "", newTransformError(ErrCiphertextShort, "encrypt", nil)
		}
		iv, ciphertext := message[:aes.BlockSize], message[aes.BlockSize:]
		plaintext := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(t.block, iv).CryptBlocks(plaintext, ciphertext)
		unpadded, err := unpadPKCS7(plaintext, aes.BlockSize)
		if err != nil {
			return "", newTransformError(ErrDecryptionFailed, "encrypt", err)
		}
		return string(unpadded), nil
	}
}

// padPKCS7 pads to a multiple of blockSize per PKCS#7.
func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpadPKCS7 strips and verifies PKCS#7 padding.
func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
