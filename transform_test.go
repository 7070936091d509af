package opentoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
)

const (
	testHashKey    = "hash_key"
	testEncryptKey = "the_encryption_key_goes_here...."
)

func TestNoopTransformer(t *testing.T) {
	var noop NoopTransformer

	got, err := noop.Transform("token")
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if got != "token" {
		t.Errorf("Transform = %q, want token", got)
	}

	if _, err := noop.Transform("  "); !errors.Is(err, ErrBlankToken) {
		t.Errorf("blank token error = %v, want ErrBlankToken", err)
	}
}

func TestHashTransformer_MatchesManualHMAC(t *testing.T) {
	tr, err := NewHashTransformer(testHashKey)
	if err != nil {
		t.Fatalf("NewHashTransformer error: %v", err)
	}

	got, err := tr.Transform("sampleToken")
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write([]byte("sampleToken"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("Transform = %q, want %q", got, want)
	}
}

func TestHashTransformer_Deterministic(t *testing.T) {
	tr, _ := NewHashTransformer(testHashKey)

	a, _ := tr.Transform("sampleToken")
	b, _ := tr.Transform("sampleToken")
	if a != b {
		t.Error("identical input and key must produce identical output")
	}
}

func TestHashTransformer_KeySensitivity(t *testing.T) {
	tr1, _ := NewHashTransformer("key-one")
	tr2, _ := NewHashTransformer("key-two")

	a, _ := tr1.Transform("sampleToken")
	b, _ := tr2.Transform("sampleToken")
	if a == b {
		t.Error("distinct secrets must produce distinct hashes")
	}
}

func TestHashTransformer_BlankSecretFatal(t *testing.T) {
	if _, err := NewHashTransformer("   "); !errors.Is(err, ErrBlankSecret) {
		t.Errorf("error = %v, want ErrBlankSecret", err)
	}
}

func TestHashTransformer_BlankToken(t *testing.T) {
	tr, _ := NewHashTransformer(testHashKey)
	if _, err := tr.Transform(""); !errors.Is(err, ErrBlankToken) {
		t.Errorf("error = %v, want ErrBlankToken", err)
	}
}

func TestEncryptTransformer_KeyLengthFatal(t *testing.T) {
	if _, err := NewEncryptTransformer("short-key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("error = %v, want ErrInvalidKey", err)
	}
	if _, err := NewEncryptTransformerCBC("short-key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("cbc error = %v, want ErrInvalidKey", err)
	}
	if _, err := NewEncryptTransformer(""); !errors.Is(err, ErrBlankSecret) {
		t.Errorf("blank key error = %v, want ErrBlankSecret", err)
	}
}

func TestEncryptTransformer_RoundTripGCM(t *testing.T) {
	tr, err := NewEncryptTransformer(testEncryptKey)
	if err != nil {
		t.Fatalf("NewEncryptTransformer error: %v", err)
	}

	encrypted, err := tr.Transform("mySecretToken")
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(encrypted); err != nil {
		t.Fatalf("output is not base64: %v", err)
	}

	decrypted, err := tr.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if decrypted != "mySecretToken" {
		t.Errorf("Decrypt = %q, want original token", decrypted)
	}
}

func TestEncryptTransformer_RoundTripCBC(t *testing.T) {
	tr, err := NewEncryptTransformerCBC(testEncryptKey)
	if err != nil {
		t.Fatalf("NewEncryptTransformerCBC error: %v", err)
	}

	encrypted, err := tr.Transform("mySecretToken")
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	decrypted, err := tr.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if decrypted != "mySecretToken" {
		t.Errorf("Decrypt = %q, want original token", decrypted)
	}
}

func TestEncryptTransformer_FreshIVPerCall(t *testing.T) {
	tr, _ := NewEncryptTransformer(testEncryptKey)

	a, _ := tr.Transform("mySecretToken")
	b, _ := tr.Transform("mySecretToken")
	if a == b {
		t.Error("repeated encryption must produce different ciphertext")
	}

	pa, _ := tr.Decrypt(a)
	pb, _ := tr.Decrypt(b)
	if pa != pb {
		t.Error("different ciphertexts must decrypt to the same plaintext")
	}
}

func TestEncryptTransformer_TamperDetectionGCM(t *testing.T) {
	tr, _ := NewEncryptTransformer(testEncryptKey)

	encrypted, _ := tr.Transform("mySecretToken")
	raw, _ := base64.StdEncoding.DecodeString(encrypted)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := tr.Decrypt(tampered); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("error = %v, want ErrDecryptionFailed", err)
	}
}

func TestEncryptTransformer_ShortCiphertext(t *testing.T) {
	tr, _ := NewEncryptTransformer(testEncryptKey)
	if _, err := tr.Decrypt(base64.StdEncoding.EncodeToString([]byte("xy"))); !errors.Is(err, ErrCiphertextShort) {
		t.Errorf("error = %v, want ErrCiphertextShort", err)
	}
}

func TestEncryptTransformer_BlankToken(t *testing.T) {
	tr, _ := NewEncryptTransformer(testEncryptKey)
	if _, err := tr.Transform(""); !errors.Is(err, ErrBlankToken) {
		t.Errorf("error = %v, want ErrBlankToken", err)
	}
}

func TestChain_AuditReversibility(t *testing.T) {
	hash, _ := NewHashTransformer(testHashKey)
	hashed, _ := hash.Transform("baseToken")

	for _, mode := range []CipherMode{ModeGCM, ModeCBC} {
		var enc *EncryptTransformer
		var err error
		if mode == ModeCBC {
			enc, err = NewEncryptTransformerCBC(testEncryptKey)
		} else {
			enc, err = NewEncryptTransformer(testEncryptKey)
		}
		if err != nil {
			t.Fatalf("%s: constructor error: %v", mode, err)
		}

		chain := Chain{hash, enc}
		final, err := chain.Apply("baseToken")
		if err != nil {
			t.Fatalf("%s: Apply error: %v", mode, err)
		}

		recovered, err := enc.Decrypt(final)
		if err != nil {
			t.Fatalf("%s: Decrypt error: %v", mode, err)
		}
		if recovered != hashed {
			t.Errorf("%s: decrypt(encrypt(hash(X))) != hash(X)", mode)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	got, err := Chain{}.Apply("baseToken")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got != "baseToken" {
		t.Errorf("empty chain should pass tokens through, got %q", got)
	}
}

func TestChain_PropagatesTransformerError(t *testing.T) {
	hash, _ := NewHashTransformer(testHashKey)
	if _, err := (Chain{hash}).Apply(""); !errors.Is(err, ErrBlankToken) {
		t.Errorf("error = %v, want ErrBlankToken", err)
	}
}
