package crypto

import (
	"bytes"
	"testing"
)

func TestRandBytes_LenAndDiff(t *testing.T) {
	t.Parallel()

	a, err := RandBytes(16)
	if err != nil || len(a) != 16 {
		t.Fatalf("RandBytes: len=%d err=%v", len(a), err)
	}
	b, _ := RandBytes(16)
	if bytes.Equal(a, b) {
		t.Fatalf("two random draws must differ")
	}
}

func TestDeriveKey_DeterministicAndPurposeBound(t *testing.T) {
	t.Parallel()

	secret := []byte("server-secret")
	k1, err := DeriveKey(secret, PurposeAccessToken)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, _ := DeriveKey(secret, PurposeAccessToken)
	if !bytes.Equal(k1, k2) || len(k1) != KeyLen {
		t.Fatalf("derivation must be deterministic and %d bytes", KeyLen)
	}
	k3, _ := DeriveKey(secret, PurposeCustomToken)
	if bytes.Equal(k1, k3) {
		t.Fatalf("different purposes must yield different keys")
	}
	k4, _ := DeriveKey([]byte("other"), PurposeAccessToken)
	if bytes.Equal(k1, k4) {
		t.Fatalf("different secrets must yield different keys")
	}
}

func TestDeriveKey_Errors(t *testing.T) {
	t.Parallel()

	if _, err := DeriveKey(nil, PurposeAccessToken); err == nil {
		t.Fatalf("want error on empty secret")
	}
	if _, err := DeriveKey([]byte("s"), ""); err == nil {
		t.Fatalf("want error on empty purpose")
	}
	if _, err := DeriveSigningKeys(nil); err == nil {
		t.Fatalf("want error on empty secret")
	}
}

func TestDeriveSigningKeys(t *testing.T) {
	t.Parallel()

	keys, err := DeriveSigningKeys([]byte("s3cr3t"))
	if err != nil {
		t.Fatalf("DeriveSigningKeys: %v", err)
	}
	if bytes.Equal(keys.Access, keys.Custom) {
		t.Fatalf("access and custom keys must differ")
	}
}
