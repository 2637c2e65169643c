// Package crypto derives purpose-bound signing keys from the server secret.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes. Each yields an independent key from the same secret.
const (
	PurposeAccessToken = "vivid/access-token/v1"
	PurposeCustomToken = "vivid/custom-token/v1"
)

// KeyLen is the length of derived HS256 keys.
const KeyLen = 32

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// DeriveKey expands secret into a KeyLen-byte key bound to purpose using HKDF-SHA256.
func DeriveKey(secret []byte, purpose string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}
	if purpose == "" {
		return nil, errors.New("empty purpose")
	}
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, err
	}
	return key, nil
}

// SigningKeys holds the keys the identity service signs with.
type SigningKeys struct {
	Access []byte
	Custom []byte
}

// DeriveSigningKeys derives both signing keys from one server secret.
func DeriveSigningKeys(secret []byte) (SigningKeys, error) {
	access, err := DeriveKey(secret, PurposeAccessToken)
	if err != nil {
		return SigningKeys{}, err
	}
	custom, err := DeriveKey(secret, PurposeCustomToken)
	if err != nil {
		return SigningKeys{}, err
	}
	return SigningKeys{Access: access, Custom: custom}, nil
}
