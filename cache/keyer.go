package cache

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/jonwraymond/webguard/auth"
)

// Keyer derives cache keys from credentials.
//
// Contract:
//   - Determinism: equal credentials produce equal keys for the same Keyer.
//   - Secrecy: keys reveal nothing about the credentials.
type Keyer interface {
	Key(creds *auth.Credentials) (string, error)
}

// HMACKeyer keys credentials with HMAC-SHA256 under a random per-process key.
type HMACKeyer struct {
	key []byte
}

// NewHMACKeyer creates a keyer with a fresh random key.
func NewHMACKeyer() (*HMACKeyer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &HMACKeyer{key: key}, nil
}

// Key returns "auth:<hex hmac>". Fields are length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func (k *HMACKeyer) Key(creds *auth.Credentials) (string, error) {
	if creds == nil {
		return "", ErrNilValue
	}
	mac := hmac.New(sha256.New, k.key)
	for _, field := range []string{creds.Scheme, creds.Principal, creds.Secret} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		mac.Write(n[:])
		mac.Write([]byte(field))
	}
	return "auth:" + hex.EncodeToString(mac.Sum(nil)), nil
}

var _ Keyer = (*HMACKeyer)(nil)
