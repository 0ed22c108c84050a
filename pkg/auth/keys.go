package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	fogPrefix = "fog_"
	// CommitteeIdentity is the identity whose key produces committee co-signatures.
	CommitteeIdentity = "committee_master"
)

// KeyDerivation maps an identity to its MAC key.
type KeyDerivation interface {
	Key(identity string) []byte
}

// FogIdentity returns the signing identity of a regional aggregator.
func FogIdentity(fogID string) string {
	return fogPrefix + fogID
}

// IdentityKeys derives keys as hex(sha256("secret_key_" + identity)) and uses the
// hex string bytes as the HMAC key. Anyone who knows an identity can derive its
// key, so this only keeps deployments wire compatible with existing nodes.
type IdentityKeys struct{}

var _ KeyDerivation = IdentityKeys{}

func (IdentityKeys) Key(identity string) []byte {
	sum := sha256.Sum256([]byte("secret_key_" + identity))
	key := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(key, sum[:])

	return key
}

// HKDFKeys derives 32 byte keys with HKDF-SHA256 from a deployment secret,
// using the identity as the info parameter.
type HKDFKeys struct {
	secret []byte
	salt   []byte
}

var _ KeyDerivation = (*HKDFKeys)(nil)

func NewHKDFKeys(secret, salt []byte) *HKDFKeys {
	return &HKDFKeys{secret: secret, salt: salt}
}

func (h *HKDFKeys) Key(identity string) []byte {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, h.secret, h.salt, []byte(identity))
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF-SHA256 can emit up to 255*32 bytes; 32 never fails.
		panic(err)
	}

	return key
}

// NewKeyDerivation returns HKDF keys when secret is set and identity keys otherwise.
func NewKeyDerivation(secret string) KeyDerivation {
	if secret == "" {
		return IdentityKeys{}
	}

	return NewHKDFKeys([]byte(secret), []byte("dpsshare"))
}
