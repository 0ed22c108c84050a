package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex encoded HMAC-SHA256 of payload under key.
func Sign(payload, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks tag against payload in constant time.
func Verify(payload []byte, tag string, key []byte) bool {
	got, err := hex.DecodeString(tag)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)

	return hmac.Equal(mac.Sum(nil), got)
}

// SignedPackage carries a payload with the MAC tag of its signer. It is
// untrusted until Verify succeeds.
type SignedPackage struct {
	Payload []byte `cbor:"1,keyasint" json:"payload"`
	Tag     string `cbor:"2,keyasint" json:"tag"`
	Signer  string `cbor:"3,keyasint" json:"signer"`
	Nonce   string `cbor:"4,keyasint,omitempty" json:"nonce,omitempty"`
}

// Seal signs payload with the key of signer.
func Seal(payload []byte, signer string, keys KeyDerivation) SignedPackage {
	return SignedPackage{
		Payload: payload,
		Tag:     Sign(payload, keys.Key(signer)),
		Signer:  signer,
	}
}

// WithNonce attaches a proof-of-work nonce.
func (p SignedPackage) WithNonce(nonce uint64) SignedPackage {
	p.Nonce = FormatNonce(nonce)

	return p
}

// Verify checks the tag against the key derived for p.Signer.
func (p SignedPackage) Verify(keys KeyDerivation) bool {
	if p.Signer == "" {
		return false
	}

	return Verify(p.Payload, p.Tag, keys.Key(p.Signer))
}

// VerifyPoW checks the attached nonce against the signer identity.
func (p SignedPackage) VerifyPoW(difficulty int) bool {
	if p.Nonce == "" {
		return false
	}
	nonce, err := ParseNonce(p.Nonce)
	if err != nil {
		return false
	}

	return VerifyPoW(p.Signer, nonce, difficulty)
}
