// Package abe is a toy ciphertext-policy attribute based encryption scheme.
//
// Keys are hash derived and the cipher is a repeating XOR keystream bound to
// the public key and the access policy. Policy enforcement happens in Decrypt,
// not in the mathematics, so the scheme must only run inside the trusted
// authority.
package abe

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
)

const DefaultSecurityParam = 128

var (
	ErrAccessDenied = pkgerrors.ErrAccessDenied
	ErrEmptyKey     = errors.New("empty public key")
)

// DefaultAttributeNames are the attribute names published at setup.
var DefaultAttributeNames = []string{"role", "region", "institution_type"}

// Attributes are the attribute values held by a facility.
type Attributes map[string]string

// Policy maps attribute names to the value a holder must have.
type Policy map[string]string

// SatisfiedBy reports whether every policy entry is present in attrs with an
// equal value. An empty policy is satisfied by anyone.
func (p Policy) SatisfiedBy(attrs Attributes) bool {
	for k, v := range p {
		got, ok := attrs[k]
		if !ok || got != v {
			return false
		}
	}

	return true
}

// Params describe the deployment the keys are derived for.
type Params struct {
	SecurityParam  int      `json:"security_param"`
	Facilities     []string `json:"facilities"`
	AttributeNames []string `json:"attributes"`
	// Seed makes the master secret reproducible. When empty a random secret is drawn.
	Seed string `json:"seed,omitempty"`
}

// DefaultParams returns the parameters for n facilities named facility_0..facility_{n-1}.
func DefaultParams(n int, seed string) Params {
	facilities := make([]string, n)
	for i := range facilities {
		facilities[i] = fmt.Sprintf("facility_%d", i)
	}

	return Params{
		SecurityParam:  DefaultSecurityParam,
		Facilities:     facilities,
		AttributeNames: DefaultAttributeNames,
		Seed:           seed,
	}
}

// EncryptedModel is a ciphertext together with the policy and public key it
// was produced under.
type EncryptedModel struct {
	Ciphertext []byte `json:"ciphertext"`
	Policy     Policy `json:"policy"`
	PublicKey  string `json:"public_key"`
}

type MasterKeys struct {
	PublicKey    string
	MasterSecret string
}

func Setup(p Params) (MasterKeys, error) {
	pk, err := digest(p)
	if err != nil {
		return MasterKeys{}, err
	}

	secret := p.Seed
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return MasterKeys{}, fmt.Errorf("failed to draw master secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
	}

	msk, err := digest(map[string]string{
		"master_secret": secret,
		"pk":            pk,
	})
	if err != nil {
		return MasterKeys{}, err
	}

	return MasterKeys{PublicKey: pk, MasterSecret: msk}, nil
}

// KeyGen derives the secret key of a facility from the master secret and its attributes.
func KeyGen(msk, facilityID string, attrs Attributes) (string, error) {
	return digest(map[string]any{
		"attributes":  attrs,
		"facility_id": facilityID,
		"msk":         msk,
	})
}

// Encrypt XORs plaintext with a keystream bound to pk and policy.
func Encrypt(pk string, plaintext []byte, policy Policy) ([]byte, error) {
	if pk == "" {
		return nil, ErrEmptyKey
	}
	ks, err := keystream(pk, policy)
	if err != nil {
		return nil, err
	}

	return xor(plaintext, ks), nil
}

// Decrypt returns the plaintext if attrs satisfy policy.
func Decrypt(pk string, ciphertext []byte, policy Policy, attrs Attributes) ([]byte, error) {
	if !policy.SatisfiedBy(attrs) {
		return nil, ErrAccessDenied
	}
	if pk == "" {
		return nil, ErrEmptyKey
	}
	ks, err := keystream(pk, policy)
	if err != nil {
		return nil, err
	}

	return xor(ciphertext, ks), nil
}

func keystream(pk string, policy Policy) ([]byte, error) {
	if policy == nil {
		policy = Policy{}
	}
	// encoding/json sorts map keys, so equal policies give equal streams.
	data, err := json.Marshal(policy)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(append([]byte(pk+"_"), data...))

	return sum[:], nil
}

func xor(data, ks []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ ks[i%len(ks)]
	}

	return out
}

func digest(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
