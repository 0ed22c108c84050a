package abe_test

import (
	"testing"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupDeterministic(t *testing.T) {
	a, err := abe.Setup(abe.DefaultParams(3, "seed"))
	require.NoError(t, err)
	b, err := abe.Setup(abe.DefaultParams(3, "seed"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.PublicKey, 64)

	c, err := abe.Setup(abe.DefaultParams(4, "seed"))
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey, c.PublicKey)

	r1, err := abe.Setup(abe.DefaultParams(3, ""))
	require.NoError(t, err)
	r2, err := abe.Setup(abe.DefaultParams(3, ""))
	require.NoError(t, err)
	assert.Equal(t, r1.PublicKey, r2.PublicKey)
	assert.NotEqual(t, r1.MasterSecret, r2.MasterSecret)
}

func TestKeyGen(t *testing.T) {
	keys, err := abe.Setup(abe.DefaultParams(2, "seed"))
	require.NoError(t, err)
	attrs := abe.Attributes{"role": "hospital", "region": "north"}

	k1, err := abe.KeyGen(keys.MasterSecret, "facility_0", attrs)
	require.NoError(t, err)
	k2, err := abe.KeyGen(keys.MasterSecret, "facility_0", abe.Attributes{"region": "north", "role": "hospital"})
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "attribute order must not matter")

	k3, err := abe.KeyGen(keys.MasterSecret, "facility_1", attrs)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestPolicy(t *testing.T) {
	policy := abe.Policy{"role": "hospital", "region": "north"}

	cases := []struct {
		desc      string
		attrs     abe.Attributes
		satisfied bool
	}{
		{
			desc:      "exact match",
			attrs:     abe.Attributes{"role": "hospital", "region": "north"},
			satisfied: true,
		},
		{
			desc:      "superset of policy",
			attrs:     abe.Attributes{"role": "hospital", "region": "north", "institution_type": "public"},
			satisfied: true,
		},
		{
			desc:  "missing attribute",
			attrs: abe.Attributes{"role": "hospital"},
		},
		{
			desc:  "different value",
			attrs: abe.Attributes{"role": "hospital", "region": "south"},
		},
		{
			desc: "no attributes",
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.satisfied, policy.SatisfiedBy(tc.attrs))
		})
	}

	assert.True(t, abe.Policy{}.SatisfiedBy(nil))
}

func TestEncryptDecrypt(t *testing.T) {
	keys, err := abe.Setup(abe.DefaultParams(2, "seed"))
	require.NoError(t, err)
	policy := abe.Policy{"role": "hospital"}
	plaintext := []byte("initial global model bytes that are longer than one keystream block")

	ct, err := abe.Encrypt(keys.PublicKey, plaintext, policy)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ct)
	assert.Len(t, ct, len(plaintext))

	got, err := abe.Decrypt(keys.PublicKey, ct, policy, abe.Attributes{"role": "hospital", "region": "north"})
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)

	_, err = abe.Decrypt(keys.PublicKey, ct, policy, abe.Attributes{"role": "clinic"})
	assert.ErrorIs(t, err, abe.ErrAccessDenied)

	other, err := abe.Decrypt(keys.PublicKey, ct, abe.Policy{}, abe.Attributes{"role": "hospital"})
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, other, "the keystream is bound to the policy")

	_, err = abe.Encrypt("", plaintext, policy)
	assert.ErrorIs(t, err, abe.ErrEmptyKey)
}
