package auth_test

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoW(t *testing.T) {
	cases := []struct {
		desc       string
		identity   string
		difficulty int
	}{
		{desc: "difficulty zero", identity: "facility_0", difficulty: 0},
		{desc: "difficulty one", identity: "facility_1", difficulty: 1},
		{desc: "difficulty two", identity: "facility_2", difficulty: 2},
		{desc: "default difficulty", identity: "facility_3", difficulty: auth.DefaultDifficulty},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			nonce, err := auth.ComputePoW(context.Background(), tc.identity, tc.difficulty)
			require.NoError(t, err)
			assert.True(t, auth.VerifyPoW(tc.identity, nonce, tc.difficulty))
			assert.True(t, strings.HasPrefix(auth.PoWDigest(tc.identity, nonce), strings.Repeat("0", tc.difficulty)))

			if tc.difficulty == 0 {
				assert.Zero(t, nonce)

				return
			}
			// The search returns the first valid nonce, so every smaller one fails.
			for n := range nonce {
				assert.False(t, auth.VerifyPoW(tc.identity, n, tc.difficulty))
			}
		})
	}
}

func TestPoWCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := auth.ComputePoW(ctx, "facility_0", 64)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMAC(t *testing.T) {
	keys := auth.IdentityKeys{}
	payload := []byte("share payload")
	key := keys.Key("facility_0")
	tag := auth.Sign(payload, key)

	assert.True(t, auth.Verify(payload, tag, key))
	assert.Len(t, tag, 64)

	for i := range payload {
		tampered := []byte(string(payload))
		tampered[i] ^= 0x01
		assert.False(t, auth.Verify(tampered, tag, key), "payload byte %d", i)
	}

	for i := range len(tag) {
		b := []byte(tag)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		assert.False(t, auth.Verify(payload, string(b), key), "tag byte %d", i)
	}

	for i := range key {
		k := []byte(string(key))
		k[i] ^= 0x01
		assert.False(t, auth.Verify(payload, tag, k), "key byte %d", i)
	}

	assert.False(t, auth.Verify(payload, "not-hex", key))
}

func TestKeyDerivation(t *testing.T) {
	id := auth.IdentityKeys{}
	assert.Equal(t, id.Key("facility_0"), id.Key("facility_0"))
	assert.NotEqual(t, id.Key("facility_0"), id.Key("facility_1"))
	// Key bytes are the hex digest characters.
	assert.Len(t, id.Key("facility_0"), 64)

	h := auth.NewHKDFKeys([]byte("deployment secret"), nil)
	assert.Len(t, h.Key("facility_0"), 32)
	assert.Equal(t, h.Key("facility_0"), h.Key("facility_0"))
	assert.NotEqual(t, h.Key("facility_0"), h.Key("facility_1"))
	other := auth.NewHKDFKeys([]byte("other secret"), nil)
	assert.NotEqual(t, h.Key("facility_0"), other.Key("facility_0"))

	assert.IsType(t, auth.IdentityKeys{}, auth.NewKeyDerivation(""))
	assert.IsType(t, &auth.HKDFKeys{}, auth.NewKeyDerivation("s"))
	assert.Equal(t, "fog_fog_server_0", auth.FogIdentity("fog_server_0"))
}

func TestSignedPackage(t *testing.T) {
	keys := auth.IdentityKeys{}
	p := auth.Seal([]byte("payload"), "facility_0", keys)
	assert.True(t, p.Verify(keys))

	forged := p
	forged.Signer = "facility_1"
	assert.False(t, forged.Verify(keys))

	anonymous := p
	anonymous.Signer = ""
	assert.False(t, anonymous.Verify(keys))

	nonce, err := auth.ComputePoW(context.Background(), "facility_0", 2)
	require.NoError(t, err)
	withPoW := p.WithNonce(nonce)
	assert.True(t, withPoW.VerifyPoW(2))
	assert.False(t, p.VerifyPoW(2))
	withPoW.Nonce = "abc"
	assert.False(t, withPoW.VerifyPoW(2))
}

func TestCommittee(t *testing.T) {
	keys := auth.IdentityKeys{}
	valid := auth.Seal([]byte("payload"), "facility_0", keys)
	invalid := valid
	invalid.Tag = auth.Sign([]byte("payload"), keys.Key("facility_1"))
	empty := auth.Seal(nil, "facility_0", keys)

	cases := []struct {
		desc     string
		size     int
		votes    auth.FixedVotes
		pkg      auth.SignedPackage
		approved bool
		noVotes  bool
	}{
		{
			desc:    "invalid mac rejected without votes",
			size:    5,
			votes:   auth.FixedVotes{true, true, true, true, true},
			pkg:     invalid,
			noVotes: true,
		},
		{
			desc:     "unanimous approval",
			size:     5,
			votes:    auth.FixedVotes{true, true, true, true, true},
			pkg:      valid,
			approved: true,
		},
		{
			desc:     "exact majority of five",
			size:     5,
			votes:    auth.FixedVotes{true, false, true, false, true},
			pkg:      valid,
			approved: true,
		},
		{
			desc:  "two of five",
			size:  5,
			votes: auth.FixedVotes{true, false, false, false, true},
			pkg:   valid,
		},
		{
			desc:  "half of four is not enough",
			size:  4,
			votes: auth.FixedVotes{true, true, false, false},
			pkg:   valid,
		},
		{
			desc:     "three of four",
			size:     4,
			votes:    auth.FixedVotes{true, true, true, false},
			pkg:      valid,
			approved: true,
		},
		{
			desc:     "single member",
			size:     1,
			votes:    auth.FixedVotes{true},
			pkg:      valid,
			approved: true,
		},
		{
			desc:  "empty payload",
			size:  3,
			votes: auth.FixedVotes{true, true, true},
			pkg:   empty,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			c, err := auth.NewCommittee(tc.size, tc.votes, keys)
			require.NoError(t, err)

			d := c.Validate(tc.pkg)
			assert.Equal(t, tc.approved, d.Approved)
			if tc.noVotes {
				assert.Empty(t, d.Votes)
				assert.Empty(t, d.CoSignature)

				return
			}
			assert.Len(t, d.Votes, tc.size)
			if tc.approved {
				assert.GreaterOrEqual(t, d.Approvals(), tc.size/2+1)
				assert.True(t, c.VerifyCoSignature(tc.pkg.Payload, d.CoSignature))
				assert.False(t, c.VerifyCoSignature([]byte("other"), d.CoSignature))

				return
			}
			assert.Empty(t, d.CoSignature)
		})
	}

	_, err := auth.NewCommittee(0, auth.FixedVotes{}, keys)
	assert.ErrorIs(t, err, auth.ErrCommitteeSize)
}

func TestRandomVotes(t *testing.T) {
	always := auth.NewRandomVotes(1, rand.NewPCG(1, 1))
	never := auth.NewRandomVotes(0, rand.NewPCG(1, 1))
	for i := range 100 {
		assert.True(t, always.Vote(i))
		assert.False(t, never.Vote(i))
	}

	mostly := auth.NewRandomVotes(auth.DefaultApprovalRate, rand.NewPCG(2, 3))
	approvals := 0
	for i := range 10000 {
		if mostly.Vote(i) {
			approvals++
		}
	}
	assert.InDelta(t, 9500, approvals, 200)
}
