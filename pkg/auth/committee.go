package auth

import (
	"errors"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultCommitteeSize = 5
	// DefaultApprovalRate is the probability that a member approves a well formed package.
	DefaultApprovalRate = 0.95
)

var ErrCommitteeSize = errors.New("committee must have at least one member")

// VoteSource decides the vote of a committee member for a well formed package.
type VoteSource interface {
	Vote(member int) bool
}

// RandomVotes approves with a fixed probability. It is safe for concurrent use.
type RandomVotes struct {
	mu sync.Mutex
	b  distuv.Bernoulli
}

var _ VoteSource = (*RandomVotes)(nil)

func NewRandomVotes(p float64, src rand.Source) *RandomVotes {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &RandomVotes{b: distuv.Bernoulli{P: p, Src: src}}
}

func (r *RandomVotes) Vote(int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.b.Rand() == 1
}

// FixedVotes returns the configured vote per member and rejects for members
// beyond its length.
type FixedVotes []bool

var _ VoteSource = FixedVotes(nil)

func (f FixedVotes) Vote(member int) bool {
	return member < len(f) && f[member]
}

// Decision is the outcome of a committee validation.
type Decision struct {
	Approved bool
	Votes    []bool
	// CoSignature is set on approval and verifies with VerifyCoSignature.
	CoSignature string
}

func (d Decision) Approvals() int {
	n := 0
	for _, v := range d.Votes {
		if v {
			n++
		}
	}

	return n
}

// Committee approximates validator consensus over inbound packages.
type Committee struct {
	size  int
	votes VoteSource
	keys  KeyDerivation
}

func NewCommittee(size int, votes VoteSource, keys KeyDerivation) (*Committee, error) {
	if size < 1 {
		return nil, ErrCommitteeSize
	}

	return &Committee{size: size, votes: votes, keys: keys}, nil
}

func (c *Committee) Size() int {
	return c.size
}

// Quorum is the approval count needed, floor(m/2)+1.
func (c *Committee) Quorum() int {
	return c.size/2 + 1
}

// Validate rejects packages whose MAC does not verify without collecting votes.
// Otherwise every member votes and the package is approved on a strict majority.
func (c *Committee) Validate(p SignedPackage) Decision {
	if !p.Verify(c.keys) {
		return Decision{}
	}

	wellFormed := len(p.Payload) > 0 && p.Tag != ""
	votes := make([]bool, c.size)
	for i := range votes {
		votes[i] = wellFormed && c.votes.Vote(i)
	}

	d := Decision{Votes: votes}
	if d.Approvals() >= c.Quorum() {
		d.Approved = true
		d.CoSignature = Sign(p.Payload, c.keys.Key(CommitteeIdentity))
	}

	return d
}

func (c *Committee) VerifyCoSignature(payload []byte, coSignature string) bool {
	return Verify(payload, coSignature, c.keys.Key(CommitteeIdentity))
}
