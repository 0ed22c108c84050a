// Package sharing splits weight sets into shares and reconstructs them.
//
// Two schemes are supported. Additive sharing needs every share back and
// reconstructs by summation. Shamir sharing evaluates a random polynomial per
// scalar and any threshold-sized subset of shares recovers the secret by
// Lagrange interpolation at zero. Both operate over float64, not a finite
// field, so the hiding guarantee is statistical.
package sharing

import (
	"errors"
	"fmt"
	"math/rand/v2"

	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/weights"
)

type Scheme string

const (
	Additive Scheme = "additive"
	Shamir   Scheme = "shamir"
)

var (
	ErrSchemeMismatch = pkgerrors.ErrSchemeMismatch
	ErrUnknownScheme  = errors.New("unknown secret sharing scheme")
	ErrShareCount     = errors.New("invalid number of shares")
	ErrThreshold      = errors.New("threshold must be between 2 and the number of shares")
	ErrDuplicateIndex = errors.New("duplicate share index")
	ErrInvalidIndex   = errors.New("share index must be positive")
)

func (s Scheme) Validate() error {
	switch s {
	case Additive, Shamir:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScheme, string(s))
	}
}

// Share is one fragment of a secret weight set. Index is 1-based and doubles
// as the evaluation point for Shamir shares.
type Share struct {
	Index  int         `cbor:"1,keyasint" json:"index"`
	Scheme Scheme      `cbor:"2,keyasint" json:"scheme"`
	Data   weights.Set `cbor:"3,keyasint" json:"data"`
}

type Config struct {
	Scheme Scheme
	// Shares is the number of shares produced per split, one per regional
	// aggregator.
	Shares int
	// Threshold is the Shamir reconstruction threshold. Ignored for additive sharing.
	Threshold int
}

// MinShares is the smallest share count and Shamir threshold. A single share
// equals the secret.
const MinShares = 2

func (c Config) Validate() error {
	if err := c.Scheme.Validate(); err != nil {
		return err
	}
	if c.Shares < MinShares {
		return fmt.Errorf("%w: %d, need at least %d", ErrShareCount, c.Shares, MinShares)
	}
	if c.Scheme == Shamir && (c.Threshold < MinShares || c.Threshold > c.Shares) {
		return fmt.Errorf("%w: t=%d n=%d", ErrThreshold, c.Threshold, c.Shares)
	}

	return nil
}

// Engine splits and reconstructs with a fixed configuration.
type Engine struct {
	cfg Config
	src rand.Source
}

// NewEngine returns an engine drawing randomness from src. A nil src uses a
// source seeded from the runtime.
func NewEngine(cfg Config, src rand.Source) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Engine{cfg: cfg, src: src}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Split(secret weights.Set) ([]Share, error) {
	switch e.cfg.Scheme {
	case Shamir:
		return ShamirSplit(secret, e.cfg.Threshold, e.cfg.Shares, e.src)
	default:
		return AdditiveSplit(secret, e.cfg.Shares, e.src)
	}
}

// Reconstruct recovers the secret. Additive reconstruction needs exactly the
// configured number of shares, Shamir reconstruction at least the threshold.
func (e *Engine) Reconstruct(shares []Share) (weights.Set, error) {
	for _, s := range shares {
		if s.Scheme != e.cfg.Scheme {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrSchemeMismatch, e.cfg.Scheme, s.Scheme)
		}
	}

	switch e.cfg.Scheme {
	case Shamir:
		if len(shares) < e.cfg.Threshold {
			return nil, fmt.Errorf("%w: need at least %d, got %d", ErrShareCount, e.cfg.Threshold, len(shares))
		}

		return ShamirReconstruct(shares)
	default:
		if len(shares) != e.cfg.Shares {
			return nil, fmt.Errorf("%w: need %d, got %d", ErrShareCount, e.cfg.Shares, len(shares))
		}

		return AdditiveReconstruct(shares)
	}
}

func checkShares(shares []Share, scheme Scheme) error {
	if len(shares) == 0 {
		return ErrShareCount
	}
	seen := make(map[int]struct{}, len(shares))
	for _, s := range shares {
		if s.Scheme != scheme {
			return ErrSchemeMismatch
		}
		if s.Index < 1 {
			return ErrInvalidIndex
		}
		if _, ok := seen[s.Index]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateIndex, s.Index)
		}
		seen[s.Index] = struct{}{}
		if !s.Data.SameShape(shares[0].Data) {
			return weights.ErrShapeMismatch
		}
	}

	return nil
}
