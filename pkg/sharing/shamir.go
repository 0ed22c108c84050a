package sharing

import (
	"math/rand/v2"

	"github.com/absmach/dpsshare/pkg/weights"
	"gonum.org/v1/gonum/stat/distuv"
)

// CoefficientBound bounds the random polynomial coefficients to [-bound, bound].
const CoefficientBound = 1.0

// ShamirSplit produces n shares of secret such that any t of them recover it.
// Every scalar gets its own polynomial of degree t-1 with the scalar as the
// constant term; share i holds the evaluations at x=i.
func ShamirSplit(secret weights.Set, t, n int, src rand.Source) ([]Share, error) {
	if n < MinShares {
		return nil, ErrShareCount
	}
	if t < MinShares || t > n {
		return nil, ErrThreshold
	}
	if err := secret.Validate(); err != nil {
		return nil, err
	}

	coef := distuv.Uniform{Min: -CoefficientBound, Max: CoefficientBound, Src: src}
	shares := make([]Share, n)
	for i := range shares {
		shares[i] = Share{Index: i + 1, Scheme: Shamir, Data: weights.ZerosLike(secret)}
	}

	poly := make([]float64, t)
	for li, l := range secret {
		for j, v := range l.Data {
			poly[0] = v
			for d := 1; d < t; d++ {
				poly[d] = coef.Rand()
			}
			for i := range shares {
				shares[i].Data[li].Data[j] = horner(poly, float64(i+1))
			}
		}
	}

	return shares, nil
}

// ShamirReconstruct interpolates the supplied points at x=0. It uses every
// share it is given; with fewer than the split threshold the result is not the
// secret.
func ShamirReconstruct(shares []Share) (weights.Set, error) {
	if err := checkShares(shares, Shamir); err != nil {
		return nil, err
	}

	out := weights.ZerosLike(shares[0].Data)
	for j, s := range shares {
		if err := out.AddScaledInPlace(lagrangeAtZero(shares, j), s.Data); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func lagrangeAtZero(shares []Share, j int) float64 {
	xj := float64(shares[j].Index)
	basis := 1.0
	for m, s := range shares {
		if m == j {
			continue
		}
		xm := float64(s.Index)
		basis *= xm / (xm - xj)
	}

	return basis
}

func horner(poly []float64, x float64) float64 {
	y := 0.0
	for d := len(poly) - 1; d >= 0; d-- {
		y = y*x + poly[d]
	}

	return y
}
