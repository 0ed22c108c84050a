package sharing

import (
	"math/rand/v2"

	"github.com/absmach/dpsshare/pkg/weights"
	"gonum.org/v1/gonum/stat/distuv"
)

// AdditiveSigma is the standard deviation of the random additive shares.
const AdditiveSigma = 0.01

// AdditiveSplit splits secret into k shares. The first k-1 shares are
// Gaussian noise and the last one is the secret minus their sum.
func AdditiveSplit(secret weights.Set, k int, src rand.Source) ([]Share, error) {
	if k < MinShares {
		return nil, ErrShareCount
	}
	if err := secret.Validate(); err != nil {
		return nil, err
	}

	noise := distuv.Normal{Mu: 0, Sigma: AdditiveSigma, Src: src}
	last := secret.Clone()
	shares := make([]Share, k)
	for i := range k - 1 {
		data := weights.ZerosLike(secret)
		for _, l := range data {
			for j := range l.Data {
				l.Data[j] = noise.Rand()
			}
		}
		if err := last.SubInPlace(data); err != nil {
			return nil, err
		}
		shares[i] = Share{Index: i + 1, Scheme: Additive, Data: data}
	}
	shares[k-1] = Share{Index: k, Scheme: Additive, Data: last}

	return shares, nil
}

// AdditiveReconstruct sums the shares. The caller supplies the complete set.
func AdditiveReconstruct(shares []Share) (weights.Set, error) {
	if err := checkShares(shares, Additive); err != nil {
		return nil, err
	}

	sets := make([]weights.Set, len(shares))
	for i, s := range shares {
		sets[i] = s.Data
	}

	return weights.Sum(sets...)
}
