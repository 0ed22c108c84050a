// Package privacy perturbs weight sets with differential privacy noise.
package privacy

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/absmach/dpsshare/pkg/weights"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultEpsilon     = 5.0
	DefaultSensitivity = 0.01
)

var ErrInvalidBudget = errors.New("epsilon must be positive and sensitivity non-negative")

type Budget struct {
	Epsilon     float64
	Sensitivity float64
}

func (b Budget) Validate() error {
	if b.Epsilon <= 0 || b.Sensitivity < 0 {
		return fmt.Errorf("%w: epsilon=%g sensitivity=%g", ErrInvalidBudget, b.Epsilon, b.Sensitivity)
	}

	return nil
}

// Scale is the Laplace scale parameter b = sensitivity / epsilon.
func (b Budget) Scale() float64 {
	return b.Sensitivity / b.Epsilon
}

// AddNoise returns a copy of w with independent Laplace(0, sensitivity/epsilon)
// noise added to every element. A nil src draws from the global source.
func AddNoise(w weights.Set, b Budget, src rand.Source) (weights.Set, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	out := w.Clone()
	if b.Sensitivity == 0 {
		return out, nil
	}

	noise := distuv.Laplace{Mu: 0, Scale: b.Scale(), Src: src}
	for _, l := range out {
		for i := range l.Data {
			l.Data[i] += noise.Rand()
		}
	}

	return out, nil
}
