package privacy_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/absmach/dpsshare/pkg/privacy"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func zeros(n int) weights.Set {
	return weights.Set{weights.NewLayer(n)}
}

func TestAddNoise(t *testing.T) {
	cases := []struct {
		desc   string
		budget privacy.Budget
		err    error
	}{
		{
			desc:   "default budget",
			budget: privacy.Budget{Epsilon: privacy.DefaultEpsilon, Sensitivity: privacy.DefaultSensitivity},
		},
		{
			desc:   "strict budget",
			budget: privacy.Budget{Epsilon: 0.5, Sensitivity: 0.1},
		},
		{
			desc:   "zero epsilon",
			budget: privacy.Budget{Epsilon: 0, Sensitivity: 0.1},
			err:    privacy.ErrInvalidBudget,
		},
		{
			desc:   "negative sensitivity",
			budget: privacy.Budget{Epsilon: 1, Sensitivity: -1},
			err:    privacy.ErrInvalidBudget,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			in := zeros(20000)
			out, err := privacy.AddNoise(in, tc.budget, rand.NewPCG(1, 2))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.True(t, out.SameShape(in))
			assert.Zero(t, floats.Norm(in[0].Data, 2), "input must not be mutated")

			// Laplace(0, b) has standard deviation b*sqrt(2).
			mean, std := stat.MeanStdDev(out[0].Data, nil)
			want := tc.budget.Scale() * math.Sqrt2
			assert.InDelta(t, 0, mean, want/10)
			assert.InDelta(t, want, std, want/10)
		})
	}
}

func TestLargerEpsilonLessNoise(t *testing.T) {
	loose, err := privacy.AddNoise(zeros(5000), privacy.Budget{Epsilon: 10, Sensitivity: 0.01}, rand.NewPCG(9, 9))
	require.NoError(t, err)
	tight, err := privacy.AddNoise(zeros(5000), privacy.Budget{Epsilon: 0.1, Sensitivity: 0.01}, rand.NewPCG(9, 9))
	require.NoError(t, err)

	assert.Less(t, floats.Norm(loose[0].Data, 2), floats.Norm(tight[0].Data, 2))
}

func TestZeroSensitivity(t *testing.T) {
	in := weights.Set{{Shape: []int{2}, Data: []float64{1, 2}}}
	out, err := privacy.AddNoise(in, privacy.Budget{Epsilon: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
