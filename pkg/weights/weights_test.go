package weights_test

import (
	"testing"

	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() weights.Set {
	return weights.Set{
		{Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}},
		{Shape: []int{2}, Data: []float64{0.5, -0.5}},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		desc string
		set  weights.Set
		err  error
	}{
		{
			desc: "valid set",
			set:  sample(),
		},
		{
			desc: "empty set",
			set:  weights.Set{},
			err:  weights.ErrEmpty,
		},
		{
			desc: "data shorter than shape",
			set:  weights.Set{{Shape: []int{3}, Data: []float64{1, 2}}},
			err:  weights.ErrInvalidLayer,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.set.Validate()
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := sample()
	b := sample()

	sum, err := weights.Sum(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6, 8}, sum[0].Data)
	assert.Equal(t, []float64{1, -1}, sum[1].Data)
	assert.Equal(t, []float64{1, 2, 3, 4}, a[0].Data, "inputs must not be mutated")

	require.NoError(t, sum.SubInPlace(a))
	assert.True(t, sum.EqualApprox(b, 1e-12))

	sum.ScaleInPlace(2)
	assert.Equal(t, []float64{2, 4, 6, 8}, sum[0].Data)

	require.NoError(t, sum.AddScaledInPlace(-2, a))
	assert.True(t, sum.EqualApprox(weights.ZerosLike(a), 1e-12))

	other := weights.Set{{Shape: []int{4}, Data: []float64{1, 2, 3, 4}}}
	assert.ErrorIs(t, a.AddInPlace(other), weights.ErrShapeMismatch)
	assert.Equal(t, 6, a.NumParams())
}

func TestCodec(t *testing.T) {
	data, err := weights.Marshal(sample())
	require.NoError(t, err)

	got, err := weights.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)

	_, err = weights.Unmarshal([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestFloat32Boundary(t *testing.T) {
	s := sample()
	f32 := s.Float32()
	require.Len(t, f32, 2)
	assert.Equal(t, []float32{1, 2, 3, 4}, f32[0])

	back, err := weights.FromFloat32(s, f32)
	require.NoError(t, err)
	assert.True(t, back.EqualApprox(s, 1e-6))

	_, err = weights.FromFloat32(s, f32[:1])
	assert.ErrorIs(t, err, weights.ErrShapeMismatch)
}
