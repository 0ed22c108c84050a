package fl_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(v ...float64) weights.Set {
	return weights.Set{{Shape: []int{len(v)}, Data: v}}
}

func TestRoundStateQuorum(t *testing.T) {
	rs, err := fl.NewRoundState[int](3)
	require.NoError(t, err)

	_, ok := rs.Add("facility_0", 1)
	assert.False(t, ok)
	_, ok = rs.Add("facility_1", 2)
	assert.False(t, ok)

	_, ok = rs.Add("facility_1", 20)
	assert.False(t, ok, "duplicate sender must not count twice")
	assert.Equal(t, 2, rs.Pending())

	batch, ok := rs.Add("facility_2", 3)
	require.True(t, ok)
	assert.Equal(t, uint64(0), batch.Round)
	assert.Equal(t, map[string]int{"facility_0": 1, "facility_1": 20, "facility_2": 3}, batch.Entries)
	assert.Equal(t, []string{"facility_0", "facility_1", "facility_2"}, batch.Senders())
	assert.Equal(t, 0, rs.Pending())
	assert.Equal(t, uint64(1), rs.Round())

	_, err = fl.NewRoundState[int](0)
	assert.ErrorIs(t, err, fl.ErrInvalidQuorum)
}

func TestRoundStateAddTo(t *testing.T) {
	rs, err := fl.NewRoundState[int](2)
	require.NoError(t, err)

	_, ok, err := rs.AddTo(0, "fog_0", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = rs.AddTo(1, "fog_1", 2)
	assert.ErrorIs(t, err, fl.ErrRoundMismatch)
	assert.Equal(t, 1, rs.Pending())

	batch, ok, err := rs.AddTo(0, "fog_1", 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), batch.Round)

	_, _, err = rs.AddTo(0, "fog_0", 10)
	assert.ErrorIs(t, err, fl.ErrRoundMismatch, "entries for a closed round are rejected")
	assert.Zero(t, rs.Pending())

	_, ok, err = rs.AddTo(1, "fog_0", 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoundStateConcurrentAdds(t *testing.T) {
	const senders, rounds = 8, 50

	rs, err := fl.NewRoundState[int](senders)
	require.NoError(t, err)

	var batches atomic.Int64
	var wg sync.WaitGroup
	for r := range rounds {
		for s := range senders {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if b, ok := rs.Add(fmt.Sprintf("s%d-r%d", s, r), s); ok {
					assert.Len(t, b.Entries, senders)
					batches.Add(1)
				}
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, int64(rounds), batches.Load())
	assert.Equal(t, 0, rs.Pending())
}

func TestFedAvgAggregator(t *testing.T) {
	cases := []struct {
		desc    string
		updates []fl.Update
		want    weights.Set
		err     error
	}{
		{
			desc: "weighted by samples",
			updates: []fl.Update{
				{Sender: "a", NumSamples: 100, Weights: set(1, 2)},
				{Sender: "b", NumSamples: 300, Weights: set(5, 6)},
			},
			want: set(4, 5),
		},
		{
			desc: "no samples reported",
			updates: []fl.Update{
				{Sender: "a", Weights: set(1, 2)},
				{Sender: "b", Weights: set(3, 4)},
			},
			want: set(2, 3),
		},
		{
			desc: "no updates",
			err:  fl.ErrNoUpdates,
		},
		{
			desc: "shape mismatch",
			updates: []fl.Update{
				{Sender: "a", NumSamples: 1, Weights: set(1, 2)},
				{Sender: "b", NumSamples: 1, Weights: set(1, 2, 3)},
			},
			err: weights.ErrShapeMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := fl.NewFedAvgAggregator().Aggregate(tc.updates)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.True(t, got.EqualApprox(tc.want, 1e-12), "got %v", got)
		})
	}
}

func TestSumAggregator(t *testing.T) {
	got, err := fl.NewSumAggregator().Aggregate([]fl.Update{
		{Weights: set(1, 2)},
		{Weights: set(3, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, set(4, 6), got)

	_, err = fl.NewSumAggregator().Aggregate(nil)
	assert.ErrorIs(t, err, fl.ErrNoUpdates)
}

func TestPayloadCodec(t *testing.T) {
	share := fl.SharePayload{Round: 2, Scheme: sharing.Additive, Index: 1, NumSamples: 10, Share: set(1, 2)}
	data, err := fl.Encode(share)
	require.NoError(t, err)
	got, err := fl.DecodeShare(data)
	require.NoError(t, err)
	assert.Equal(t, share, got)

	bad, err := fl.Encode(fl.SharePayload{Index: 0, Share: set(1)})
	require.NoError(t, err)
	_, err = fl.DecodeShare(bad)
	assert.ErrorIs(t, err, fl.ErrMalformedPayload)

	_, err = fl.DecodePartial([]byte("garbage"))
	assert.ErrorIs(t, err, fl.ErrMalformedPayload)

	_, err = fl.DecodeGlobal(nil)
	assert.ErrorIs(t, err, fl.ErrMalformedPayload)
}

func TestPool(t *testing.T) {
	p := fl.NewPool(4)
	var n atomic.Int64
	for range 100 {
		p.Submit(func() { n.Add(1) })
	}
	p.Stop()
	assert.Equal(t, int64(100), n.Load())

	ran := false
	fl.Inline{}.Submit(func() { ran = true })
	assert.True(t, ran)
}
