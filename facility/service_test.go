package facility_test

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/privacy"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	facilityID = "facility_0"
	difficulty = 1
	regionals  = 3
)

var (
	errUnavailable = errors.New("unavailable")
	attrs          = abe.Attributes{"role": "hospital"}
)

type stubTrainer struct {
	mu      sync.Mutex
	started []weights.Set
}

func (t *stubTrainer) Init(context.Context) (weights.Set, error) {
	return weights.Set{weights.NewLayer(2), weights.NewLayer(1)}, nil
}

// Train adds one to every parameter.
func (t *stubTrainer) Train(_ context.Context, w weights.Set) (facility.TrainResult, error) {
	t.mu.Lock()
	t.started = append(t.started, w.Clone())
	t.mu.Unlock()

	out := w.Clone()
	for _, l := range out {
		for i := range l.Data {
			l.Data[i]++
		}
	}

	return facility.TrainResult{Weights: out, NumSamples: 10, Metrics: facility.Metrics{Loss: 0.5, Accuracy: 0.75}}, nil
}

func (t *stubTrainer) Evaluate(context.Context, weights.Set) (facility.Metrics, error) {
	return facility.Metrics{Loss: 0.25, Accuracy: 0.9}, nil
}

type recorder struct {
	mu   sync.Mutex
	pkgs map[int]auth.SignedPackage
	fail bool
}

func (r *recorder) SendShare(_ context.Context, regional int, pkg auth.SignedPackage) error {
	if r.fail {
		return errUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pkgs == nil {
		r.pkgs = map[int]auth.SignedPackage{}
	}
	r.pkgs[regional] = pkg

	return nil
}

type failingAuthority struct{}

func (failingAuthority) Register(context.Context, string, uint64, abe.Attributes) (string, error) {
	return "", errUnavailable
}

func (failingAuthority) EncryptedModel(context.Context) (abe.EncryptedModel, error) {
	return abe.EncryptedModel{}, errUnavailable
}

func newAuthority(t *testing.T, initial weights.Set, policy abe.Policy) authority.Service {
	t.Helper()

	ta := authority.NewService(
		authority.Config{Difficulty: difficulty, Seed: "test"},
		storage.NewInMemoryStorage[authority.Facility](),
		slog.New(slog.DiscardHandler),
	)
	_, err := ta.Setup(context.Background(), 1)
	require.NoError(t, err)
	if initial != nil {
		_, err = ta.EncryptModel(context.Background(), initial, policy)
		require.NoError(t, err)
	}

	return ta
}

type deps struct {
	trainer *stubTrainer
	sender  *recorder
	ta      facility.Authority
	models  facility.ModelSource
	rounds  int
}

func newFacility(t *testing.T, d deps) facility.Service {
	t.Helper()

	engine, err := sharing.NewEngine(sharing.Config{Scheme: sharing.Additive, Shares: regionals}, rand.NewPCG(1, 2))
	require.NoError(t, err)
	svc, err := facility.NewService(
		facility.Config{
			ID:         facilityID,
			Attributes: attrs,
			Rounds:     d.rounds,
			Difficulty: difficulty,
			Budget:     privacy.Budget{Epsilon: 1, Sensitivity: 0},
		},
		d.trainer,
		engine,
		auth.IdentityKeys{},
		d.ta,
		d.models,
		d.sender,
		fl.Inline{},
		prometheus.DiscardProtocolMetrics(),
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, err)

	return svc
}

func reconstruct(t *testing.T, pkgs map[int]auth.SignedPackage) weights.Set {
	t.Helper()

	shares := make([]sharing.Share, 0, len(pkgs))
	for _, pkg := range pkgs {
		require.True(t, pkg.Verify(auth.IdentityKeys{}))
		require.True(t, pkg.VerifyPoW(difficulty))
		p, err := fl.DecodeShare(pkg.Payload)
		require.NoError(t, err)
		assert.Equal(t, 10, p.NumSamples)
		shares = append(shares, sharing.Share{Index: p.Index, Scheme: p.Scheme, Data: p.Share})
	}
	w, err := sharing.AdditiveReconstruct(shares)
	require.NoError(t, err)

	return w
}

func TestNewServiceConfig(t *testing.T) {
	cases := []struct {
		desc string
		cfg  facility.Config
	}{
		{desc: "empty id", cfg: facility.Config{Rounds: 1, Budget: privacy.Budget{Epsilon: 1}}},
		{desc: "no rounds", cfg: facility.Config{ID: facilityID, Budget: privacy.Budget{Epsilon: 1}}},
		{desc: "zero epsilon", cfg: facility.Config{ID: facilityID, Rounds: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := facility.NewService(tc.cfg, nil, nil, nil, nil, nil, nil, fl.Inline{}, prometheus.DiscardProtocolMetrics(), slog.New(slog.DiscardHandler))
			assert.Error(t, err)
		})
	}
}

func TestStartWithInitialWeights(t *testing.T) {
	d := deps{trainer: &stubTrainer{}, sender: &recorder{}, ta: failingAuthority{}, models: failingAuthority{}, rounds: 2}
	svc := newFacility(t, d)
	ctx := context.Background()

	initial := weights.Set{{Shape: []int{2}, Data: []float64{1, 2}}, {Shape: []int{1}, Data: []float64{3}}}
	require.NoError(t, svc.Start(ctx, initial))

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, facility.AwaitingGlobal, st.State)
	assert.False(t, st.Registered)
	assert.Equal(t, 0.75, st.Training.Accuracy)
	assert.Positive(t, st.Uploaded)

	require.Len(t, d.sender.pkgs, regionals)
	want := weights.Set{{Shape: []int{2}, Data: []float64{2, 3}}, {Shape: []int{1}, Data: []float64{4}}}
	assert.True(t, reconstruct(t, d.sender.pkgs).EqualApprox(want, 1e-9))

	err = svc.Start(ctx, nil)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState)
}

func TestStartFromEncryptedModel(t *testing.T) {
	initial := weights.Set{{Shape: []int{2}, Data: []float64{5, 6}}, {Shape: []int{1}, Data: []float64{7}}}

	cases := []struct {
		desc    string
		initial weights.Set
		policy  abe.Policy
		want    weights.Set
	}{
		{
			desc:    "policy satisfied",
			initial: initial,
			policy:  abe.Policy{"role": "hospital"},
			want:    initial,
		},
		{
			desc:    "policy not satisfied",
			initial: initial,
			policy:  abe.Policy{"role": "lab"},
			want:    weights.Set{weights.NewLayer(2), weights.NewLayer(1)},
		},
		{
			desc:    "architecture mismatch",
			initial: weights.Set{{Shape: []int{3}, Data: []float64{1, 2, 3}}},
			want:    weights.Set{weights.NewLayer(2), weights.NewLayer(1)},
		},
		{
			desc: "no model published",
			want: weights.Set{weights.NewLayer(2), weights.NewLayer(1)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ta := newAuthority(t, tc.initial, tc.policy)
			d := deps{trainer: &stubTrainer{}, sender: &recorder{}, ta: ta, models: ta, rounds: 1}
			svc := newFacility(t, d)

			require.NoError(t, svc.Start(context.Background(), nil))

			st, err := svc.Status(context.Background())
			require.NoError(t, err)
			assert.True(t, st.Registered)
			require.Len(t, d.trainer.started, 1)
			assert.True(t, d.trainer.started[0].EqualApprox(tc.want, 0))

			f, err := ta.ViewFacility(context.Background(), facilityID)
			require.NoError(t, err)
			assert.Equal(t, attrs, f.Attributes)
		})
	}
}

func TestReceive(t *testing.T) {
	d := deps{trainer: &stubTrainer{}, sender: &recorder{}, ta: failingAuthority{}, models: failingAuthority{}, rounds: 2}
	svc := newFacility(t, d)
	ctx := context.Background()
	global := fl.GlobalModel{Weights: weights.Set{{Shape: []int{2}, Data: []float64{0, 0}}, {Shape: []int{1}, Data: []float64{0}}}}

	err := svc.Receive(ctx, global)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState, "idle facility rejects a global model")

	require.NoError(t, svc.Start(ctx, nil))

	err = svc.Receive(ctx, fl.GlobalModel{Weights: weights.Set{{Shape: []int{2}, Data: []float64{1}}}})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidData)

	require.NoError(t, svc.Receive(ctx, global))
	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, facility.AwaitingGlobal, st.State)
	assert.Equal(t, uint64(1), st.Round)
	require.Len(t, d.trainer.started, 2)
	assert.True(t, d.trainer.started[1].EqualApprox(global.Weights, 0), "next round trains from the global model")

	global.Round = 1
	require.NoError(t, svc.Receive(ctx, global))
	st, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, facility.Finished, st.State)
	assert.Equal(t, uint64(2), st.Round)
	assert.Equal(t, 0.9, st.Evaluation.Accuracy)
	assert.Equal(t, int64(2*3*8), st.Downloaded)

	err = svc.Receive(ctx, global)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidState, "finished facility rejects further models")
}

func TestSendFailureKeepsAwaiting(t *testing.T) {
	d := deps{trainer: &stubTrainer{}, sender: &recorder{fail: true}, ta: failingAuthority{}, models: failingAuthority{}, rounds: 1}
	svc := newFacility(t, d)

	require.NoError(t, svc.Start(context.Background(), nil))

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, facility.AwaitingGlobal, st.State)
	assert.Zero(t, st.Uploaded)
}
