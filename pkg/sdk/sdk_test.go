package sdk_test

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http/httptest"
	"testing"

	"github.com/absmach/dpsshare/authority"
	authapi "github.com/absmach/dpsshare/authority/api"
	"github.com/absmach/dpsshare/facility"
	facilityapi "github.com/absmach/dpsshare/facility/api"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/privacy"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/absmach/dpsshare/regional"
	regionalapi "github.com/absmach/dpsshare/regional/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const difficulty = 1

var logger = slog.New(slog.DiscardHandler)

func newAuthority(t *testing.T) *sdk.Authority {
	t.Helper()

	svc := authority.NewService(authority.Config{Difficulty: difficulty, Seed: "sdk"}, storage.NewInMemoryStorage[authority.Facility](), logger)
	ts := httptest.NewServer(authapi.MakeHandler(svc, logger, "test"))
	t.Cleanup(ts.Close)

	require.NoError(t, sdk.Health(context.Background(), ts.URL, sdk.Config{}))

	return sdk.NewAuthority(ts.URL, sdk.Config{})
}

func TestAuthority(t *testing.T) {
	ta := newAuthority(t)
	ctx := context.Background()

	_, err := ta.EncryptedModel(ctx)
	assert.ErrorIs(t, err, sdk.ErrUnexpectedStatus)

	pk, err := ta.Setup(ctx, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, pk)

	nonce, err := auth.ComputePoW(ctx, "facility_0", difficulty)
	require.NoError(t, err)
	sk, err := ta.Register(ctx, "facility_0", nonce, abe.Attributes{"role": "hospital"})
	require.NoError(t, err)
	assert.NotEmpty(t, sk)

	_, err = ta.Register(ctx, "", nonce, nil)
	assert.ErrorIs(t, err, sdk.ErrUnexpectedStatus)

	model := weights.Set{{Shape: []int{2}, Data: []float64{0.5, -0.5}}}
	em, err := ta.EncryptModel(ctx, model, abe.Policy{"role": "hospital"})
	require.NoError(t, err)
	assert.Equal(t, pk, em.PublicKey)

	fetched, err := ta.EncryptedModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, em, fetched)

	w, err := ta.Decrypt(ctx, "facility_0")
	require.NoError(t, err)
	assert.True(t, w.EqualApprox(model, 0))

	f, err := ta.ViewFacility(ctx, "facility_0")
	require.NoError(t, err)
	assert.Equal(t, "hospital", f.Attributes["role"])

	st, err := ta.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Initialized)
	assert.True(t, st.HasModel)
}

type discardSender struct{}

func (discardSender) SendShare(context.Context, int, auth.SignedPackage) error {
	return nil
}

func TestFacility(t *testing.T) {
	ta := newAuthority(t)
	ctx := context.Background()
	_, err := ta.Setup(ctx, 1)
	require.NoError(t, err)

	engine, err := sharing.NewEngine(sharing.Config{Scheme: sharing.Additive, Shares: 2}, rand.NewPCG(1, 1))
	require.NoError(t, err)
	svc, err := facility.NewService(
		facility.Config{ID: "facility_0", Rounds: 1, Difficulty: difficulty, Budget: privacy.Budget{Epsilon: 1, Sensitivity: 0.01}},
		facility.NewLinearTrainer(facility.LinearConfig{Features: 2, TrainSamples: 10, TestSamples: 10, Epochs: 1, LearningRate: 0.1}),
		engine,
		auth.IdentityKeys{},
		ta,
		ta,
		discardSender{},
		fl.Inline{},
		prometheus.DiscardProtocolMetrics(),
		logger,
	)
	require.NoError(t, err)
	ts := httptest.NewServer(facilityapi.MakeHandler(svc, logger, "test"))
	defer ts.Close()
	client := sdk.NewFacility(ts.URL, sdk.Config{})

	m := fl.GlobalModel{Weights: weights.Set{weights.NewLayer(2), weights.NewLayer(1)}}
	err = client.Receive(ctx, m)
	assert.ErrorIs(t, err, sdk.ErrUnexpectedStatus, "an idle facility rejects a global model")

	require.NoError(t, client.Start(ctx, weights.Set{weights.NewLayer(2), weights.NewLayer(1)}))
	assert.ErrorIs(t, client.Start(ctx, nil), sdk.ErrUnexpectedStatus)

	st, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(facility.AwaitingGlobal), st["state"])

	require.NoError(t, client.Receive(ctx, m))
	st, err = client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(facility.Finished), st["state"])
}

type recordingForwarder struct {
	pkgs []auth.SignedPackage
}

func (r *recordingForwarder) SendPartial(_ context.Context, pkg auth.SignedPackage) error {
	r.pkgs = append(r.pkgs, pkg)

	return nil
}

func TestRegionals(t *testing.T) {
	keys := auth.IdentityKeys{}
	committee, err := auth.NewCommittee(1, auth.FixedVotes{true}, keys)
	require.NoError(t, err)
	fwd := &recordingForwarder{}
	svc, err := regional.NewService(
		regional.Config{ID: "fog_0", Index: 1, Facilities: 1, Scheme: sharing.Additive, Difficulty: difficulty},
		committee, keys, fwd, fl.Inline{}, prometheus.DiscardProtocolMetrics(), logger,
	)
	require.NoError(t, err)
	ts := httptest.NewServer(regionalapi.MakeHandler(svc, logger, "test"))
	defer ts.Close()
	ctx := context.Background()
	client := sdk.NewRegionals([]string{ts.URL}, sdk.Config{})

	data, err := fl.Encode(fl.SharePayload{Scheme: sharing.Additive, Index: 1, NumSamples: 1, Share: weights.Set{weights.NewLayer(1)}})
	require.NoError(t, err)
	nonce, err := auth.ComputePoW(ctx, "facility_0", difficulty)
	require.NoError(t, err)

	assert.Error(t, client.SendShare(ctx, 1, auth.SignedPackage{}), "out of range position")
	require.NoError(t, client.SendShare(ctx, 0, auth.Seal(data, "facility_0", keys).WithNonce(nonce)))
	require.Len(t, fwd.pkgs, 1)

	st, err := client.Status(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st["round"])
}
