package cli

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/absmach/dpsshare"
	"github.com/absmach/dpsshare/authority"
	authapi "github.com/absmach/dpsshare/authority/api"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roleStub answers /start with status once the first failures calls have
// been answered with 503.
type roleStub struct {
	mu       sync.Mutex
	started  int
	failures int
	status   int
}

func (r *roleStub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusOK)
	case "/start":
		r.mu.Lock()
		r.started++
		status := r.status
		if r.started <= r.failures {
			status = http.StatusServiceUnavailable
		}
		r.mu.Unlock()
		w.WriteHeader(status)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (r *roleStub) starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.started
}

func serve(t *testing.T, h http.Handler) string {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return ts.URL
}

func TestBootstrap(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	hospitals := map[string]string{"role": "hospital"}

	cases := []struct {
		desc        string
		startStatus int
		failures    int
		policy      map[string]string
		publish     bool
		starts      int
		err         bool
	}{
		{
			desc:        "publish model and start",
			startStatus: http.StatusAccepted,
			policy:      hospitals,
			publish:     true,
			starts:      1,
		},
		{
			desc:        "publish model with an open policy",
			startStatus: http.StatusAccepted,
			publish:     true,
			starts:      1,
		},
		{
			desc:        "start without model",
			startStatus: http.StatusAccepted,
			policy:      hospitals,
			starts:      1,
		},
		{
			desc:        "facility recovers after a transient failure",
			startStatus: http.StatusAccepted,
			failures:    1,
			policy:      hospitals,
			starts:      2,
		},
		{
			desc:        "facility refuses to start",
			startStatus: http.StatusConflict,
			policy:      hospitals,
			err:         true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ta := authority.NewService(authority.Config{Difficulty: 1, Seed: "cli"}, storage.NewInMemoryStorage[authority.Facility](), logger)
			other := &roleStub{status: http.StatusAccepted}
			facilities := []*roleStub{
				{status: tc.startStatus, failures: tc.failures},
				{status: tc.startStatus, failures: tc.failures},
			}

			cfg := &dpsshare.Config{
				Authority: serve(t, authapi.MakeHandler(ta, logger, "test")),
				Global:    serve(t, other),
				Regionals: []dpsshare.Node{
					{ID: "fog_0", URL: serve(t, other)},
					{ID: "fog_1", URL: serve(t, other)},
				},
				Facilities: []dpsshare.FacilityNode{
					{ID: "facility_0", URL: serve(t, facilities[0])},
					{ID: "facility_1", URL: serve(t, facilities[1])},
				},
				Protocol: dpsshare.ProtocolConfig{Scheme: "additive", Rounds: 1, Epsilon: 1},
				Model:    dpsshare.ModelConfig{Features: 4, Policy: tc.policy},
			}
			require.NoError(t, cfg.Validate())

			res, err := bootstrap(context.Background(), cfg, tc.publish)
			if tc.err {
				assert.Error(t, err)
				for _, f := range facilities {
					assert.LessOrEqual(t, f.starts(), 1, "a refused start is not repeated")
				}

				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, res.PublicKey)
			assert.Equal(t, tc.publish, res.Encrypted)
			assert.Equal(t, []string{"facility_0", "facility_1"}, res.Started)
			for _, f := range facilities {
				assert.Equal(t, tc.starts, f.starts())
			}

			em, err := ta.EncryptedModel(context.Background())
			if !tc.publish {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tc.policy), len(em.Policy))
		})
	}
}
