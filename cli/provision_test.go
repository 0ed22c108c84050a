package cli

import (
	"strings"
	"testing"

	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTopology(t *testing.T) {
	cases := []struct {
		desc      string
		mutate    func(*provisionInput)
		regionals int
		threshold int
		err       bool
	}{
		{
			desc:      "defaults",
			mutate:    func(*provisionInput) {},
			regionals: 3,
		},
		{
			desc: "shamir picks a majority threshold",
			mutate: func(in *provisionInput) {
				in.Scheme = string(sharing.Shamir)
				in.Regionals = "5"
			},
			regionals: 5,
			threshold: 3,
		},
		{
			desc: "explicit shamir threshold",
			mutate: func(in *provisionInput) {
				in.Scheme = string(sharing.Shamir)
				in.Threshold = "2"
			},
			regionals: 3,
			threshold: 2,
		},
		{
			desc:   "threshold above regionals",
			mutate: func(in *provisionInput) { in.Scheme, in.Threshold = string(sharing.Shamir), "4" },
			err:    true,
		},
		{
			desc:   "single regional",
			mutate: func(in *provisionInput) { in.Regionals = "1" },
			err:    true,
		},
		{
			desc:   "non numeric facilities",
			mutate: func(in *provisionInput) { in.Facilities = "many" },
			err:    true,
		},
		{
			desc:   "zero epsilon",
			mutate: func(in *provisionInput) { in.Epsilon = "0" },
			err:    true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			in := defaultInput()
			tc.mutate(&in)
			cfg, err := buildTopology(in)
			if tc.err {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Len(t, cfg.Regionals, tc.regionals)
			assert.Equal(t, tc.threshold, cfg.Protocol.Threshold)
			assert.Len(t, cfg.Facilities, 3)
			assert.NotEmpty(t, cfg.Name)
		})
	}
}

func TestEnvFiles(t *testing.T) {
	in := defaultInput()
	in.Facilities = "2"
	in.Regionals = "2"
	cfg, err := buildTopology(in)
	require.NoError(t, err)

	files, err := envFiles(cfg, "s3cr3t")
	require.NoError(t, err)
	assert.Len(t, files, 6)

	global := files["global.env"]
	assert.Contains(t, global, "DPSSHARE_GLOBAL_REGIONALS=fog_0,fog_1\n")
	assert.Contains(t, global, "DPSSHARE_GLOBAL_FACILITY_URLS=facility_0=http://localhost:9100,facility_1=http://localhost:9101\n")
	assert.Contains(t, global, "DPSSHARE_GLOBAL_HTTP_PORT=9300\n")

	fog := files["fog_1.env"]
	assert.Contains(t, fog, "DPSSHARE_REGIONAL_SHARE_INDEX=2\n")
	assert.Contains(t, fog, "DPSSHARE_REGIONAL_HTTP_PORT=9201\n")
	assert.Contains(t, fog, "DPSSHARE_REGIONAL_KEY_SECRET=s3cr3t\n")

	facility := files["facility_0.env"]
	assert.Contains(t, facility, "DPSSHARE_FACILITY_ATTRIBUTES=role:hospital\n")
	assert.Contains(t, facility, "DPSSHARE_FACILITY_REGIONAL_URLS=http://localhost:9200,http://localhost:9201\n")
	assert.True(t, strings.HasPrefix(facility, "# DPSShare facility_0 configuration"))

	assert.Contains(t, files["authority.env"], "DPSSHARE_AUTHORITY_HTTP_PORT=9000\n")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, positiveInt("3"))
	assert.Error(t, positiveInt("0"))
	assert.NoError(t, shareCount("2"))
	assert.Error(t, shareCount("1"))
	assert.NoError(t, nonNegativeInt("0"))
	assert.Error(t, nonNegativeInt("-1"))
	assert.NoError(t, positiveFloat("0.5"))
	assert.Error(t, positiveFloat("abc"))
}
