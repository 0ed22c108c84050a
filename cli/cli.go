// Package cli implements the dpsshare command line: provisioning a local
// topology, bootstrapping a federation and inspecting its roles.
package cli

import (
	"time"

	"github.com/absmach/dpsshare"
	"github.com/absmach/dpsshare/pkg/sdk"
)

const DefTopologyPath = "topology.toml"

var (
	topologyPath = DefTopologyPath
	sdkConf      = sdk.Config{Timeout: 30 * time.Second}
)

// SetTopologyPath sets the topology file read by every command.
func SetTopologyPath(path string) {
	topologyPath = path
}

// SetSDKConfig sets the client configuration used to reach the roles.
func SetSDKConfig(cfg sdk.Config) {
	sdkConf = cfg
}

func loadTopology() (*dpsshare.Config, error) {
	cfg, err := dpsshare.LoadConfig(topologyPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
