package main

import (
	"log"
	"time"

	"github.com/absmach/dpsshare/cli"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	var (
		topologyPath    = cli.DefTopologyPath
		timeout         = 30 * time.Second
		tlsVerification = false
	)

	rootCmd := &cobra.Command{
		Use:   "dpsshare-cli",
		Short: "DPSShare CLI",
		Long:  `DPSShare CLI provisions, bootstraps and inspects a federated learning deployment.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			cli.SetTopologyPath(topologyPath)
			cli.SetSDKConfig(sdk.Config{
				TLSVerification: tlsVerification,
				Timeout:         timeout,
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&topologyPath, "config", "c", topologyPath, "Topology file")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", timeout, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&tlsVerification, "tls-verification", tlsVerification, "Verify server certificates")

	rootCmd.AddCommand(
		cli.NewProvisionCmd(),
		cli.NewBootstrapCmd(),
		cli.NewStatusCmd(),
		cli.NewModelsCmd(),
		cli.NewPoWCmd(),
		cli.NewKeysCmd(),
		cli.NewWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
