package cli

import (
	"encoding/hex"

	"github.com/absmach/dpsshare/pkg/auth"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/spf13/cobra"
)

type powResult struct {
	Identity   string `json:"identity"`
	Difficulty int    `json:"difficulty"`
	Nonce      uint64 `json:"nonce"`
	Digest     string `json:"digest"`
}

type keyResult struct {
	Identity string `json:"identity"`
	Key      string `json:"key"`
}

func NewPoWCmd() *cobra.Command {
	difficulty := auth.DefaultDifficulty

	cmd := &cobra.Command{
		Use:   "pow [compute|verify]",
		Short: "Proof of work",
		Long:  `Compute or verify the proof-of-work nonce of an identity.`,
	}

	computeCmd := &cobra.Command{
		Use:   "compute <identity>",
		Short: "Compute nonce",
		Long:  `Search the smallest nonce whose digest meets the difficulty.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			nonce, err := auth.ComputePoW(cmd.Context(), args[0], difficulty)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, powResult{
				Identity:   args[0],
				Difficulty: difficulty,
				Nonce:      nonce,
				Digest:     auth.PoWDigest(args[0], nonce),
			})
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <identity> <nonce>",
		Short: "Verify nonce",
		Long:  `Check a nonce against the difficulty.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			nonce, err := auth.ParseNonce(args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if !auth.VerifyPoW(args[0], nonce, difficulty) {
				logErrorCmd(*cmd, pkgerrors.ErrInvalidPoW)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd.PersistentFlags().IntVarP(&difficulty, "difficulty", "d", difficulty, "Leading hex zeros required")
	cmd.AddCommand(computeCmd, verifyCmd)

	return cmd
}

func NewKeysCmd() *cobra.Command {
	var (
		secret string
		fog    bool
	)

	cmd := &cobra.Command{
		Use:   "keys <identity>",
		Short: "Derive MAC key",
		Long: `Derive the message authentication key of an identity. Without a secret
the legacy identity derivation is used.

Examples:
  dpsshare-cli keys facility_0 --secret s3cr3t
  dpsshare-cli keys fog_1 --fog`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			identity := args[0]
			if fog {
				identity = auth.FogIdentity(identity)
			}
			key := auth.NewKeyDerivation(secret).Key(identity)
			logJSONCmd(*cmd, keyResult{Identity: identity, Key: hex.EncodeToString(key)})
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Deployment key secret")
	cmd.Flags().BoolVar(&fog, "fog", false, "Derive the key of a regional aggregator id")

	return cmd
}
