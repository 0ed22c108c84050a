package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/absmach/dpsshare"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [authority|global|regionals|facilities]",
		Short: "Role status",
		Long:  `Show the status of every role in the topology, or of one tier.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			tier := ""
			if len(args) == 1 {
				tier = args[0]
			}

			cfg, err := loadTopology()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			st, err := collectStatus(cmd.Context(), cfg, tier)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, st)
		},
	}

	return cmd
}

func collectStatus(ctx context.Context, cfg *dpsshare.Config, tier string) (map[string]any, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]any)
	)
	set := func(key string, v any) {
		mu.Lock()
		out[key] = v
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	all := tier == ""
	matched := all

	if all || tier == "authority" {
		matched = true
		g.Go(func() error {
			st, err := sdk.NewAuthority(cfg.Authority, sdkConf).Status(ctx)
			if err != nil {
				return fmt.Errorf("authority: %w", err)
			}
			set("authority", st)

			return nil
		})
	}
	if all || tier == "global" {
		matched = true
		g.Go(func() error {
			st, err := sdk.NewGlobal(cfg.Global, sdkConf).Status(ctx)
			if err != nil {
				return fmt.Errorf("global: %w", err)
			}
			set("global", st)

			return nil
		})
	}
	if all || tier == "regionals" {
		matched = true
		regionals := sdk.NewRegionals(cfg.RegionalURLs(), sdkConf)
		for i, r := range cfg.Regionals {
			g.Go(func() error {
				st, err := regionals.Status(ctx, i)
				if err != nil {
					return fmt.Errorf("%s: %w", r.ID, err)
				}
				set(r.ID, st)

				return nil
			})
		}
	}
	if all || tier == "facilities" {
		matched = true
		for _, f := range cfg.Facilities {
			g.Go(func() error {
				st, err := sdk.NewFacility(f.URL, sdkConf).Status(ctx)
				if err != nil {
					return fmt.Errorf("%s: %w", f.ID, err)
				}
				set(f.ID, st)

				return nil
			})
		}
	}
	if !matched {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [global|encrypted|facility]",
		Short: "Model inspection",
		Long:  `Show the latest global model or the encrypted initial model.`,
	}

	globalCmd := &cobra.Command{
		Use:   "global",
		Short: "Latest global model",
		Long:  `Show the model of the last closed round.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := loadTopology()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			m, err := sdk.NewGlobal(cfg.Global, sdkConf).GlobalModel(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, m)
		},
	}

	encryptedCmd := &cobra.Command{
		Use:   "encrypted",
		Short: "Encrypted initial model",
		Long:  `Show the encrypted initial model published by the trusted authority.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := loadTopology()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			em, err := sdk.NewAuthority(cfg.Authority, sdkConf).EncryptedModel(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, em)
		},
	}

	viewFacilityCmd := &cobra.Command{
		Use:   "facility <id>",
		Short: "Registered facility",
		Long:  `Show the attributes a facility registered with the trusted authority.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			cfg, err := loadTopology()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			f, err := sdk.NewAuthority(cfg.Authority, sdkConf).ViewFacility(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, f)
		},
	}

	cmd.AddCommand(globalCmd, encryptedCmd, viewFacilityCmd)

	return cmd
}
