package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/dpsshare"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/absmach/supermq/pkg/errors"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	maxRetries  = 5
	backoffBase = 500 * time.Millisecond
	backoffCap  = 10 * time.Second
)

var (
	errUnhealthy     = errors.New("role is not healthy")
	errFailedSetup   = errors.New("failed to set up trusted authority")
	errFailedPublish = errors.New("failed to publish initial model")
	errFailedToStart = errors.New("failed to start facility")
)

type bootstrapResult struct {
	PublicKey string   `json:"public_key"`
	Encrypted bool     `json:"encrypted_model"`
	Started   []string `json:"started"`
	Regionals []string `json:"regionals"`
	Scheme    string   `json:"scheme"`
	Rounds    int      `json:"rounds"`
}

func NewBootstrapCmd() *cobra.Command {
	var skipModel bool

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap a federation",
		Long: `Wait for every role in the topology, set up the trusted authority,
publish the encrypted initial model and start every facility.

Examples:
  dpsshare-cli bootstrap
  dpsshare-cli bootstrap --config ./topology.toml --skip-model`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			cfg, err := loadTopology()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			res, err := bootstrap(cmd.Context(), cfg, !skipModel)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, fmt.Sprintf("Started %d facilities", len(res.Started)))
			logJSONCmd(*cmd, res)
		},
	}

	cmd.Flags().BoolVar(&skipModel, "skip-model", false, "Do not publish an encrypted initial model")

	return cmd
}

func bootstrap(ctx context.Context, cfg *dpsshare.Config, publishModel bool) (bootstrapResult, error) {
	urls := append([]string{cfg.Authority, cfg.Global}, cfg.RegionalURLs()...)
	for _, f := range cfg.Facilities {
		urls = append(urls, f.URL)
	}
	for _, u := range urls {
		if err := waitHealthy(ctx, u); err != nil {
			return bootstrapResult{}, errors.Wrap(errors.Wrap(errUnhealthy, errors.New(u)), err)
		}
	}

	ta := sdk.NewAuthority(cfg.Authority, sdkConf)
	pk, err := ta.Setup(ctx, len(cfg.Facilities))
	if err != nil {
		return bootstrapResult{}, errors.Wrap(errFailedSetup, err)
	}

	res := bootstrapResult{
		PublicKey: pk,
		Regionals: cfg.RegionalIDs(),
		Scheme:    cfg.Protocol.Scheme,
		Rounds:    cfg.Protocol.Rounds,
	}

	if publishModel {
		initial := weights.Set{
			weights.NewLayer(cfg.Model.Features),
			weights.NewLayer(1),
		}
		if _, err := ta.EncryptModel(ctx, initial, cfg.Policy()); err != nil {
			return bootstrapResult{}, errors.Wrap(errFailedPublish, err)
		}
		res.Encrypted = true
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range cfg.Facilities {
		g.Go(func() error {
			if err := startFacility(ctx, f.URL); err != nil {
				return errors.Wrap(errors.Wrap(errFailedToStart, errors.New(f.ID)), err)
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return bootstrapResult{}, err
	}
	res.Started = cfg.FacilityIDs()

	return res, nil
}

func backoff() (retry.Backoff, error) {
	b, err := retry.NewExponential(backoffBase)
	if err != nil {
		return nil, err
	}

	return retry.WithMaxRetries(maxRetries, retry.WithCappedDuration(backoffCap, b)), nil
}

func waitHealthy(ctx context.Context, url string) error {
	b, err := backoff()
	if err != nil {
		return err
	}

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := sdk.Health(ctx, url, sdkConf); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	})
}

// startFacility repeats the start request on transport and server errors.
// A facility that refuses, for example because it already runs, fails at once.
func startFacility(ctx context.Context, url string) error {
	b, err := backoff()
	if err != nil {
		return err
	}
	facility := sdk.NewFacility(url, sdkConf)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := facility.Start(ctx, nil)
		if sdk.Retryable(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}
