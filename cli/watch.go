package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/absmach/dpsshare/global"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewWatchCmd() *cobra.Command {
	cfg := mqtt.Config{
		URL:     "tcp://localhost:1883",
		QoS:     1,
		Timeout: 30 * time.Second,
	}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch rounds",
		Long:  `Print every round announced by the global aggregator until interrupted.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			ps, err := mqtt.NewPubSub(cfg, "dpsshare-cli-"+uuid.NewString(), logger)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			defer func() {
				if err := ps.Disconnect(context.Background()); err != nil {
					logErrorCmd(*cmd, err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := func(_ string, payload []byte) error {
				var ev global.RoundEvent
				if err := json.Unmarshal(payload, &ev); err != nil {
					return err
				}
				logJSONCmd(*cmd, ev)

				return nil
			}
			if err := ps.Subscribe(ctx, mqtt.RoundsTopic, handler); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logSuccessCmd(*cmd, "Watching "+mqtt.RoundsTopic)

			<-ctx.Done()

			if err := ps.Unsubscribe(context.Background(), mqtt.RoundsTopic); err != nil {
				logErrorCmd(*cmd, err)
			}
		},
	}

	cmd.Flags().StringVarP(&cfg.URL, "mqtt-url", "m", cfg.URL, "MQTT broker address")
	cmd.Flags().Uint8VarP(&cfg.QoS, "mqtt-qos", "q", cfg.QoS, "MQTT QoS")
	cmd.Flags().DurationVarP(&cfg.Timeout, "mqtt-timeout", "o", cfg.Timeout, "MQTT timeout")
	cmd.Flags().StringVar(&cfg.Username, "mqtt-username", "", "MQTT username")
	cmd.Flags().StringVar(&cfg.Password, "mqtt-password", "", "MQTT password")

	return cmd
}
