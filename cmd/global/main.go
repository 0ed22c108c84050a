package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/absmach/dpsshare/global"
	"github.com/absmach/dpsshare/global/api"
	"github.com/absmach/dpsshare/global/middleware"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/pkg/server"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/absmach/dpsshare/pkg/tracing"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "global"
	defHTTPPort   = "9300"
	envPrefixHTTP = "DPSSHARE_GLOBAL_HTTP_"
	envPrefixMQTT = "DPSSHARE_GLOBAL_MQTT_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel      string            `env:"DPSSHARE_GLOBAL_LOG_LEVEL"      envDefault:"info"`
	InstanceID    string            `env:"DPSSHARE_GLOBAL_INSTANCE_ID"`
	Regionals     []string          `env:"DPSSHARE_GLOBAL_REGIONALS"      envDefault:"fog_0,fog_1" envSeparator:","`
	FacilityURLs  map[string]string `env:"DPSSHARE_GLOBAL_FACILITY_URLS"  envDefault:"facility_0=http://localhost:9100" envKeyValSeparator:"="`
	Scheme        string            `env:"DPSSHARE_GLOBAL_SCHEME"         envDefault:"additive"`
	Threshold     int               `env:"DPSSHARE_GLOBAL_THRESHOLD"      envDefault:"0"`
	KeySecret     string            `env:"DPSSHARE_GLOBAL_KEY_SECRET"`
	AuthorityURL  string            `env:"DPSSHARE_GLOBAL_AUTHORITY_URL"  envDefault:"http://localhost:9000"`
	Workers       int               `env:"DPSSHARE_GLOBAL_WORKERS"        envDefault:"1"`
	ClientTimeout time.Duration     `env:"DPSSHARE_GLOBAL_CLIENT_TIMEOUT" envDefault:"30s"`
	OTELURL       url.URL           `env:"DPSSHARE_GLOBAL_OTEL_URL"`
	TraceRatio    float64           `env:"DPSSHARE_GLOBAL_TRACE_RATIO"    envDefault:"0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	tp, err := tracing.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
	if err != nil {
		logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("error shutting down tracer provider", slog.Any("error", err))
		}
	}()
	tracer := tp.Tracer(svcName)

	mqttCfg := mqtt.Config{}
	if err := env.ParseWithOptions(&mqttCfg, env.Options{Prefix: envPrefixMQTT}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s MQTT configuration : %s", svcName, err.Error()))

		return
	}
	var pubsub mqtt.PubSub
	if mqttCfg.URL != "" {
		pubsub, err = mqtt.NewPubSub(mqttCfg, svcName+"-"+cfg.InstanceID, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect mqtt client", slog.Any("error", err))
			}
		}()
	}

	engine, err := sharing.NewEngine(sharing.Config{
		Scheme:    sharing.Scheme(cfg.Scheme),
		Shares:    len(cfg.Regionals),
		Threshold: cfg.Threshold,
	}, nil)
	if err != nil {
		logger.Error("failed to create secret sharing engine", slog.String("error", err.Error()))

		return
	}

	pool := fl.NewPool(cfg.Workers)
	defer pool.Stop()

	sdkCfg := sdk.Config{Timeout: cfg.ClientTimeout}
	svc, err := global.NewService(
		global.Config{
			Regionals:  cfg.Regionals,
			Facilities: slices.Sorted(maps.Keys(cfg.FacilityURLs)),
		},
		engine,
		auth.NewKeyDerivation(cfg.KeySecret),
		sdk.NewAuthority(cfg.AuthorityURL, sdkCfg),
		sdk.NewFacilities(cfg.FacilityURLs, sdkCfg),
		pubsub,
		pool,
		prometheus.MakeProtocolMetrics(svcName, "protocol"),
		logger,
	)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to create %s service: %s", svcName, err))

		return
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := server.NewHTTPServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}
}
