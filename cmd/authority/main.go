package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/authority/api"
	"github.com/absmach/dpsshare/authority/middleware"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/server"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/pkg/tracing"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	svcName          = "authority"
	defHTTPPort      = "9000"
	envPrefixHTTP    = "DPSSHARE_AUTHORITY_HTTP_"
	envPrefixStorage = "DPSSHARE_AUTHORITY_STORAGE_"
	pathEnv          = ".env"
)

type envConfig struct {
	LogLevel      string  `env:"DPSSHARE_AUTHORITY_LOG_LEVEL"      envDefault:"info"`
	InstanceID    string  `env:"DPSSHARE_AUTHORITY_INSTANCE_ID"`
	Difficulty    int     `env:"DPSSHARE_AUTHORITY_POW_DIFFICULTY" envDefault:"4"`
	SecurityParam int     `env:"DPSSHARE_AUTHORITY_SECURITY_PARAM" envDefault:"128"`
	Seed          string  `env:"DPSSHARE_AUTHORITY_SEED"`
	OTELURL       url.URL `env:"DPSSHARE_AUTHORITY_OTEL_URL"`
	TraceRatio    float64 `env:"DPSSHARE_AUTHORITY_TRACE_RATIO"    envDefault:"0"`
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

	storageCfg := storage.Config{}
	if err := env.ParseWithOptions(&storageCfg, env.Options{Prefix: envPrefixStorage}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s storage configuration : %s", svcName, err.Error()))

		return
	}
	registry, closer, err := storage.New[authority.Facility](storageCfg)
	if err != nil {
		logger.Error("failed to initialize facility registry", slog.String("error", err.Error()))

		return
	}
	if closer != nil {
		defer closer.Close()
	}

	svc := authority.NewService(
		authority.Config{
			Difficulty:    cfg.Difficulty,
			SecurityParam: cfg.SecurityParam,
			Seed:          cfg.Seed,
		},
		registry,
		logger,
	)
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
