package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/sdk"
	"github.com/absmach/dpsshare/pkg/server"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/absmach/dpsshare/pkg/tracing"
	"github.com/absmach/dpsshare/regional"
	"github.com/absmach/dpsshare/regional/api"
	"github.com/absmach/dpsshare/regional/middleware"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "regional"
	defHTTPPort   = "9200"
	envPrefixHTTP = "DPSSHARE_REGIONAL_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel      string        `env:"DPSSHARE_REGIONAL_LOG_LEVEL"      envDefault:"info"`
	InstanceID    string        `env:"DPSSHARE_REGIONAL_INSTANCE_ID"`
	ID            string        `env:"DPSSHARE_REGIONAL_ID"             envDefault:"fog_0"`
	Index         int           `env:"DPSSHARE_REGIONAL_SHARE_INDEX"    envDefault:"1"`
	Facilities    int           `env:"DPSSHARE_REGIONAL_FACILITIES"     envDefault:"3"`
	Scheme        string        `env:"DPSSHARE_REGIONAL_SCHEME"         envDefault:"additive"`
	Difficulty    int           `env:"DPSSHARE_REGIONAL_POW_DIFFICULTY" envDefault:"4"`
	CommitteeSize int           `env:"DPSSHARE_REGIONAL_COMMITTEE_SIZE" envDefault:"5"`
	ApprovalRate  float64       `env:"DPSSHARE_REGIONAL_APPROVAL_RATE"  envDefault:"0.95"`
	KeySecret     string        `env:"DPSSHARE_REGIONAL_KEY_SECRET"`
	GlobalURL     string        `env:"DPSSHARE_REGIONAL_GLOBAL_URL"     envDefault:"http://localhost:9300"`
	Workers       int           `env:"DPSSHARE_REGIONAL_WORKERS"        envDefault:"4"`
	ClientTimeout time.Duration `env:"DPSSHARE_REGIONAL_CLIENT_TIMEOUT" envDefault:"30s"`
	OTELURL       url.URL       `env:"DPSSHARE_REGIONAL_OTEL_URL"`
	TraceRatio    float64       `env:"DPSSHARE_REGIONAL_TRACE_RATIO"    envDefault:"0"`
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

	keys := auth.NewKeyDerivation(cfg.KeySecret)
	committee, err := auth.NewCommittee(cfg.CommitteeSize, auth.NewRandomVotes(cfg.ApprovalRate, nil), keys)
	if err != nil {
		logger.Error("failed to create validator committee", slog.String("error", err.Error()))

		return
	}

	pool := fl.NewPool(cfg.Workers)
	defer pool.Stop()

	svc, err := regional.NewService(
		regional.Config{
			ID:         cfg.ID,
			Index:      cfg.Index,
			Facilities: cfg.Facilities,
			Scheme:     sharing.Scheme(cfg.Scheme),
			Difficulty: cfg.Difficulty,
		},
		committee,
		keys,
		sdk.NewGlobal(cfg.GlobalURL, sdk.Config{Timeout: cfg.ClientTimeout}),
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
