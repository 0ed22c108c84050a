package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/facility/api"
	"github.com/absmach/dpsshare/facility/middleware"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/privacy"
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
	svcName       = "facility"
	defHTTPPort   = "9100"
	envPrefixHTTP = "DPSSHARE_FACILITY_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel       string            `env:"DPSSHARE_FACILITY_LOG_LEVEL"       envDefault:"info"`
	InstanceID     string            `env:"DPSSHARE_FACILITY_INSTANCE_ID"`
	ID             string            `env:"DPSSHARE_FACILITY_ID"              envDefault:"facility_0"`
	Attributes     map[string]string `env:"DPSSHARE_FACILITY_ATTRIBUTES"      envDefault:"role:hospital"`
	Rounds         int               `env:"DPSSHARE_FACILITY_ROUNDS"          envDefault:"3"`
	Difficulty     int               `env:"DPSSHARE_FACILITY_POW_DIFFICULTY"  envDefault:"4"`
	Epsilon        float64           `env:"DPSSHARE_FACILITY_EPSILON"         envDefault:"5"`
	Sensitivity    float64           `env:"DPSSHARE_FACILITY_SENSITIVITY"     envDefault:"0.01"`
	Scheme         string            `env:"DPSSHARE_FACILITY_SCHEME"          envDefault:"additive"`
	Threshold      int               `env:"DPSSHARE_FACILITY_THRESHOLD"       envDefault:"0"`
	KeySecret      string            `env:"DPSSHARE_FACILITY_KEY_SECRET"`
	AuthorityURL   string            `env:"DPSSHARE_FACILITY_AUTHORITY_URL"   envDefault:"http://localhost:9000"`
	GlobalURL      string            `env:"DPSSHARE_FACILITY_GLOBAL_URL"      envDefault:"http://localhost:9300"`
	RegionalURLs   []string          `env:"DPSSHARE_FACILITY_REGIONAL_URLS"   envDefault:"http://localhost:9200,http://localhost:9201" envSeparator:","`
	ClientTimeout  time.Duration     `env:"DPSSHARE_FACILITY_CLIENT_TIMEOUT"  envDefault:"30s"`
	TrainerURL     string            `env:"DPSSHARE_FACILITY_TRAINER_URL"`
	TrainerTimeout time.Duration     `env:"DPSSHARE_FACILITY_TRAINER_TIMEOUT" envDefault:"30m"`
	Features       int               `env:"DPSSHARE_FACILITY_FEATURES"        envDefault:"8"`
	TrainSamples   int               `env:"DPSSHARE_FACILITY_TRAIN_SAMPLES"   envDefault:"500"`
	TestSamples    int               `env:"DPSSHARE_FACILITY_TEST_SAMPLES"    envDefault:"200"`
	Epochs         int               `env:"DPSSHARE_FACILITY_EPOCHS"          envDefault:"20"`
	LearningRate   float64           `env:"DPSSHARE_FACILITY_LEARNING_RATE"   envDefault:"0.1"`
	DataSeed       uint64            `env:"DPSSHARE_FACILITY_DATA_SEED"       envDefault:"0"`
	OTELURL        url.URL           `env:"DPSSHARE_FACILITY_OTEL_URL"`
	TraceRatio     float64           `env:"DPSSHARE_FACILITY_TRACE_RATIO"     envDefault:"0"`
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

	engine, err := sharing.NewEngine(sharing.Config{
		Scheme:    sharing.Scheme(cfg.Scheme),
		Shares:    len(cfg.RegionalURLs),
		Threshold: cfg.Threshold,
	}, nil)
	if err != nil {
		logger.Error("failed to create secret sharing engine", slog.String("error", err.Error()))

		return
	}

	var trainer facility.Trainer
	switch cfg.TrainerURL {
	case "":
		trainer = facility.NewLinearTrainer(facility.LinearConfig{
			Features:     cfg.Features,
			TrainSamples: cfg.TrainSamples,
			TestSamples:  cfg.TestSamples,
			Epochs:       cfg.Epochs,
			LearningRate: cfg.LearningRate,
			Seed:         cfg.DataSeed,
		})
	default:
		trainer = sdk.NewTrainer(cfg.TrainerURL, sdk.Config{Timeout: cfg.TrainerTimeout})
	}

	sdkCfg := sdk.Config{Timeout: cfg.ClientTimeout}
	pool := fl.NewPool(1)
	defer pool.Stop()

	svc, err := facility.NewService(
		facility.Config{
			ID:         cfg.ID,
			Attributes: cfg.Attributes,
			Rounds:     cfg.Rounds,
			Difficulty: cfg.Difficulty,
			Budget:     privacy.Budget{Epsilon: cfg.Epsilon, Sensitivity: cfg.Sensitivity},
		},
		trainer,
		engine,
		auth.NewKeyDerivation(cfg.KeySecret),
		sdk.NewAuthority(cfg.AuthorityURL, sdkCfg),
		sdk.NewGlobal(cfg.GlobalURL, sdkCfg),
		sdk.NewRegionals(cfg.RegionalURLs, sdkCfg),
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
