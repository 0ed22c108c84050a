package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/weights"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    facility.Service
}

var _ facility.Service = (*loggingMiddleware)(nil)

func Logging(logger *slog.Logger, svc facility.Service) facility.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Start(ctx context.Context, initial weights.Set) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Bool("initial_model", initial != nil),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Start facility failed", args...)

			return
		}
		lm.logger.Info("Start facility completed successfully", args...)
	}(time.Now())

	return lm.svc.Start(ctx, initial)
}

func (lm *loggingMiddleware) Receive(ctx context.Context, m fl.GlobalModel) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("global_model",
				slog.Uint64("round", m.Round),
				slog.Int("params", m.Weights.NumParams()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Receive global model failed", args...)

			return
		}
		lm.logger.Info("Receive global model completed successfully", args...)
	}(time.Now())

	return lm.svc.Receive(ctx, m)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (st facility.Status, err error) {
	defer func(begin time.Time) {
		if err != nil {
			lm.logger.Warn("Get status failed", slog.String("duration", time.Since(begin).String()), slog.Any("error", err))
		}
	}(time.Now())

	return lm.svc.Status(ctx)
}
