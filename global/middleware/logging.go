package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dpsshare/global"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    global.Service
}

var _ global.Service = (*loggingMiddleware)(nil)

func Logging(logger *slog.Logger, svc global.Service) global.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Receive(ctx context.Context, pkg auth.SignedPackage) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("package",
				slog.String("signer", pkg.Signer),
				slog.Int("payload_bytes", len(pkg.Payload)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Receive partial aggregate failed", args...)

			return
		}
		lm.logger.Info("Receive partial aggregate completed successfully", args...)
	}(time.Now())

	return lm.svc.Receive(ctx, pkg)
}

func (lm *loggingMiddleware) EncryptedModel(ctx context.Context) (em abe.EncryptedModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get encrypted model failed", args...)

			return
		}
		lm.logger.Info("Get encrypted model completed successfully", args...)
	}(time.Now())

	return lm.svc.EncryptedModel(ctx)
}

func (lm *loggingMiddleware) GlobalModel(ctx context.Context) (m fl.GlobalModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get global model failed", args...)

			return
		}
		args = append(args, slog.Uint64("round", m.Round))
		lm.logger.Info("Get global model completed successfully", args...)
	}(time.Now())

	return lm.svc.GlobalModel(ctx)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (st global.Status, err error) {
	defer func(begin time.Time) {
		if err != nil {
			lm.logger.Warn("Get status failed", slog.String("duration", time.Since(begin).String()), slog.Any("error", err))
		}
	}(time.Now())

	return lm.svc.Status(ctx)
}
