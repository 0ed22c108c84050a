package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/regional"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    regional.Service
}

var _ regional.Service = (*loggingMiddleware)(nil)

func Logging(logger *slog.Logger, svc regional.Service) regional.Service {
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
			lm.logger.Warn("Receive share failed", args...)

			return
		}
		lm.logger.Info("Receive share completed successfully", args...)
	}(time.Now())

	return lm.svc.Receive(ctx, pkg)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (st regional.Status, err error) {
	defer func(begin time.Time) {
		if err != nil {
			lm.logger.Warn("Get status failed", slog.String("duration", time.Since(begin).String()), slog.Any("error", err))
		}
	}(time.Now())

	return lm.svc.Status(ctx)
}
