package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/weights"
)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    authority.Service
}

var _ authority.Service = (*loggingMiddleware)(nil)

func Logging(logger *slog.Logger, svc authority.Service) authority.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Setup(ctx context.Context, numFacilities int) (pk string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("facilities", numFacilities),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Setup failed", args...)

			return
		}
		args = append(args, slog.String("public_key", pk))
		lm.logger.Info("Setup completed successfully", args...)
	}(time.Now())

	return lm.svc.Setup(ctx, numFacilities)
}

func (lm *loggingMiddleware) Register(ctx context.Context, identity string, nonce uint64, attrs abe.Attributes) (sk string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("facility",
				slog.String("id", identity),
				slog.Uint64("nonce", nonce),
				slog.Any("attributes", attrs),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register facility failed", args...)

			return
		}
		lm.logger.Info("Register facility completed successfully", args...)
	}(time.Now())

	return lm.svc.Register(ctx, identity, nonce, attrs)
}

func (lm *loggingMiddleware) EncryptModel(ctx context.Context, w weights.Set, policy abe.Policy) (em abe.EncryptedModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("layers", len(w)),
			slog.Int("params", w.NumParams()),
			slog.Any("policy", policy),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Encrypt model failed", args...)

			return
		}
		args = append(args, slog.Int("ciphertext_bytes", len(em.Ciphertext)))
		lm.logger.Info("Encrypt model completed successfully", args...)
	}(time.Now())

	return lm.svc.EncryptModel(ctx, w, policy)
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

func (lm *loggingMiddleware) Decrypt(ctx context.Context, identity string) (w weights.Set, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("facility_id", identity),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Decrypt model failed", args...)

			return
		}
		lm.logger.Info("Decrypt model completed successfully", args...)
	}(time.Now())

	return lm.svc.Decrypt(ctx, identity)
}

func (lm *loggingMiddleware) ViewFacility(ctx context.Context, identity string) (f authority.Facility, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("facility_id", identity),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("View facility failed", args...)

			return
		}
		lm.logger.Info("View facility completed successfully", args...)
	}(time.Now())

	return lm.svc.ViewFacility(ctx, identity)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (st authority.Status, err error) {
	defer func(begin time.Time) {
		if err != nil {
			lm.logger.Warn("Get status failed", slog.String("duration", time.Since(begin).String()), slog.Any("error", err))
		}
	}(time.Now())

	return lm.svc.Status(ctx)
}
