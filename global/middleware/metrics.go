package middleware

import (
	"context"
	"time"

	"github.com/absmach/dpsshare/global"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/go-kit/kit/metrics"
)

var _ global.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     global.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc global.Service) global.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Receive(ctx context.Context, pkg auth.SignedPackage) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "receive-partial").Add(1)
		mm.latency.With("method", "receive-partial").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Receive(ctx, pkg)
}

func (mm *metricsMiddleware) EncryptedModel(ctx context.Context) (abe.EncryptedModel, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-encrypted-model").Add(1)
		mm.latency.With("method", "get-encrypted-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.EncryptedModel(ctx)
}

func (mm *metricsMiddleware) GlobalModel(ctx context.Context) (fl.GlobalModel, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-global-model").Add(1)
		mm.latency.With("method", "get-global-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GlobalModel(ctx)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (global.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}
