package middleware

import (
	"context"
	"time"

	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/regional"
	"github.com/go-kit/kit/metrics"
)

var _ regional.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     regional.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc regional.Service) regional.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Receive(ctx context.Context, pkg auth.SignedPackage) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "receive-share").Add(1)
		mm.latency.With("method", "receive-share").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Receive(ctx, pkg)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (regional.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}
