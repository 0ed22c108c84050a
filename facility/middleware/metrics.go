package middleware

import (
	"context"
	"time"

	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/go-kit/kit/metrics"
)

var _ facility.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     facility.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc facility.Service) facility.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Start(ctx context.Context, initial weights.Set) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "start").Add(1)
		mm.latency.With("method", "start").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Start(ctx, initial)
}

func (mm *metricsMiddleware) Receive(ctx context.Context, m fl.GlobalModel) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "receive-global-model").Add(1)
		mm.latency.With("method", "receive-global-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Receive(ctx, m)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (facility.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}
