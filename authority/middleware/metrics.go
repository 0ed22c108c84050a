package middleware

import (
	"context"
	"time"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/go-kit/kit/metrics"
)

var _ authority.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     authority.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc authority.Service) authority.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) observe(method string, begin time.Time) {
	mm.counter.With("method", method).Add(1)
	mm.latency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mm *metricsMiddleware) Setup(ctx context.Context, numFacilities int) (string, error) {
	defer mm.observe("setup", time.Now())

	return mm.svc.Setup(ctx, numFacilities)
}

func (mm *metricsMiddleware) Register(ctx context.Context, identity string, nonce uint64, attrs abe.Attributes) (string, error) {
	defer mm.observe("register", time.Now())

	return mm.svc.Register(ctx, identity, nonce, attrs)
}

func (mm *metricsMiddleware) EncryptModel(ctx context.Context, w weights.Set, policy abe.Policy) (abe.EncryptedModel, error) {
	defer mm.observe("encrypt-model", time.Now())

	return mm.svc.EncryptModel(ctx, w, policy)
}

func (mm *metricsMiddleware) EncryptedModel(ctx context.Context) (abe.EncryptedModel, error) {
	defer mm.observe("get-encrypted-model", time.Now())

	return mm.svc.EncryptedModel(ctx)
}

func (mm *metricsMiddleware) Decrypt(ctx context.Context, identity string) (weights.Set, error) {
	defer mm.observe("decrypt-model", time.Now())

	return mm.svc.Decrypt(ctx, identity)
}

func (mm *metricsMiddleware) ViewFacility(ctx context.Context, identity string) (authority.Facility, error) {
	defer mm.observe("view-facility", time.Now())

	return mm.svc.ViewFacility(ctx, identity)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (authority.Status, error) {
	defer mm.observe("status", time.Now())

	return mm.svc.Status(ctx)
}
