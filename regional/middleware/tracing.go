package middleware

import (
	"context"

	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/regional"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ regional.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    regional.Service
}

func Tracing(tracer trace.Tracer, svc regional.Service) regional.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Receive(ctx context.Context, pkg auth.SignedPackage) error {
	ctx, span := tm.tracer.Start(ctx, "receive-share", trace.WithAttributes(
		attribute.String("signer", pkg.Signer),
		attribute.Int("payload_bytes", len(pkg.Payload)),
	))
	defer span.End()

	return tm.svc.Receive(ctx, pkg)
}

func (tm *tracing) Status(ctx context.Context) (regional.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}
