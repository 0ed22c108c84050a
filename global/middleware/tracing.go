package middleware

import (
	"context"

	"github.com/absmach/dpsshare/global"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ global.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    global.Service
}

func Tracing(tracer trace.Tracer, svc global.Service) global.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Receive(ctx context.Context, pkg auth.SignedPackage) error {
	ctx, span := tm.tracer.Start(ctx, "receive-partial", trace.WithAttributes(
		attribute.String("signer", pkg.Signer),
		attribute.Int("payload_bytes", len(pkg.Payload)),
	))
	defer span.End()

	return tm.svc.Receive(ctx, pkg)
}

func (tm *tracing) EncryptedModel(ctx context.Context) (abe.EncryptedModel, error) {
	ctx, span := tm.tracer.Start(ctx, "get-encrypted-model")
	defer span.End()

	return tm.svc.EncryptedModel(ctx)
}

func (tm *tracing) GlobalModel(ctx context.Context) (fl.GlobalModel, error) {
	ctx, span := tm.tracer.Start(ctx, "get-global-model")
	defer span.End()

	return tm.svc.GlobalModel(ctx)
}

func (tm *tracing) Status(ctx context.Context) (global.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}
