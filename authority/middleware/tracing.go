package middleware

import (
	"context"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/weights"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ authority.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    authority.Service
}

func Tracing(tracer trace.Tracer, svc authority.Service) authority.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Setup(ctx context.Context, numFacilities int) (string, error) {
	ctx, span := tm.tracer.Start(ctx, "setup", trace.WithAttributes(
		attribute.Int("facilities", numFacilities),
	))
	defer span.End()

	return tm.svc.Setup(ctx, numFacilities)
}

func (tm *tracing) Register(ctx context.Context, identity string, nonce uint64, attrs abe.Attributes) (string, error) {
	ctx, span := tm.tracer.Start(ctx, "register", trace.WithAttributes(
		attribute.String("facility_id", identity),
	))
	defer span.End()

	return tm.svc.Register(ctx, identity, nonce, attrs)
}

func (tm *tracing) EncryptModel(ctx context.Context, w weights.Set, policy abe.Policy) (abe.EncryptedModel, error) {
	ctx, span := tm.tracer.Start(ctx, "encrypt-model", trace.WithAttributes(
		attribute.Int("params", w.NumParams()),
	))
	defer span.End()

	return tm.svc.EncryptModel(ctx, w, policy)
}

func (tm *tracing) EncryptedModel(ctx context.Context) (abe.EncryptedModel, error) {
	ctx, span := tm.tracer.Start(ctx, "get-encrypted-model")
	defer span.End()

	return tm.svc.EncryptedModel(ctx)
}

func (tm *tracing) Decrypt(ctx context.Context, identity string) (weights.Set, error) {
	ctx, span := tm.tracer.Start(ctx, "decrypt-model", trace.WithAttributes(
		attribute.String("facility_id", identity),
	))
	defer span.End()

	return tm.svc.Decrypt(ctx, identity)
}

func (tm *tracing) ViewFacility(ctx context.Context, identity string) (authority.Facility, error) {
	ctx, span := tm.tracer.Start(ctx, "view-facility", trace.WithAttributes(
		attribute.String("facility_id", identity),
	))
	defer span.End()

	return tm.svc.ViewFacility(ctx, identity)
}

func (tm *tracing) Status(ctx context.Context) (authority.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}
