package middleware

import (
	"context"

	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/weights"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ facility.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    facility.Service
}

func Tracing(tracer trace.Tracer, svc facility.Service) facility.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Start(ctx context.Context, initial weights.Set) error {
	ctx, span := tm.tracer.Start(ctx, "start", trace.WithAttributes(
		attribute.Bool("initial_model", initial != nil),
	))
	defer span.End()

	return tm.svc.Start(ctx, initial)
}

func (tm *tracing) Receive(ctx context.Context, m fl.GlobalModel) error {
	ctx, span := tm.tracer.Start(ctx, "receive-global-model", trace.WithAttributes(
		attribute.Int64("round", int64(m.Round)),
	))
	defer span.End()

	return tm.svc.Receive(ctx, m)
}

func (tm *tracing) Status(ctx context.Context) (facility.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}
