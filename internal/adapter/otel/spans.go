package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tourbridge"

// StartRequestSpan starts a span for a reservation request operation.
func StartRequestSpan(ctx context.Context, op string, requestID, tenantID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "request."+op,
		trace.WithAttributes(
			attribute.Int64("request.id", requestID),
			attribute.Int64("tenant.id", tenantID),
		),
	)
}

// StartSlotSpan starts a span around a locked capacity slot transaction.
func StartSlotSpan(ctx context.Context, slot string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "capacity.slot_tx",
		trace.WithAttributes(attribute.String("slot.key", slot)),
	)
}

// StartReconcileSpan starts a span for a fulfillment reconciliation pass.
func StartReconcileSpan(ctx context.Context, tenantID int64, date, strictness string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "fulfillment.reconcile",
		trace.WithAttributes(
			attribute.Int64("tenant.id", tenantID),
			attribute.String("date", date),
			attribute.String("strictness", strictness),
		),
	)
}

// StartNotifySpan starts a span for an outbound customer notification.
func StartNotifySpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "notify",
		trace.WithAttributes(attribute.String("notifier.provider", provider)),
	)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
