package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tourbridge"

// Metrics holds the reservation exchange metric instruments.
type Metrics struct {
	RequestsCreated    metric.Int64Counter
	RequestTransitions metric.Int64Counter
	CapacityRejections metric.Int64Counter
	Conversions        metric.Int64Counter
	NotificationsSent  metric.Int64Counter
	NotificationsFail  metric.Int64Counter
	ReconcileResults   metric.Int64Counter
	TrackingLookups    metric.Int64Counter
	SlotLockWait       metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.RequestsCreated, "tourbridge.requests.created", "Reservation requests created"},
		{&m.RequestTransitions, "tourbridge.requests.transitions", "Reservation request status changes"},
		{&m.CapacityRejections, "tourbridge.capacity.rejections", "Operations refused for lack of capacity"},
		{&m.Conversions, "tourbridge.requests.converted", "Requests converted to reservations"},
		{&m.NotificationsSent, "tourbridge.notifications.sent", "Customer notifications delivered"},
		{&m.NotificationsFail, "tourbridge.notifications.failed", "Customer notifications that failed"},
		{&m.ReconcileResults, "tourbridge.reconcile.results", "Fulfillment reconciliation outcomes"},
		{&m.TrackingLookups, "tourbridge.tracking.lookups", "Customer tracking page lookups"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}

	m.SlotLockWait, err = meter.Float64Histogram("tourbridge.capacity.lock_seconds",
		metric.WithDescription("Time spent inside a slot transaction"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordTransition counts a request status change.
func (m *Metrics) RecordTransition(ctx context.Context, to string) {
	if m == nil {
		return
	}
	m.RequestTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", to)))
}

// RecordReconcile counts one reconciliation outcome by method and confidence.
func (m *Metrics) RecordReconcile(ctx context.Context, method, confidence string) {
	if m == nil {
		return
	}
	m.ReconcileResults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("confidence", confidence),
	))
}

// Add increments c by one when m is configured.
func (m *Metrics) Add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if m == nil || c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNotification counts a delivery attempt by provider and outcome.
func (m *Metrics) RecordNotification(ctx context.Context, provider string, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	if err != nil {
		m.NotificationsFail.Add(ctx, 1, attrs)
		return
	}
	m.NotificationsSent.Add(ctx, 1, attrs)
}

// RecordCreated counts a new request by origin kind.
func (m *Metrics) RecordCreated(ctx context.Context, origin string) {
	if m == nil {
		return
	}
	m.RequestsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", origin)))
}

// RecordCapacityRejection counts an operation refused because the slot was full.
func (m *Metrics) RecordCapacityRejection(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.CapacityRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordConversion counts a request converted into a reservation.
func (m *Metrics) RecordConversion(ctx context.Context, crossTenant bool) {
	if m == nil {
		return
	}
	m.Conversions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cross_tenant", crossTenant)))
}

// RecordTrackingLookup counts a tracking page lookup by outcome.
func (m *Metrics) RecordTrackingLookup(ctx context.Context, found bool) {
	if m == nil {
		return
	}
	m.TrackingLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", found)))
}

// ObserveSlotTx records how long a slot transaction held its lock.
func (m *Metrics) ObserveSlotTx(ctx context.Context, seconds float64, op string) {
	if m == nil {
		return
	}
	m.SlotLockWait.Record(ctx, seconds, metric.WithAttributes(attribute.String("op", op)))
}
