package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckoutMetrics counts payment flow outcomes per provider. A nil
// *CheckoutMetrics records nothing.
type CheckoutMetrics struct {
	initiated metric.Int64Counter
	verified  metric.Int64Counter
	fulfilled metric.Int64Counter
	failed    metric.Int64Counter
	amount    metric.Float64Histogram
}

func NewCheckoutMetrics(meter metric.Meter) (*CheckoutMetrics, error) {
	m := &CheckoutMetrics{}
	var err error

	if m.initiated, err = meter.Int64Counter("checkout_sessions_created_total",
		metric.WithDescription("Payment sessions created"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("create checkout_sessions_created_total counter: %w", err)
	}
	if m.verified, err = meter.Int64Counter("checkout_payments_verified_total",
		metric.WithDescription("Payments verified with the provider"),
		metric.WithUnit("{payment}"),
	); err != nil {
		return nil, fmt.Errorf("create checkout_payments_verified_total counter: %w", err)
	}
	if m.fulfilled, err = meter.Int64Counter("checkout_orders_fulfilled_total",
		metric.WithDescription("Orders fulfilled after payment"),
		metric.WithUnit("{order}"),
	); err != nil {
		return nil, fmt.Errorf("create checkout_orders_fulfilled_total counter: %w", err)
	}
	if m.failed, err = meter.Int64Counter("checkout_failures_total",
		metric.WithDescription("Checkout failures by stage"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, fmt.Errorf("create checkout_failures_total counter: %w", err)
	}
	if m.amount, err = meter.Float64Histogram("checkout_order_amount",
		metric.WithDescription("Discounted order amount at session creation"),
		metric.WithUnit("INR"),
	); err != nil {
		return nil, fmt.Errorf("create checkout_order_amount histogram: %w", err)
	}
	return m, nil
}

// NewGlobalCheckoutMetrics uses the globally installed meter provider.
func NewGlobalCheckoutMetrics() (*CheckoutMetrics, error) {
	return NewCheckoutMetrics(otel.Meter(instrumentationName))
}

func (m *CheckoutMetrics) SessionCreated(ctx context.Context, provider string, amount float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.initiated.Add(ctx, 1, attrs)
	m.amount.Record(ctx, amount, attrs)
}

func (m *CheckoutMetrics) PaymentVerified(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.verified.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *CheckoutMetrics) OrderFulfilled(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.fulfilled.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

func (m *CheckoutMetrics) Failure(ctx context.Context, provider, stage string) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("stage", stage),
	))
}
