package tracer

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/metric"
)

var (
	registerRequestsTotal metric.Int64Counter
	loginRequestsTotal    metric.Int64Counter
	authFailuresTotal     metric.Int64Counter
)

// InitializeMetrics sets up the application's metrics. Call this during startup.
func InitializeMetrics(meter metric.Meter) {
	var err error

	registerRequestsTotal, err = meter.Int64Counter(
		"register_requests_total",
		metric.WithDescription("Total number of register requests"),
	)
	if err != nil {
		log.Fatalf("Failed to create register_requests_total counter: %v", err)
	}

	loginRequestsTotal, err = meter.Int64Counter(
		"login_requests_total",
		metric.WithDescription("Total number of login requests"),
	)
	if err != nil {
		log.Fatalf("Failed to create login_requests_total counter: %v", err)
	}

	authFailuresTotal, err = meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of rejected bearer token authentications"),
	)
	if err != nil {
		log.Fatalf("Failed to create auth_failures_total counter: %v", err)
	}
}

// The Inc helpers are no-ops until InitializeMetrics runs, so unit tests can
// exercise the service without a meter provider.

func IncRegisterRequests(ctx context.Context) {
	if registerRequestsTotal != nil {
		registerRequestsTotal.Add(ctx, 1)
	}
}

func IncLoginRequests(ctx context.Context) {
	if loginRequestsTotal != nil {
		loginRequestsTotal.Add(ctx, 1)
	}
}

func IncAuthFailures(ctx context.Context) {
	if authFailuresTotal != nil {
		authFailuresTotal.Add(ctx, 1)
	}
}
