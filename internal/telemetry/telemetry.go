// Package telemetry wires optional OpenTelemetry counters for the scoring
// pipeline. When disabled, Setup returns a provider whose instruments are nil
// and every recording call is a no-op.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config controls metric export.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Provider owns the meter provider and the scoring instruments.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	instruments   *Instruments
	shutdownOnce  sync.Once
}

// Instruments are the scoring pipeline counters. A nil *Instruments is valid
// and records nothing.
type Instruments struct {
	signalsIngested metric.Int64Counter
	signalsRejected metric.Int64Counter
	signalsExpired  metric.Int64Counter
	recomputes      metric.Int64Counter
	recomputeErrors metric.Int64Counter
	sweeps          metric.Int64Counter
}

// Setup initialises the meter provider following the provided config.
func Setup(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "intentd"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("github.com/driftline/intentd/scoring")
	inst := &Instruments{}
	for _, c := range []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&inst.signalsIngested, "intentd.signals.ingested", "Signal events accepted"},
		{&inst.signalsRejected, "intentd.signals.rejected", "Signal events rejected at validation"},
		{&inst.signalsExpired, "intentd.signals.expired", "Signal events expired past max age"},
		{&inst.recomputes, "intentd.recomputes", "Entity score recomputes"},
		{&inst.recomputeErrors, "intentd.recompute.errors", "Failed entity score recomputes"},
		{&inst.sweeps, "intentd.sweeps", "Completed sweep passes"},
	} {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	return &Provider{meterProvider: mp, instruments: inst}, nil
}

// Instruments returns the scoring counters, nil when telemetry is disabled.
func (p *Provider) Instruments() *Instruments {
	if p == nil {
		return nil
	}
	return p.instruments
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		if p.meterProvider != nil {
			err = p.meterProvider.Shutdown(ctx)
		}
	})
	return err
}

func (i *Instruments) SignalIngested(ctx context.Context) {
	if i == nil {
		return
	}
	i.signalsIngested.Add(ctx, 1)
}

func (i *Instruments) SignalRejected(ctx context.Context) {
	if i == nil {
		return
	}
	i.signalsRejected.Add(ctx, 1)
}

func (i *Instruments) SignalExpired(ctx context.Context) {
	if i == nil {
		return
	}
	i.signalsExpired.Add(ctx, 1)
}

func (i *Instruments) Recomputed(ctx context.Context) {
	if i == nil {
		return
	}
	i.recomputes.Add(ctx, 1)
}

func (i *Instruments) RecomputeError(ctx context.Context) {
	if i == nil {
		return
	}
	i.recomputeErrors.Add(ctx, 1)
}

func (i *Instruments) SweepCompleted(ctx context.Context) {
	if i == nil {
		return
	}
	i.sweeps.Add(ctx, 1)
}
