package main

import (
	"context"

	"github.com/fitmentiq/fitment-engine/engine/domain"
	"github.com/fitmentiq/fitment-engine/engine/fitment"
	"github.com/fitmentiq/fitment-engine/pkg/fn"
	"github.com/fitmentiq/fitment-engine/pkg/resilience"
)

// guardedProvider wraps a reference-data provider with a rate limiter, a
// circuit breaker, and retry for read operations. The engine deliberately
// carries no resilience of its own; it is composed here at the boundary.
type guardedProvider struct {
	inner   fitment.Provider
	breaker *resilience.Breaker
	limiter *resilience.Limiter
	retry   fn.RetryOpts
}

// guard runs a read through limiter, retry, and breaker. Each retry attempt
// goes through the breaker so an open circuit fails fast instead of waiting
// out the backoff.
func (g *guardedProvider) guard(ctx context.Context, f func(context.Context) error) error {
	opts := g.retry
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return g.limiter.CallWait(ctx, func(ctx context.Context) error {
		_, err := fn.Retry(ctx, opts, func(ctx context.Context) fn.Result[struct{}] {
			if err := g.breaker.Call(ctx, f); err != nil {
				return fn.Err[struct{}](err)
			}
			return fn.Ok(struct{}{})
		}).Unwrap()
		return err
	})
}

// guardWrite runs a write through limiter and breaker only. Writes are not
// retried here; an ambiguous failure must surface to the caller rather than
// be replayed.
func (g *guardedProvider) guardWrite(ctx context.Context, f func(context.Context) error) error {
	return g.limiter.CallWait(ctx, func(ctx context.Context) error {
		return g.breaker.Call(ctx, f)
	})
}

func (g *guardedProvider) ModelMappings(ctx context.Context) ([]domain.ModelMapping, error) {
	var out []domain.ModelMapping
	err := g.guard(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.ModelMappings(ctx)
		return err
	})
	return out, err
}

func (g *guardedProvider) PartTerminology(ctx context.Context, id int64) (domain.PartTerminology, error) {
	var out domain.PartTerminology
	err := g.guard(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.PartTerminology(ctx, id)
		return err
	})
	return out, err
}

func (g *guardedProvider) PCDBPositions(ctx context.Context, id int64) ([]domain.PCDBPosition, error) {
	var out []domain.PCDBPosition
	err := g.guard(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.PCDBPositions(ctx, id)
		return err
	})
	return out, err
}

func (g *guardedProvider) VCDBVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.VCDBVehicle, error) {
	var out []domain.VCDBVehicle
	err := g.guard(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.VCDBVehicles(ctx, filter)
		return err
	})
	return out, err
}

func (g *guardedProvider) SaveMappingResults(ctx context.Context, productID string, results []domain.ValidationResult) error {
	return g.guardWrite(ctx, func(ctx context.Context) error {
		return g.inner.SaveMappingResults(ctx, productID, results)
	})
}
