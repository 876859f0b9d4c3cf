package app

import (
	"context"
	"log/slog"

	"deepbook_go/internal/deepbook"
	"deepbook_go/internal/domain"
)

// seedReferencePools gives every whitelisted pool a resting bid and ask around the configured mid.
// Seeded pools are checkpointed one by one and skipped on resume.
func (o *Orchestrator) seedReferencePools(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	t, err := o.templates(bc)
	if err != nil {
		return bc, err
	}
	mid := o.cfg.Bootstrap.ScaledPrice(o.cfg.Bootstrap.MidPrice)

	for _, name := range deepbook.ReferencePools() {
		if bc.Seeded(name) {
			continue
		}
		pool, err := bc.Pool(name)
		if err != nil {
			return bc, err
		}
		b, err := t.SeedReferencePool(pool, bc.SeedManager(), mid)
		if err != nil {
			return bc, err
		}
		res, err := o.submit(ctx, b)
		if err != nil {
			return bc, err
		}
		o.metrics.RecordOrders(2)
		bc = bc.WithSeeded(name)
		o.logger.Info("Reference pool seeded",
			slog.String("pool", name),
			slog.Uint64("mid", mid),
			slog.String("digest", res.Digest))
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
	}
	return bc, nil
}

// addPricePoints links each trading pool to the reference pool it reads DEEP prices from.
func (o *Orchestrator) addPricePoints(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	t, err := o.templates(bc)
	if err != nil {
		return bc, err
	}
	for _, pp := range deepbook.PricePointPlan() {
		target, err := bc.Pool(pp.Target)
		if err != nil {
			return bc, err
		}
		ref, err := bc.Pool(pp.Reference)
		if err != nil {
			return bc, err
		}
		if hasPricePoint(bc, target.PoolID, ref.PoolID) {
			continue
		}
		if _, err := o.submit(ctx, t.AddDeepPricePoint(target, ref)); err != nil {
			return bc, err
		}
		bc = bc.WithPricePoint(domain.ReferencePricePoint{TargetPoolID: target.PoolID, ReferencePoolID: ref.PoolID})
		o.logger.Info("DEEP price point added",
			slog.String("target", pp.Target),
			slog.String("reference", pp.Reference))
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
	}
	return bc, nil
}

func hasPricePoint(bc BootstrapContext, target, ref string) bool {
	for _, pp := range bc.PricePoints() {
		if pp.TargetPoolID == target && pp.ReferencePoolID == ref {
			return true
		}
	}
	return false
}
