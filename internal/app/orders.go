package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deepbook_go/internal/deepbook"
)

// placeBulkOrders runs the remaining bulk rounds on the trading pool. Each round places one
// bid per manager for min_size at order_price. Progress is checkpointed after every round.
func (o *Orchestrator) placeBulkOrders(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	t, err := o.templates(bc)
	if err != nil {
		return bc, err
	}
	pool, err := bc.Pool(deepbook.TradingPool)
	if err != nil {
		return bc, err
	}

	cfg := o.cfg.Bootstrap
	order := deepbook.LimitOrder(cfg.ScaledPrice(cfg.OrderPrice), cfg.MinSize, true)
	managers := bc.Managers()

	// Every round has the same shape, so a layout that cannot fit fails before the first submission.
	if _, err := t.PlaceOrdersAcrossManagers("orders", pool, managers, order, cfg.OrderBatchSize); err != nil {
		return bc, err
	}

	start := time.Now()
	for round := bc.OrderRounds(); round < cfg.OrderIterations; round++ {
		if err := ctx.Err(); err != nil {
			return bc, err
		}
		b, err := t.PlaceOrdersAcrossManagers(fmt.Sprintf("orders round %d", round), pool, managers, order, cfg.OrderBatchSize)
		if err != nil {
			return bc, err
		}
		if _, err := o.submit(ctx, b); err != nil {
			return bc, fmt.Errorf("round %d of %d: %w", round, cfg.OrderIterations, err)
		}
		o.metrics.RecordOrders(cfg.OrderBatchSize)

		bc = bc.WithOrderRounds(round + 1)
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
		o.logger.Debug("Order round placed", slog.Int("round", round), slog.Int("orders", cfg.OrderBatchSize))
	}

	o.logger.Info("Bulk orders placed",
		slog.String("pool", pool.Name),
		slog.Int("rounds", cfg.OrderIterations),
		slog.Int("orders_per_round", cfg.OrderBatchSize),
		slog.Duration("elapsed", time.Since(start)))
	return bc, nil
}

// placeFillOrder sells fill_multiplier*min_size from the fill manager into the bulk bids.
// The digest is checkpointed as soon as the batch is accepted, so a resumed run never sells twice.
// With fill_debug set it waits for the transaction and reports the settled effects.
func (o *Orchestrator) placeFillOrder(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	cfg := o.cfg.Bootstrap
	order := deepbook.LimitOrder(cfg.ScaledPrice(cfg.OrderPrice), cfg.FillMultiplier*cfg.MinSize, false)

	if bc.FillDigest() == "" {
		t, err := o.templates(bc)
		if err != nil {
			return bc, err
		}
		pool, err := bc.Pool(deepbook.TradingPool)
		if err != nil {
			return bc, err
		}
		b, err := t.PlaceLimitOrders("fill order "+pool.Name, pool, bc.FillManager(), order, 1)
		if err != nil {
			return bc, err
		}
		res, err := o.submit(ctx, b)
		if err != nil {
			return bc, err
		}
		o.metrics.RecordOrders(1)
		bc = bc.WithFill(res.Digest)
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
	}
	if !cfg.FillDebug {
		return bc, nil
	}

	settled, err := o.submitter.AwaitTransaction(ctx, bc.FillDigest())
	if err != nil {
		return bc, fmt.Errorf("await fill order: %w", err)
	}
	o.logger.Info("Fill order settled",
		slog.String("digest", settled.Digest),
		slog.String("status", string(settled.Status)),
		slog.Uint64("gas_used", settled.Gas.Net()),
		slog.Uint64("quantity", order.Quantity))
	return bc, nil
}
