package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"deepbook_go/internal/deepbook"
	"deepbook_go/internal/domain"
	"deepbook_go/internal/ptb"
)

// createPools creates every planned pool with the DeepBook admin cap, paying the fee in DEEP.
func (o *Orchestrator) createPools(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	t, err := o.templates(bc)
	if err != nil {
		return bc, err
	}
	dbk, err := bc.Package(deepbook.DeepBook)
	if err != nil {
		return bc, err
	}
	registry, err := dbk.Extra(deepbook.ExtraRegistry)
	if err != nil {
		return bc, err
	}
	adminCap, err := dbk.Extra(deepbook.ExtraAdminCap)
	if err != nil {
		return bc, err
	}
	deep, err := bc.Package(deepbook.Token)
	if err != nil {
		return bc, err
	}
	deepCoin, err := deep.Extra(deepbook.ExtraCoin)
	if err != nil {
		return bc, err
	}

	params := t.Params()
	for _, spec := range deepbook.PoolPlan() {
		if _, err := bc.Pool(spec.Name()); err == nil {
			continue
		}
		base, err := bc.Coin(spec.Base)
		if err != nil {
			return bc, err
		}
		quote, err := bc.Coin(spec.Quote)
		if err != nil {
			return bc, err
		}

		b := t.CreatePoolAdmin(registry, adminCap, deepCoin, base, quote, spec.Whitelisted)
		res, err := o.submit(ctx, b)
		if err != nil {
			return bc, err
		}
		id, err := domain.Extract(res.Changes, deepbook.PoolCreated)
		if err != nil {
			return bc, annotate(err, b.Label)
		}

		bc = bc.WithPool(domain.Pool{
			Name:        spec.Name(),
			PoolID:      id,
			Base:        base,
			Quote:       quote,
			TickSize:    params.TickSize,
			LotSize:     params.LotSize,
			MinSize:     params.MinSize,
			Whitelisted: spec.Whitelisted,
		})
		o.logger.Info("Pool created",
			slog.String("pool", spec.Name()),
			slog.String("pool_id", id),
			slog.Bool("whitelisted", spec.Whitelisted))
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
	}
	return bc, nil
}

// fundManagers creates the bulk managers in as few batches as the command ceiling allows,
// then one seeding manager and one fill manager. Every manager holds StartingBalance of each token.
// Each batch is checkpointed, so a resumed run only creates the managers still missing.
func (o *Orchestrator) fundManagers(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	t, err := o.templates(bc)
	if err != nil {
		return bc, err
	}
	fundings, err := bc.Fundings()
	if err != nil {
		return bc, err
	}

	perBatch := o.limits.MaxCommands / deepbook.ManagerCommands(len(fundings))
	if perBatch == 0 {
		return bc, &ptb.CapacityError{
			Batch: "create balance manager",
			Limit: "commands",
			Have:  uint64(deepbook.ManagerCommands(len(fundings))),
			Max:   uint64(o.limits.MaxCommands),
		}
	}

	missing := o.cfg.Bootstrap.ManagerCount - len(bc.Managers())
	for _, n := range ptb.Partition(missing, perBatch) {
		ids, err := o.createManagers(ctx, t, fundings, n)
		if err != nil {
			return bc, err
		}
		bc = bc.WithBulkManagers(ids...)
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
	}

	if bc.SeedManager() == "" {
		seed, err := o.createManagers(ctx, t, fundings, 1)
		if err != nil {
			return bc, err
		}
		bc = bc.WithSeedManager(seed[0])
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
	}
	if bc.FillManager() == "" {
		fill, err := o.createManagers(ctx, t, fundings, 1)
		if err != nil {
			return bc, err
		}
		bc = bc.WithFillManager(fill[0])
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
	}

	o.logger.Info("Balance managers funded",
		slog.Int("bulk", len(bc.Managers())),
		slog.String("seed_manager", bc.SeedManager()),
		slog.String("fill_manager", bc.FillManager()))
	return bc, nil
}

// createManagers submits one batch creating count managers and returns exactly count distinct ids.
func (o *Orchestrator) createManagers(ctx context.Context, t *deepbook.Templates, fundings []domain.Funding, count int) ([]string, error) {
	b, err := t.CreateBalanceManagers(fundings, count)
	if err != nil {
		return nil, err
	}
	res, err := o.submit(ctx, b)
	if err != nil {
		return nil, err
	}
	ids := domain.ExtractAll(res.Changes, deepbook.ManagerCreated)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	if len(ids) != count || len(seen) != count {
		return nil, &domain.ResourceNotFoundError{
			Context:   b.Label,
			Predicate: fmt.Sprintf("%s (found %d distinct of %d)", deepbook.ManagerCreated, len(seen), count),
		}
	}
	return ids, nil
}

func annotate(err error, label string) error {
	var nf *domain.ResourceNotFoundError
	if errors.As(err, &nf) {
		return &domain.ResourceNotFoundError{Context: label, Predicate: nf.Predicate}
	}
	return err
}
