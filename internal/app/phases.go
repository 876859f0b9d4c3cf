package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deepbook_go/internal/deepbook"
	"deepbook_go/internal/deploy"
	"deepbook_go/internal/domain"
	"deepbook_go/internal/infra"
	"deepbook_go/internal/ptb"
)

// Phase marks how far a run has progressed. Each phase names the last completed step.
type Phase string

const (
	PhaseDeploying        Phase = "deploying"
	PhaseDeployed         Phase = "deployed"
	PhasePoolsCreated     Phase = "pools_created"
	PhaseManagersFunded   Phase = "managers_funded"
	PhaseReferenceSeeded  Phase = "reference_seeded"
	PhasePricePointsAdded Phase = "price_points_added"
	PhaseOrdersPlaced     Phase = "orders_placed"
	PhaseFillTested       Phase = "fill_tested"
)

var phaseOrder = []Phase{
	PhaseDeploying,
	PhaseDeployed,
	PhasePoolsCreated,
	PhaseManagersFunded,
	PhaseReferenceSeeded,
	PhasePricePointsAdded,
	PhaseOrdersPlaced,
	PhaseFillTested,
}

func (p Phase) index() int {
	for i, q := range phaseOrder {
		if p == q {
			return i
		}
	}
	return -1
}

// Reached reports whether p is q or a later phase.
func (p Phase) Reached(q Phase) bool { return p.index() >= q.index() }

// Done reports whether the run has nothing left to do.
func (p Phase) Done() bool { return p == PhaseFillTested }

// CheckpointStore persists run state between phases.
type CheckpointStore interface {
	SaveCheckpoint(cp *domain.Checkpoint) error
	LatestCheckpoint(runID string) (*domain.Checkpoint, error)
}

// Deps are the collaborators an Orchestrator drives. Faucet and Store may be nil.
type Deps struct {
	Submitter domain.Submitter
	Builder   domain.PackageBuilder
	Manifest  domain.ManifestWriter
	Faucet    domain.Faucet
	Store     CheckpointStore
	Metrics   *infra.Metrics
}

// Orchestrator runs the bootstrap pipeline, one submission at a time.
type Orchestrator struct {
	cfg       *infra.Config
	submitter domain.Submitter
	deployer  *deploy.Deployer
	manifest  domain.ManifestWriter
	faucet    domain.Faucet
	store     CheckpointStore
	metrics   *infra.Metrics
	limits    ptb.Limits
	logger    *slog.Logger
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(cfg *infra.Config, deps Deps) *Orchestrator {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Orchestrator{
		cfg:       cfg,
		submitter: deps.Submitter,
		deployer:  deploy.NewDeployer(deps.Builder, deps.Submitter, cfg.Network.GasBudget),
		manifest:  deps.Manifest,
		faucet:    deps.Faucet,
		store:     deps.Store,
		metrics:   metrics,
		limits: ptb.Limits{
			MaxCommands:     cfg.Limits.MaxCommands,
			MaxInputObjects: cfg.Limits.MaxInputObjects,
			MaxGasBudget:    cfg.Limits.MaxGasBudget,
		},
		logger: slog.Default().With("module", "orchestrator"),
	}
}

type step struct {
	done Phase
	run  func(ctx context.Context, bc BootstrapContext) (BootstrapContext, error)
}

func (o *Orchestrator) steps() []step {
	return []step{
		{PhaseDeployed, o.deployPackages},
		{PhasePoolsCreated, o.createPools},
		{PhaseManagersFunded, o.fundManagers},
		{PhaseReferenceSeeded, o.seedReferencePools},
		{PhasePricePointsAdded, o.addPricePoints},
		{PhaseOrdersPlaced, o.placeBulkOrders},
		{PhaseFillTested, o.placeFillOrder},
	}
}

// Run drives bc through every remaining phase. On failure it returns the last
// consistent context together with the error; completed phases are skipped on resume.
func (o *Orchestrator) Run(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	if bc.Signer() != o.submitter.Address() {
		return bc, fmt.Errorf("run %s belongs to %s, signer is %s", bc.RunID(), bc.Signer(), o.submitter.Address())
	}

	for i, s := range o.steps() {
		if bc.Phase().Reached(s.done) {
			o.logger.Info("Skipping completed phase", slog.String("phase", string(s.done)))
			continue
		}
		if want := phaseOrder[i]; bc.Phase() != want {
			return bc, fmt.Errorf("%s needs %s, run is at %s: %w", s.done, want, bc.Phase(), domain.ErrPhaseOrder)
		}
		if err := ctx.Err(); err != nil {
			return bc, err
		}

		start := time.Now()
		next, err := s.run(ctx, bc)
		if err != nil {
			// Keep partial progress recorded inside the step.
			if next.RunID() != "" {
				bc = next
			}
			return bc, fmt.Errorf("phase %s: %w", s.done, err)
		}
		if next, err = next.WithPhase(s.done); err != nil {
			return bc, err
		}
		bc = next
		if err := o.checkpoint(bc); err != nil {
			return bc, err
		}
		o.logger.Info("Phase completed",
			slog.String("phase", string(s.done)),
			slog.Duration("elapsed", time.Since(start)))
	}
	return bc, nil
}

// checkpoint stores bc under its current phase.
func (o *Orchestrator) checkpoint(bc BootstrapContext) error {
	if o.store == nil {
		return nil
	}
	state, err := json.Marshal(bc)
	if err != nil {
		return err
	}
	if err := o.store.SaveCheckpoint(&domain.Checkpoint{
		RunID:  bc.RunID(),
		Phase:  string(bc.Phase()),
		State:  string(state),
		Signer: bc.Signer(),
	}); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Resume loads the latest checkpoint of runID.
func Resume(store CheckpointStore, runID string) (BootstrapContext, error) {
	cp, err := store.LatestCheckpoint(runID)
	if err != nil {
		return BootstrapContext{}, err
	}
	if cp == nil {
		return BootstrapContext{}, fmt.Errorf("run %s: no checkpoint: %w", runID, domain.ErrResourceNotFound)
	}
	var bc BootstrapContext
	if err := cp.DecodeState(&bc); err != nil {
		return BootstrapContext{}, fmt.Errorf("run %s: corrupt checkpoint: %w", runID, err)
	}
	return bc, nil
}

// templates binds the DeepBook batch templates to the published package.
func (o *Orchestrator) templates(bc BootstrapContext) (*deepbook.Templates, error) {
	dep, err := bc.Package(deepbook.DeepBook)
	if err != nil {
		return nil, err
	}
	return deepbook.NewTemplates(dep.PackageID, deepbook.ParamsFrom(o.cfg.Bootstrap), o.limits), nil
}

// submit executes b and turns an on-chain failure into a SubmissionError.
func (o *Orchestrator) submit(ctx context.Context, b *ptb.Batch) (*domain.TxResult, error) {
	if b.GasBudget == 0 {
		b.GasBudget = o.cfg.Network.GasBudget
	}
	res, err := o.submitter.Submit(ctx, b)
	if err != nil {
		var subErr *domain.SubmissionError
		if errors.As(err, &subErr) {
			return nil, err
		}
		return nil, &domain.SubmissionError{Batch: b.Label, Err: err}
	}
	if err := res.Err(b.Label); err != nil {
		return nil, err
	}
	o.logger.Debug("Batch applied",
		slog.String("batch", b.Label),
		slog.String("digest", res.Digest),
		slog.Int("commands", b.Commands()))
	return res, nil
}
