package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"deepbook_go/internal/infra"
	"deepbook_go/internal/infra/move"
	"deepbook_go/internal/infra/storage"
	"deepbook_go/internal/infra/sui"

	"github.com/google/uuid"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Signer  *sui.Signer
	Client  *sui.Client
	Faucet  *sui.FaucetClient
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and connects every collaborator a run needs.
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping DeepBook environment...", slog.String("rpc", cfg.Network.RPCURL))

	// 3. Initialize Storage (checkpoints)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Checkpoint store initialized", slog.String("path", cfg.Storage.Path))

	// 4. Signer and node client
	signer, err := sui.NewSigner(cfg.Network.PrivateKey)
	if err != nil {
		return err
	}
	b.Signer = signer

	client, err := sui.NewClient(ctx, cfg, signer, infra.GlobalMetrics)
	if err != nil {
		return err
	}
	b.Client = client
	slog.Info("✅ Node client ready", slog.String("signer", signer.Address()))

	// 5. Faucet (optional on networks without one)
	if cfg.Network.FaucetURL != "" && cfg.Network.FaucetRequests > 0 {
		b.Faucet = sui.NewFaucetClient(cfg.Network.FaucetURL, cfg.Network.FaucetRequests, cfg.Network.RequestTimeout)
	}
	return nil
}

// Run starts a new run, or continues runID from its latest checkpoint when runID is set.
func (b *Bootstrap) Run(ctx context.Context, runID string) (BootstrapContext, error) {
	var bc BootstrapContext
	if runID == "" {
		bc = NewBootstrapContext(uuid.NewString(), b.Signer.Address())
		slog.Info("Starting run", slog.String("run_id", bc.RunID()))
	} else {
		var err error
		if bc, err = Resume(b.Storage, runID); err != nil {
			return bc, err
		}
		if bc.Phase().Done() {
			slog.Info("Run already complete", slog.Any("context", bc))
			return bc, nil
		}
		slog.Info("Resuming run", slog.String("run_id", runID), slog.String("phase", string(bc.Phase())))
	}

	deps := Deps{
		Submitter: b.Client,
		Builder:   move.NewBuilder(b.Config.Build.Command),
		Manifest:  move.Manifest{},
		Store:     b.Storage,
		Metrics:   infra.GlobalMetrics,
	}
	// A nil *FaucetClient must not become a non-nil interface.
	if b.Faucet != nil {
		deps.Faucet = b.Faucet
	}

	final, err := NewOrchestrator(b.Config, deps).Run(ctx, bc)
	snap := infra.GlobalMetrics.Snapshot()
	slog.Info("Run summary",
		slog.Any("context", final),
		slog.Any("metrics", snap))
	if err != nil {
		return final, fmt.Errorf("run %s stopped at %s: %w", final.RunID(), final.Phase(), err)
	}
	slog.Info("✨ DeepBook environment ready", slog.String("run_id", final.RunID()))
	return final, nil
}

// Close releases the node connection and the database.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Client != nil {
		errs = append(errs, b.Client.Close())
	}
	if b.Storage != nil {
		errs = append(errs, b.Storage.Close())
	}
	return errors.Join(errs...)
}
