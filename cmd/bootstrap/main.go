package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"deepbook_go/internal/app"
	"deepbook_go/internal/domain"
	"deepbook_go/internal/infra"
	"deepbook_go/internal/infra/storage"
	"deepbook_go/internal/infra/sui"

	"github.com/spf13/cobra"
)

func main() {
	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		report(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "bootstrap",
		Short:         "Deploy DeepBook to a Sui network and fill it with test state",
		SilenceUsage:  true,
		SilenceErrors: true, // reported by main
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "configuration file")

	root.AddCommand(
		newRunCmd(&configPath),
		newStatusCmd(&configPath),
		newForgetCmd(&configPath),
		newAddressCmd(&configPath),
	)
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var resume string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy packages, create pools and managers, then place the test orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap := app.NewBootstrap()
			defer func() {
				if err := bootstrap.Close(); err != nil {
					slog.Warn("Shutdown incomplete", slog.Any("error", err))
				}
			}()
			if err := bootstrap.Initialize(cmd.Context(), *configPath); err != nil {
				return err
			}
			_, err := bootstrap.Run(cmd.Context(), resume)
			return err
		},
	}
	cmd.Flags().StringVar(&resume, "resume", "", "continue the run with this id from its last checkpoint")
	return cmd
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status [run-id]",
		Short: "List runs and the last phase each completed, or every checkpoint of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var cps []domain.Checkpoint
			if len(args) == 1 {
				cps, err = store.History(args[0])
			} else {
				cps, err = store.ListRuns()
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cps) == 0 {
				fmt.Fprintln(out, "no runs")
				return nil
			}
			for _, cp := range cps {
				fmt.Fprintf(out, "%s\t%-20s\t%s\t%s\n", cp.RunID, cp.Phase, cp.CreatedAt.Format("2006-01-02 15:04:05"), cp.Signer)
			}
			return nil
		},
	}
}

func newForgetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <run-id>",
		Short: "Delete the checkpoints of a run so it can no longer be resumed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteRun(args[0])
		},
	}
}

func openStorage(configPath string) (*storage.Storage, error) {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return storage.NewStorage(cfg.Storage.Path)
}

func newAddressCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address of the configured signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			signer, err := sui.NewSigner(cfg.Network.PrivateKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signer.Address())
			return nil
		},
	}
}

// report logs err with whatever typed context it carries.
func report(err error) {
	attrs := []any{slog.Any("error", err)}

	var (
		buildErr  *domain.BuildError
		subErr    *domain.SubmissionError
		notFound  *domain.ResourceNotFoundError
		configErr *domain.ConfigError
	)
	switch {
	case errors.As(err, &buildErr):
		attrs = append(attrs, slog.String("package", buildErr.Package), slog.String("path", buildErr.Path))
	case errors.As(err, &subErr):
		attrs = append(attrs, slog.String("batch", subErr.Batch), slog.String("digest", subErr.Digest))
	case errors.As(err, &notFound):
		attrs = append(attrs, slog.String("step", notFound.Context), slog.String("predicate", notFound.Predicate))
	case errors.As(err, &configErr):
		attrs = append(attrs, slog.String("field", configErr.Field))
	}
	if errors.Is(err, context.Canceled) {
		slog.Warn("👋 Interrupted", attrs...)
		return
	}
	slog.Error("❌ Bootstrap failed", attrs...)
}
