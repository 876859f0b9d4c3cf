package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"deepbook_go/internal/deepbook"
	"deepbook_go/internal/deploy"
	"deepbook_go/internal/domain"

	"golang.org/x/sync/errgroup"
)

// deployPackages funds the signer, then builds and publishes every catalog package.
// Packages without unpublished dependencies compile concurrently; publishes stay sequential.
func (o *Orchestrator) deployPackages(ctx context.Context, bc BootstrapContext) (BootstrapContext, error) {
	specs, err := deepbook.Catalog(o.cfg.Packages)
	if err != nil {
		return bc, err
	}

	if o.faucet != nil && !bc.Published(deepbook.Token) {
		if err := o.faucet.Fund(ctx, bc.Signer()); err != nil {
			return bc, fmt.Errorf("faucet: %w", err)
		}
	}

	token, err := deepbook.Spec(deepbook.Token, o.cfg.Packages[deepbook.Token])
	if err != nil {
		return bc, err
	}
	if !bc.Published(deepbook.Token) {
		// A manifest left over from a previous deployment would link the new build to the old id.
		if err := o.manifest.SetAddress(token.Path, deepbook.Token, "0x0"); err != nil {
			return bc, fmt.Errorf("reset %s manifest: %w", deepbook.Token, err)
		}
	}

	for len(pending(specs, bc)) > 0 {
		ready := readySpecs(pending(specs, bc), bc)
		if len(ready) == 0 {
			return bc, fmt.Errorf("no buildable package among %v", names(pending(specs, bc)))
		}

		if err := o.checkTokenLink(token.Path, ready, bc); err != nil {
			return bc, err
		}
		compiled, err := o.buildAll(ctx, ready)
		if err != nil {
			return bc, err
		}

		for i, spec := range ready {
			dep, err := o.deployer.Publish(ctx, spec, compiled[i])
			if err != nil {
				return bc, err
			}
			if bc, err = bc.WithPackage(dep); err != nil {
				return bc, err
			}
			if spec.Name == deepbook.Token {
				if err := o.manifest.SetAddress(spec.Path, deepbook.Token, dep.PackageID); err != nil {
					return bc, fmt.Errorf("record %s address: %w", deepbook.Token, err)
				}
			}
			if err := o.checkpoint(bc); err != nil {
				return bc, err
			}
		}
	}
	return bc, nil
}

// checkTokenLink reads the token address back from its manifest before any dependent package
// is built, so deepbook never compiles against a stale or placeholder token id.
func (o *Orchestrator) checkTokenLink(tokenPath string, specs []deploy.PackageSpec, bc BootstrapContext) error {
	dependent := false
	for _, s := range specs {
		if slices.Contains(s.DependsOn, deepbook.Token) {
			dependent = true
			break
		}
	}
	if !dependent {
		return nil
	}
	dep, err := bc.Package(deepbook.Token)
	if err != nil {
		return err
	}
	linked, err := o.manifest.Address(tokenPath, deepbook.Token)
	if err != nil {
		return fmt.Errorf("read %s address: %w", deepbook.Token, err)
	}
	if domain.NormalizeID(linked) != domain.NormalizeID(dep.PackageID) {
		return fmt.Errorf("%s manifest links %s, published package is %s", deepbook.Token, linked, dep.PackageID)
	}
	return nil
}

// buildAll compiles specs concurrently. The result is indexed like specs.
func (o *Orchestrator) buildAll(ctx context.Context, specs []deploy.PackageSpec) ([]*domain.CompiledPackage, error) {
	compiled := make([]*domain.CompiledPackage, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			pkg, err := o.deployer.Build(ctx, spec)
			if err != nil {
				return err
			}
			compiled[i] = pkg
			o.logger.Info("Package built",
				slog.String("package", spec.Name),
				slog.Int("modules", len(pkg.Modules)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compiled, nil
}

func pending(specs []deploy.PackageSpec, bc BootstrapContext) []deploy.PackageSpec {
	var out []deploy.PackageSpec
	for _, s := range specs {
		if !bc.Published(s.Name) {
			out = append(out, s)
		}
	}
	return out
}

// readySpecs keeps the specs whose dependencies are all published, preserving publish order.
func readySpecs(specs []deploy.PackageSpec, bc BootstrapContext) []deploy.PackageSpec {
	var out []deploy.PackageSpec
	for _, s := range specs {
		ready := true
		for _, dep := range s.DependsOn {
			if !bc.Published(dep) {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, s)
		}
	}
	return out
}

func names(specs []deploy.PackageSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Name
	}
	return out
}
