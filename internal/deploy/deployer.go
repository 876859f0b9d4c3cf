package deploy

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"deepbook_go/internal/domain"
	"deepbook_go/internal/ptb"
)

// PackageSpec names a Move package and the objects its publish is expected to create.
type PackageSpec struct {
	Name      string
	Path      string
	Extras    map[string]domain.Predicate // extra name -> rule, e.g. "registry"
	DependsOn []string                    // catalog names that must be published before building
}

// upgradeCap matches the capability every publish creates.
var upgradeCap = domain.Created().Containing("::package::UpgradeCap")

// Deployer builds and publishes packages one at a time.
type Deployer struct {
	builder   domain.PackageBuilder
	submitter domain.Submitter
	gasBudget uint64
	logger    *slog.Logger
}

// NewDeployer wires the build collaborator and the submitter. A zero gasBudget uses the submitter default.
func NewDeployer(builder domain.PackageBuilder, submitter domain.Submitter, gasBudget uint64) *Deployer {
	return &Deployer{
		builder:   builder,
		submitter: submitter,
		gasBudget: gasBudget,
		logger:    slog.Default().With("module", "deployer"),
	}
}

// Build compiles spec without publishing it.
func (d *Deployer) Build(ctx context.Context, spec PackageSpec) (*domain.CompiledPackage, error) {
	pkg, err := d.builder.Build(ctx, spec.Path)
	if err != nil {
		var buildErr *domain.BuildError
		if errors.As(err, &buildErr) {
			buildErr.Package = spec.Name
			return nil, buildErr
		}
		return nil, &domain.BuildError{Package: spec.Name, Path: spec.Path, Err: err}
	}
	return pkg, nil
}

// Deploy builds and publishes spec.
func (d *Deployer) Deploy(ctx context.Context, spec PackageSpec) (domain.PackageDeployment, error) {
	pkg, err := d.Build(ctx, spec)
	if err != nil {
		return domain.PackageDeployment{}, err
	}
	return d.Publish(ctx, spec, pkg)
}

// Publish submits one publish batch for pkg, sends the UpgradeCap to the signer and extracts the ids.
func (d *Deployer) Publish(ctx context.Context, spec PackageSpec, pkg *domain.CompiledPackage) (domain.PackageDeployment, error) {
	label := "publish " + spec.Name
	b := ptb.New(label)
	b.GasBudget = d.gasBudget
	upgrade := b.Publish(pkg.Modules, pkg.Dependencies)
	b.TransferObjects([]ptb.Argument{upgrade}, b.Address(d.submitter.Address()))

	res, err := d.submitter.Submit(ctx, b)
	if err != nil {
		var subErr *domain.SubmissionError
		if errors.As(err, &subErr) {
			return domain.PackageDeployment{}, err
		}
		return domain.PackageDeployment{}, &domain.SubmissionError{Batch: label, Err: err}
	}
	if err := res.Err(label); err != nil {
		return domain.PackageDeployment{}, err
	}

	dep, err := ExtractDeployment(res, spec)
	if err != nil {
		return domain.PackageDeployment{}, err
	}

	attrs := []any{
		slog.String("package", spec.Name),
		slog.String("package_id", dep.PackageID),
		slog.String("upgrade_cap", dep.UpgradeCapID),
		slog.String("digest", res.Digest),
	}
	for _, name := range extraNames(spec) {
		attrs = append(attrs, slog.String(name, dep.Extras[name]))
	}
	d.logger.Info("Package published", attrs...)
	return dep, nil
}

// ExtractDeployment reads the package id, UpgradeCap and extras out of a publish result.
// It does not modify res and returns the same value on every call.
func ExtractDeployment(res *domain.TxResult, spec PackageSpec) (domain.PackageDeployment, error) {
	dep := domain.PackageDeployment{Name: spec.Name, SourcePath: spec.Path}

	pkgID, err := domain.Extract(res.Changes, domain.Published())
	if err != nil {
		return dep, annotate(err, spec.Name)
	}
	if dep, err = dep.WithPackageID(pkgID); err != nil {
		return dep, err
	}

	if dep.UpgradeCapID, err = domain.Extract(res.Changes, upgradeCap); err != nil {
		return dep, annotate(err, spec.Name)
	}

	if len(spec.Extras) > 0 {
		dep.Extras = make(map[string]string, len(spec.Extras))
	}
	for _, name := range extraNames(spec) {
		id, err := domain.Extract(res.Changes, spec.Extras[name])
		if err != nil {
			return dep, annotate(err, spec.Name+"."+name)
		}
		dep.Extras[name] = id
	}
	return dep, nil
}

func extraNames(spec PackageSpec) []string {
	names := make([]string, 0, len(spec.Extras))
	for name := range spec.Extras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func annotate(err error, context string) error {
	var nf *domain.ResourceNotFoundError
	if errors.As(err, &nf) {
		return &domain.ResourceNotFoundError{Context: context, Predicate: nf.Predicate}
	}
	return err
}
