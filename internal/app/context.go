package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"deepbook_go/internal/deepbook"
	"deepbook_go/internal/domain"
)

// BootstrapContext accumulates every id a run produced. It is a value:
// With* methods return an updated copy and never touch the receiver.
type BootstrapContext struct {
	runID       string
	signer      string
	phase       Phase
	packages    map[string]domain.PackageDeployment
	pools       map[string]domain.Pool
	managers    []string
	seedManager string
	fillManager string
	seeded      []string
	pricePoints []domain.ReferencePricePoint
	orderRounds int
	fillDigest  string
}

// NewBootstrapContext starts an empty run for signer.
func NewBootstrapContext(runID, signer string) BootstrapContext {
	return BootstrapContext{runID: runID, signer: signer, phase: PhaseDeploying}
}

func (c BootstrapContext) RunID() string  { return c.runID }
func (c BootstrapContext) Signer() string { return c.signer }
func (c BootstrapContext) Phase() Phase   { return c.phase }

// OrderRounds is the number of bulk rounds already executed.
func (c BootstrapContext) OrderRounds() int { return c.orderRounds }

// FillDigest is the digest of the fill order batch, once placed.
func (c BootstrapContext) FillDigest() string { return c.fillDigest }

// Package returns a published package by catalog name.
func (c BootstrapContext) Package(name string) (domain.PackageDeployment, error) {
	dep, ok := c.packages[name]
	if !ok || dep.PackageID == "" {
		return dep, fmt.Errorf("package %s: %w", name, domain.ErrResourceNotFound)
	}
	return dep, nil
}

// Published reports whether a package is already on chain.
func (c BootstrapContext) Published(name string) bool {
	_, err := c.Package(name)
	return err == nil
}

// Pool returns a created pool by name, e.g. SUII/USDC.
func (c BootstrapContext) Pool(name string) (domain.Pool, error) {
	p, ok := c.pools[name]
	if !ok {
		return p, fmt.Errorf("pool %s: %w", name, domain.ErrResourceNotFound)
	}
	return p, nil
}

// Managers returns the bulk managers in creation order.
func (c BootstrapContext) Managers() []string { return append([]string(nil), c.managers...) }

// SeedManager funds the reference pool orders.
func (c BootstrapContext) SeedManager() string { return c.seedManager }

// FillManager places the fill order.
func (c BootstrapContext) FillManager() string { return c.fillManager }

// Seeded reports whether a reference pool already holds its seed orders.
func (c BootstrapContext) Seeded(pool string) bool {
	for _, name := range c.seeded {
		if name == pool {
			return true
		}
	}
	return false
}

// PricePoints returns the price points added so far.
func (c BootstrapContext) PricePoints() []domain.ReferencePricePoint {
	return append([]domain.ReferencePricePoint(nil), c.pricePoints...)
}

// Coin returns the coin type of a token package.
func (c BootstrapContext) Coin(name string) (domain.AssetType, error) {
	dep, err := c.Package(name)
	if err != nil {
		return "", err
	}
	return deepbook.CoinType(dep)
}

// Fundings lists every token with the coin object deposits are split from, in deposit order.
func (c BootstrapContext) Fundings() ([]domain.Funding, error) {
	var fundings []domain.Funding
	for _, name := range deepbook.TokenNames() {
		dep, err := c.Package(name)
		if err != nil {
			return nil, err
		}
		asset, err := deepbook.CoinType(dep)
		if err != nil {
			return nil, err
		}
		coin, err := dep.Extra(deepbook.ExtraCoin)
		if err != nil {
			return nil, err
		}
		fundings = append(fundings, domain.Funding{Asset: asset, CoinID: coin})
	}
	return fundings, nil
}

func (c BootstrapContext) clone() BootstrapContext {
	n := c
	n.packages = make(map[string]domain.PackageDeployment, len(c.packages)+1)
	for k, v := range c.packages {
		n.packages[k] = v
	}
	n.pools = make(map[string]domain.Pool, len(c.pools)+1)
	for k, v := range c.pools {
		n.pools[k] = v
	}
	n.managers = append([]string(nil), c.managers...)
	n.seeded = append([]string(nil), c.seeded...)
	n.pricePoints = append([]domain.ReferencePricePoint(nil), c.pricePoints...)
	return n
}

// WithPhase advances the phase. Phases never move backwards.
func (c BootstrapContext) WithPhase(p Phase) (BootstrapContext, error) {
	if p.index() < c.phase.index() {
		return c, fmt.Errorf("cannot move from %s back to %s: %w", c.phase, p, domain.ErrPhaseOrder)
	}
	n := c.clone()
	n.phase = p
	return n, nil
}

// WithPackage records a publish. A package id, once known, never changes.
func (c BootstrapContext) WithPackage(dep domain.PackageDeployment) (BootstrapContext, error) {
	if prev, ok := c.packages[dep.Name]; ok {
		if _, err := prev.WithPackageID(dep.PackageID); err != nil {
			return c, err
		}
	}
	n := c.clone()
	n.packages[dep.Name] = dep
	return n, nil
}

// WithPool records a created pool.
func (c BootstrapContext) WithPool(p domain.Pool) BootstrapContext {
	n := c.clone()
	n.pools[p.Name] = p
	return n
}

// WithBulkManagers appends one batch of bulk managers.
func (c BootstrapContext) WithBulkManagers(ids ...string) BootstrapContext {
	n := c.clone()
	n.managers = append(n.managers, ids...)
	return n
}

func (c BootstrapContext) WithSeedManager(id string) BootstrapContext {
	n := c.clone()
	n.seedManager = id
	return n
}

func (c BootstrapContext) WithFillManager(id string) BootstrapContext {
	n := c.clone()
	n.fillManager = id
	return n
}

// WithSeeded marks a reference pool as seeded.
func (c BootstrapContext) WithSeeded(pool string) BootstrapContext {
	if c.Seeded(pool) {
		return c
	}
	n := c.clone()
	n.seeded = append(n.seeded, pool)
	return n
}

// WithPricePoint records an added DEEP price point.
func (c BootstrapContext) WithPricePoint(pp domain.ReferencePricePoint) BootstrapContext {
	n := c.clone()
	n.pricePoints = append(n.pricePoints, pp)
	return n
}

// WithOrderRounds records how many bulk rounds have executed.
func (c BootstrapContext) WithOrderRounds(rounds int) BootstrapContext {
	n := c.clone()
	n.orderRounds = rounds
	return n
}

// WithFill records the fill order digest.
func (c BootstrapContext) WithFill(digest string) BootstrapContext {
	n := c.clone()
	n.fillDigest = digest
	return n
}

// contextState is the persisted form of BootstrapContext.
type contextState struct {
	RunID       string                              `json:"run_id"`
	Signer      string                              `json:"signer"`
	Phase       Phase                               `json:"phase"`
	Packages    map[string]domain.PackageDeployment `json:"packages,omitempty"`
	Pools       map[string]domain.Pool              `json:"pools,omitempty"`
	Managers    []string                            `json:"managers,omitempty"`
	SeedManager string                              `json:"seed_manager,omitempty"`
	FillManager string                              `json:"fill_manager,omitempty"`
	Seeded      []string                            `json:"seeded,omitempty"`
	PricePoints []domain.ReferencePricePoint        `json:"price_points,omitempty"`
	OrderRounds int                                 `json:"order_rounds,omitempty"`
	FillDigest  string                              `json:"fill_digest,omitempty"`
}

func (c BootstrapContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(contextState{
		RunID:       c.runID,
		Signer:      c.signer,
		Phase:       c.phase,
		Packages:    c.packages,
		Pools:       c.pools,
		Managers:    c.managers,
		SeedManager: c.seedManager,
		FillManager: c.fillManager,
		Seeded:      c.seeded,
		PricePoints: c.pricePoints,
		OrderRounds: c.orderRounds,
		FillDigest:  c.fillDigest,
	})
}

func (c *BootstrapContext) UnmarshalJSON(b []byte) error {
	var s contextState
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s.Phase.index() < 0 {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	*c = BootstrapContext{
		runID:       s.RunID,
		signer:      s.Signer,
		phase:       s.Phase,
		packages:    s.Packages,
		pools:       s.Pools,
		managers:    s.Managers,
		seedManager: s.SeedManager,
		fillManager: s.FillManager,
		seeded:      s.Seeded,
		pricePoints: s.PricePoints,
		orderRounds: s.OrderRounds,
		fillDigest:  s.FillDigest,
	}
	return nil
}

// LogValue renders the run summary: every id a later test run needs.
func (c BootstrapContext) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run_id", c.runID),
		slog.String("phase", string(c.phase)),
	}
	for _, name := range sortedKeys(c.packages) {
		dep := c.packages[name]
		group := []any{slog.String("package_id", dep.PackageID), slog.String("upgrade_cap", dep.UpgradeCapID)}
		for _, extra := range sortedKeys(dep.Extras) {
			group = append(group, slog.String(extra, dep.Extras[extra]))
		}
		attrs = append(attrs, slog.Group(name, group...))
	}
	for _, name := range sortedKeys(c.pools) {
		attrs = append(attrs, slog.String("pool "+name, c.pools[name].PoolID))
	}
	if len(c.managers) > 0 {
		attrs = append(attrs, slog.Int("bulk_managers", len(c.managers)))
	}
	if c.seedManager != "" {
		attrs = append(attrs, slog.String("seed_manager", c.seedManager))
	}
	if c.fillManager != "" {
		attrs = append(attrs, slog.String("fill_manager", c.fillManager))
	}
	if c.orderRounds > 0 {
		attrs = append(attrs, slog.Int("order_rounds", c.orderRounds))
	}
	if c.fillDigest != "" {
		attrs = append(attrs, slog.String("fill_digest", c.fillDigest))
	}
	return slog.GroupValue(attrs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
