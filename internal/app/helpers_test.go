package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"deepbook_go/internal/deepbook"
	"deepbook_go/internal/domain"
	"deepbook_go/internal/infra"
	"deepbook_go/internal/ledgertest"
	"deepbook_go/internal/ptb"
)

// journal records builds and manifest writes in the order they happened.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

func (j *journal) index(event string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, e := range j.events {
		if e == event {
			return i
		}
	}
	return -1
}

type fakeBuilder struct {
	j    *journal
	fail map[string]error
}

func (f *fakeBuilder) Build(ctx context.Context, path string) (*domain.CompiledPackage, error) {
	name := filepath.Base(path)
	f.j.add("build %s", name)
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	return &domain.CompiledPackage{
		Modules:      [][]byte{[]byte(name)},
		Dependencies: []string{"0x1", "0x2"},
	}, nil
}

type fakeManifest struct {
	j     *journal
	ids   map[string]string
	stale bool // writes do not stick, like a manifest restored by another process
}

func (f *fakeManifest) SetAddress(path, name, packageID string) error {
	f.j.add("manifest %s %s", name, packageID)
	f.ids[name] = packageID
	if f.stale {
		f.ids[name] = "0x0"
	}
	return nil
}

func (f *fakeManifest) Address(path, name string) (string, error) {
	id, ok := f.ids[name]
	if !ok {
		return "", fmt.Errorf("no address %s", name)
	}
	return id, nil
}

// chain wraps the ledger to observe awaits and tamper with results.
type chain struct {
	*ledgertest.Ledger

	mu       sync.Mutex
	awaited  []string
	awaitErr error
	rewrite  func(b *ptb.Batch, changes []domain.ChangeRecord)
}

func (c *chain) Submit(ctx context.Context, b *ptb.Batch) (*domain.TxResult, error) {
	res, err := c.Ledger.Submit(ctx, b)
	if err != nil || c.rewrite == nil {
		return res, err
	}
	out := *res
	out.Changes = append([]domain.ChangeRecord(nil), res.Changes...)
	c.rewrite(b, out.Changes)
	return &out, nil
}

func (c *chain) AwaitTransaction(ctx context.Context, digest string) (*domain.TxResult, error) {
	c.mu.Lock()
	c.awaited = append(c.awaited, digest)
	err := c.awaitErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Ledger.AwaitTransaction(ctx, digest)
}

func (c *chain) awaits() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.awaited...)
}

type fakeFaucet struct{ calls []string }

func (f *fakeFaucet) Fund(ctx context.Context, address string) error {
	f.calls = append(f.calls, address)
	return nil
}

type memStore struct {
	mu   sync.Mutex
	runs map[string][]domain.Checkpoint
}

func newMemStore() *memStore { return &memStore{runs: make(map[string][]domain.Checkpoint)} }

func (s *memStore) SaveCheckpoint(cp *domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[cp.RunID] = append(s.runs[cp.RunID], *cp)
	return nil
}

func (s *memStore) LatestCheckpoint(runID string) (*domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cps := s.runs[runID]
	if len(cps) == 0 {
		return nil, nil
	}
	cp := cps[len(cps)-1]
	return &cp, nil
}

func (s *memStore) phases(runID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, cp := range s.runs[runID] {
		out = append(out, cp.Phase)
	}
	return out
}

type harness struct {
	cfg      *infra.Config
	ledger   *ledgertest.Ledger
	chain    *chain
	journal  *journal
	builder  *fakeBuilder
	manifest *fakeManifest
	faucet   *fakeFaucet
	store    *memStore
	metrics  *infra.Metrics
}

func newHarness(t *testing.T, tweak func(cfg *infra.Config)) *harness {
	t.Helper()
	cfg := infra.Defaults()
	cfg.Packages = map[string]string{}
	for _, name := range deepbook.PublishOrder() {
		cfg.Packages[name] = "packages/" + name
	}
	cfg.Bootstrap.OrderIterations = 3
	if tweak != nil {
		tweak(cfg)
	}

	j := &journal{}
	ledger := ledgertest.New(ptb.Limits{
		MaxCommands:     cfg.Limits.MaxCommands,
		MaxInputObjects: cfg.Limits.MaxInputObjects,
		MaxGasBudget:    cfg.Limits.MaxGasBudget,
	})
	return &harness{
		cfg:      cfg,
		ledger:   ledger,
		chain:    &chain{Ledger: ledger},
		journal:  j,
		builder:  &fakeBuilder{j: j, fail: map[string]error{}},
		manifest: &fakeManifest{j: j, ids: map[string]string{}},
		faucet:   &fakeFaucet{},
		store:    newMemStore(),
		metrics:  &infra.Metrics{},
	}
}

func (h *harness) orchestrator() *Orchestrator {
	return NewOrchestrator(h.cfg, Deps{
		Submitter: h.chain,
		Builder:   h.builder,
		Manifest:  h.manifest,
		Faucet:    h.faucet,
		Store:     h.store,
		Metrics:   h.metrics,
	})
}

func (h *harness) newContext() BootstrapContext {
	return NewBootstrapContext("run-1", ledgertest.Sender)
}

func (h *harness) labels(prefix string) []string {
	var out []string
	for _, b := range h.ledger.Batches() {
		if strings.HasPrefix(b.Label, prefix) {
			out = append(out, b.Label)
		}
	}
	return out
}
