// Package ledgertest provides an in-memory ledger that executes DeepBook
// bootstrap batches well enough to test the orchestration against it.
package ledgertest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"deepbook_go/internal/domain"
	"deepbook_go/internal/ptb"
)

// Sender is the address the ledger signs for unless another is given.
const Sender = "0x00000000000000000000000000000000000000000000000000000000000000aa"

// CoinSupply is the balance of every coin a publish mints.
const CoinSupply uint64 = math.MaxUint64 / 4

// Pool is what the ledger recorded for create_pool_admin.
type Pool struct {
	ID          string
	Base, Quote string
	TickSize    uint64
	LotSize     uint64
	MinSize     uint64
	Fee         uint64
	Whitelisted bool
}

// Order is one executed place_limit_order.
type Order struct {
	Batch         string
	Pool          string
	Manager       string
	ClientOrderID uint64
	Restriction   uint8
	SelfMatching  uint8
	Price         uint64
	Quantity      uint64
	IsBid         bool
	PayWithDeep   bool
	Expiry        uint64
}

// PricePoint is one executed add_deep_price_point.
type PricePoint struct {
	Target    string
	Reference string
}

// Ledger implements domain.Submitter in memory. Batches apply atomically:
// an aborted batch changes nothing but still counts as submitted.
type Ledger struct {
	mu      sync.Mutex
	address string
	limits  ptb.Limits
	seq     uint64

	publishes map[string][]string

	// FailWhen, if set, aborts batches for which it returns a non-empty message.
	FailWhen func(b *ptb.Batch) string

	batches []*ptb.Batch
	results map[string]*domain.TxResult

	coins       map[string]uint64
	pools       map[string]Pool
	managers    map[string]map[string]uint64
	orders      []Order
	pricePoints []PricePoint
}

// New returns an empty ledger enforcing limits.
func New(limits ptb.Limits) *Ledger {
	return &Ledger{
		address:   Sender,
		limits:    limits,
		publishes: DeepBookPublishes(),
		results:   make(map[string]*domain.TxResult),
		coins:     make(map[string]uint64),
		pools:     make(map[string]Pool),
		managers:  make(map[string]map[string]uint64),
	}
}

// DeepBookPublishes lists the objects each catalog package creates on publish.
// "%[1]s" is replaced by the new package id.
func DeepBookPublishes() map[string][]string {
	coin := func(module, symbol string) []string {
		return []string{
			"0x2::coin::CoinMetadata<%[1]s::" + module + "::" + symbol + ">",
			"%[1]s::" + module + "::ProtectedTreasury",
			"0x2::coin::Coin<%[1]s::" + module + "::" + symbol + ">",
		}
	}
	return map[string][]string{
		"token": coin("deep", "DEEP"),
		"usdc":  coin("usdc", "USDC"),
		"spam":  coin("spam", "SPAM"),
		"suii":  coin("suii", "SUII"),
		"deepbook": {
			"0x2::dynamic_field::Field<u64, %[1]s::registry::RegistryInner>",
			"%[1]s::registry::Registry",
			"%[1]s::registry::DeepbookAdminCap",
		},
	}
}

// SetPublish overrides what publishing the named package creates.
func (l *Ledger) SetPublish(name string, types []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publishes[name] = types
}

// Address returns the sender address.
func (l *Ledger) Address() string { return l.address }

func (l *Ledger) newID() string {
	l.seq++
	return fmt.Sprintf("0x%064x", 0x1000+l.seq)
}

// Submit validates b against the limits and executes it.
func (l *Ledger) Submit(ctx context.Context, b *ptb.Batch) (*domain.TxResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.Validate(l.limits); err != nil {
		return nil, &domain.SubmissionError{Batch: b.Label, Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.batches = append(l.batches, b)
	l.seq++
	digest := fmt.Sprintf("tx%06d", l.seq)

	res := &domain.TxResult{
		Digest: digest,
		Status: domain.TxSuccess,
		Gas:    domain.GasSummary{ComputationCost: 1000 * uint64(b.Commands()), StorageCost: 100},
	}

	abort := ""
	if l.FailWhen != nil {
		abort = l.FailWhen(b)
	}
	var ex *execution
	if abort == "" {
		ex = &execution{l: l, b: b, values: make([]value, 0, b.Commands()), spent: make(map[string]uint64)}
		abort = ex.run()
	}
	if abort != "" {
		res.Status = domain.TxFailure
		res.Error = abort
		res.Changes = []domain.ChangeRecord{gasChange(l.address)}
		l.results[digest] = res
		return res, nil
	}

	ex.commit()
	res.Changes = append(ex.changes, gasChange(l.address))
	l.results[digest] = res
	return res, nil
}

func gasChange(owner string) domain.ChangeRecord {
	return domain.ChangeRecord{
		Kind:       domain.ChangeMutated,
		ObjectType: "0x2::coin::Coin<0x2::sui::SUI>",
		ObjectID:   "0x" + strings.Repeat("9", 64),
		Owner:      owner,
	}
}

// AwaitTransaction returns the stored result of an earlier submission.
func (l *Ledger) AwaitTransaction(ctx context.Context, digest string) (*domain.TxResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.results[digest]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", digest)
	}
	return res, nil
}

// Batches returns every batch submitted so far, including rejected-on-chain ones.
func (l *Ledger) Batches() []*ptb.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*ptb.Batch(nil), l.batches...)
}

// Pools returns the created pools keyed by id.
func (l *Ledger) Pools() map[string]Pool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Pool, len(l.pools))
	for k, v := range l.pools {
		out[k] = v
	}
	return out
}

// Balance returns a manager's balance of asset.
func (l *Ledger) Balance(manager, asset string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.managers[domain.NormalizeID(manager)][asset]
}

// Managers returns the number of balance managers created.
func (l *Ledger) Managers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.managers)
}

// Orders returns every placed order in execution order.
func (l *Ledger) Orders() []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Order(nil), l.orders...)
}

// PricePoints returns every added DEEP price point.
func (l *Ledger) PricePoints() []PricePoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]PricePoint(nil), l.pricePoints...)
}

// CoinBalance returns the remaining balance of a minted coin.
func (l *Ledger) CoinBalance(id string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coins[domain.NormalizeID(id)]
}
