package deepbook

import (
	"errors"
	"fmt"

	"deepbook_go/internal/domain"
	"deepbook_go/internal/ptb"
)

var (
	// ErrPriceUnderflow is returned when a reference bid would fall to or below zero.
	ErrPriceUnderflow = errors.New("mid price too low for reference spread")

	// ErrNotEnoughManagers is returned when a round asks for more managers than exist.
	ErrNotEnoughManagers = errors.New("not enough balance managers")
)

// Templates lays out DeepBook batches for one published deepbook package.
// Every method only builds; nothing is submitted.
type Templates struct {
	pkg    string
	params Params
	limits ptb.Limits
}

// NewTemplates binds templates to the deepbook package id.
func NewTemplates(packageID string, params Params, limits ptb.Limits) *Templates {
	return &Templates{pkg: domain.NormalizeID(packageID), params: params, limits: limits}
}

// Params returns the constants the templates were built with.
func (t *Templates) Params() Params { return t.params }

func (t *Templates) target(module, function string) string {
	return t.pkg + "::" + module + "::" + function
}

// checkCommands rejects a layout before any command is added.
func (t *Templates) checkCommands(label string, n int) error {
	if t.limits.MaxCommands > 0 && n > t.limits.MaxCommands {
		return &ptb.CapacityError{Batch: label, Limit: "commands", Have: uint64(n), Max: uint64(t.limits.MaxCommands)}
	}
	return nil
}

// CreatePoolAdmin splits the creation fee off the DEEP coin and creates a pool with the admin cap.
func (t *Templates) CreatePoolAdmin(registry, adminCap, deepCoin string, base, quote domain.AssetType, whitelisted bool) *ptb.Batch {
	b := ptb.New(fmt.Sprintf("create pool %s/%s", base.Name(), quote.Name()))
	fee := b.SplitCoins(b.Object(deepCoin), b.U64(t.params.PoolCreationFee))
	b.MoveCall(t.target("pool", "create_pool_admin"),
		[]string{base.String(), quote.String()},
		b.Object(registry),
		b.U64(t.params.TickSize),
		b.U64(t.params.LotSize),
		b.U64(t.params.MinSize),
		fee.Nested(0),
		b.Bool(whitelisted),
		b.Bool(false), // stable pool
		b.Object(adminCap),
	)
	return b
}

// ManagerCommands is the number of commands one funded manager needs.
func ManagerCommands(assets int) int { return 2 + 2*assets }

// CreateBalanceManagers creates count managers, each funded with StartingBalance of every asset.
func (t *Templates) CreateBalanceManagers(fundings []domain.Funding, count int) (*ptb.Batch, error) {
	label := fmt.Sprintf("create %d balance managers", count)
	if count == 1 {
		label = "create balance manager"
	}
	if count <= 0 {
		return nil, fmt.Errorf("%s: count must be positive", label)
	}
	if err := t.checkCommands(label, count*ManagerCommands(len(fundings))); err != nil {
		return nil, err
	}

	b := ptb.New(label)
	for i := 0; i < count; i++ {
		manager := b.MoveCall(t.target("balance_manager", "new"), nil)
		for _, f := range fundings {
			coin := b.SplitCoins(b.Object(f.CoinID), b.U64(t.params.StartingBalance))
			b.MoveCall(t.target("balance_manager", "deposit"), []string{f.Asset.String()}, manager, coin.Nested(0))
		}
		b.MoveCall(t.target("balance_manager", "share"), nil, manager)
	}
	return b, nil
}

// placeLimitOrder appends one place_limit_order call.
func (t *Templates) placeLimitOrder(b *ptb.Batch, pool domain.Pool, manager string, proof ptb.Argument, o OrderParams) {
	b.MoveCall(t.target("pool", "place_limit_order"),
		[]string{pool.Base.String(), pool.Quote.String()},
		b.Object(pool.PoolID),
		b.Object(manager),
		proof,
		b.U64(o.ClientOrderID),
		b.U8(o.Restriction),
		b.U8(o.SelfMatching),
		b.U64(o.Price),
		b.U64(o.Quantity),
		b.Bool(o.IsBid),
		b.Bool(o.PayWithDeep),
		b.U64(o.Expiry),
		b.ImmutableObject(domain.ClockID),
	)
}

func (t *Templates) proof(b *ptb.Batch, manager string) ptb.Argument {
	return b.MoveCall(t.target("balance_manager", "generate_proof_as_owner"), nil, b.Object(manager))
}

// SeedReferencePool places a bid ReferenceSpread units below mid and an ask the same distance above,
// both from one proof, so the pool always quotes both sides.
func (t *Templates) SeedReferencePool(pool domain.Pool, manager string, mid uint64) (*ptb.Batch, error) {
	spread := ReferenceSpread * t.params.FloatScaling
	if mid <= spread {
		return nil, fmt.Errorf("seed %s: mid %d <= spread %d: %w", pool.Name, mid, spread, ErrPriceUnderflow)
	}

	b := ptb.New("seed reference pool " + pool.Name)
	proof := t.proof(b, manager)
	t.placeLimitOrder(b, pool, manager, proof, LimitOrder(mid-spread, t.params.FloatScaling, true))
	t.placeLimitOrder(b, pool, manager, proof, LimitOrder(mid+spread, t.params.FloatScaling, false))
	return b, nil
}

// AddDeepPricePoint records the reference pool's DEEP price on the target pool.
func (t *Templates) AddDeepPricePoint(target, ref domain.Pool) *ptb.Batch {
	b := ptb.New(fmt.Sprintf("add deep price point %s <- %s", target.Name, ref.Name))
	b.MoveCall(t.target("pool", "add_deep_price_point"),
		[]string{target.Base.String(), target.Quote.String(), ref.Base.String(), ref.Quote.String()},
		b.Object(target.PoolID),
		b.ImmutableObject(ref.PoolID),
		b.ImmutableObject(domain.ClockID),
	)
	return b
}

// PlaceLimitOrders places count identical orders from one manager sharing one proof.
func (t *Templates) PlaceLimitOrders(label string, pool domain.Pool, manager string, o OrderParams, count int) (*ptb.Batch, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%s: count must be positive", label)
	}
	if err := t.checkCommands(label, 1+count); err != nil {
		return nil, err
	}
	b := ptb.New(label)
	proof := t.proof(b, manager)
	for i := 0; i < count; i++ {
		t.placeLimitOrder(b, pool, manager, proof, o)
	}
	return b, nil
}

// PlaceOrdersAcrossManagers places one order from each of the first batchSize managers.
func (t *Templates) PlaceOrdersAcrossManagers(label string, pool domain.Pool, managers []string, o OrderParams, batchSize int) (*ptb.Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%s: batch size must be positive", label)
	}
	if batchSize > len(managers) {
		return nil, fmt.Errorf("%s: %d orders need %d managers, have %d: %w", label, batchSize, batchSize, len(managers), ErrNotEnoughManagers)
	}
	if err := t.checkCommands(label, 2*batchSize); err != nil {
		return nil, err
	}
	b := ptb.New(label)
	for _, manager := range managers[:batchSize] {
		proof := t.proof(b, manager)
		t.placeLimitOrder(b, pool, manager, proof, o)
	}
	return b, nil
}
