package ledgertest

import (
	"fmt"
	"strings"

	"deepbook_go/internal/domain"
	"deepbook_go/internal/ptb"
)

// value is what a command left behind for later commands.
type value struct {
	object  string
	amounts []uint64
	proofOf string
}

// execution stages one batch; commit applies it to the ledger.
type execution struct {
	l      *Ledger
	b      *ptb.Batch
	values []value

	changes     []domain.ChangeRecord
	spent       map[string]uint64
	newCoins    map[string]uint64
	newPools    map[string]Pool
	newManagers map[string]bool
	deposits    []deposit
	orders      []Order
	pricePoints []PricePoint
}

type deposit struct {
	manager string
	asset   string
	amount  uint64
}

func (ex *execution) run() string {
	ex.newCoins = make(map[string]uint64)
	ex.newPools = make(map[string]Pool)
	ex.newManagers = make(map[string]bool)
	for i, call := range ex.b.Calls() {
		v, abort := ex.exec(call)
		if abort != "" {
			name := call.Function()
			if name == "" {
				name = call.Kind
			}
			return fmt.Sprintf("MoveAbort in command %d (%s): %s", i, name, abort)
		}
		ex.values = append(ex.values, v)
	}
	return ""
}

func (ex *execution) commit() {
	l := ex.l
	for id, amount := range ex.spent {
		if _, minted := ex.newCoins[id]; !minted {
			l.coins[id] -= amount
		}
	}
	for id, bal := range ex.newCoins {
		l.coins[id] = bal - ex.spent[id]
	}
	for id, p := range ex.newPools {
		l.pools[id] = p
	}
	for id := range ex.newManagers {
		l.managers[id] = make(map[string]uint64)
	}
	for _, d := range ex.deposits {
		l.managers[d.manager][d.asset] += d.amount
	}
	l.orders = append(l.orders, ex.orders...)
	l.pricePoints = append(l.pricePoints, ex.pricePoints...)
}

func (ex *execution) create(objectType string) string {
	id := ex.l.newID()
	ex.changes = append(ex.changes, domain.ChangeRecord{
		Kind:       domain.ChangeCreated,
		ObjectType: objectType,
		ObjectID:   id,
		Owner:      ex.l.address,
	})
	return id
}

func (ex *execution) exec(call ptb.Call) (value, string) {
	switch call.Kind {
	case "Publish":
		return ex.publish()
	case "SplitCoins":
		return ex.splitCoins(call.Args)
	case "TransferObjects", "MergeCoins":
		return value{}, ""
	}

	pkg := strings.SplitN(call.Target, "::", 2)[0]
	switch call.Function() {
	case "pool::create_pool_admin":
		return ex.createPool(pkg, call)
	case "balance_manager::new":
		id := ex.create(pkg + "::balance_manager::BalanceManager")
		ex.newManagers[id] = true
		return value{object: id}, ""
	case "balance_manager::deposit":
		return ex.deposit(call)
	case "balance_manager::share":
		return value{}, ""
	case "balance_manager::generate_proof_as_owner":
		manager, ok := ex.object(call.Args[0])
		if !ok || !ex.managerExists(manager) {
			return value{}, "balance manager not found"
		}
		return value{proofOf: manager}, ""
	case "pool::place_limit_order":
		return ex.placeLimitOrder(call)
	case "pool::add_deep_price_point":
		return ex.addPricePoint(call)
	}
	return value{}, "unknown function " + call.Target
}

func (ex *execution) publish() (value, string) {
	name := strings.TrimPrefix(ex.b.Label, "publish ")
	pkg := ex.l.newID()
	ex.changes = append(ex.changes, domain.ChangeRecord{Kind: domain.ChangePublished, PackageID: pkg, Version: 1})
	upgradeCap := ex.create("0x2::package::UpgradeCap")
	for _, tpl := range ex.l.publishes[name] {
		typ := tpl
		if strings.Contains(tpl, "%") {
			typ = fmt.Sprintf(tpl, pkg)
		}
		id := ex.create(typ)
		if strings.HasPrefix(typ, "0x2::coin::Coin<") {
			ex.newCoins[id] = CoinSupply
		}
	}
	return value{object: upgradeCap}, ""
}

func (ex *execution) splitCoins(args []ptb.Argument) (value, string) {
	var amounts []uint64
	var total uint64
	for _, a := range args[1:] {
		n, ok := ex.u64(a)
		if !ok {
			return value{}, "split amount is not a u64"
		}
		amounts = append(amounts, n)
		total += n
	}
	if args[0].IsGasCoin() {
		return value{amounts: amounts}, ""
	}

	coin, ok := ex.object(args[0])
	if !ok {
		return value{}, "split source is not a coin"
	}
	bal, known := ex.l.coins[coin]
	if !known {
		bal, known = ex.newCoins[coin]
	}
	if !known {
		return value{}, "coin " + coin + " not found"
	}
	if bal-ex.spent[coin] < total {
		return value{}, "InsufficientCoinBalance"
	}
	ex.spent[coin] += total
	return value{amounts: amounts}, ""
}

func (ex *execution) createPool(pkg string, call ptb.Call) (value, string) {
	if len(call.Args) != 8 || len(call.TypeArgs) != 2 {
		return value{}, "wrong arity"
	}
	base, quote := call.TypeArgs[0], call.TypeArgs[1]
	if base == quote {
		return value{}, "ESameBaseAndQuote"
	}
	for _, p := range ex.allPools() {
		if p.Base == base && p.Quote == quote {
			return value{}, "EPoolAlreadyExists"
		}
	}

	tick, ok1 := ex.u64(call.Args[1])
	lot, ok2 := ex.u64(call.Args[2])
	minSize, ok3 := ex.u64(call.Args[3])
	fee, ok4 := ex.coin(call.Args[4])
	whitelisted, ok5 := ex.boolean(call.Args[5])
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return value{}, "malformed arguments"
	}
	if tick == 0 || lot == 0 || minSize == 0 || minSize%lot != 0 {
		return value{}, "EInvalidPoolParams"
	}
	if fee == 0 {
		return value{}, "EInvalidFee"
	}

	pair := base + ", " + quote
	ex.create("0x2::dynamic_field::Field<" + pkg + "::registry::PoolKey, 0x2::object::ID>")
	ex.create("0x2::dynamic_field::Field<u64, " + pkg + "::pool::PoolInner<" + pair + ">>")
	id := ex.create(pkg + "::pool::Pool<" + pair + ">")
	ex.newPools[id] = Pool{
		ID: id, Base: base, Quote: quote,
		TickSize: tick, LotSize: lot, MinSize: minSize,
		Fee: fee, Whitelisted: whitelisted,
	}
	return value{object: id}, ""
}

func (ex *execution) deposit(call ptb.Call) (value, string) {
	manager, ok := ex.object(call.Args[0])
	if !ok || !ex.managerExists(manager) {
		return value{}, "balance manager not found"
	}
	amount, ok := ex.coin(call.Args[1])
	if !ok {
		return value{}, "deposit needs a split coin"
	}
	ex.deposits = append(ex.deposits, deposit{manager: manager, asset: call.TypeArgs[0], amount: amount})
	return value{}, ""
}

func (ex *execution) placeLimitOrder(call ptb.Call) (value, string) {
	if len(call.Args) != 12 || len(call.TypeArgs) != 2 {
		return value{}, "wrong arity"
	}
	poolID, _ := ex.object(call.Args[0])
	pool, ok := ex.pool(poolID)
	if !ok {
		return value{}, "pool not found"
	}
	if pool.Base != call.TypeArgs[0] || pool.Quote != call.TypeArgs[1] {
		return value{}, "type arguments do not match pool"
	}
	manager, _ := ex.object(call.Args[1])
	if !ex.managerExists(manager) {
		return value{}, "balance manager not found"
	}
	cmd, _, isResult := call.Args[2].ResultIndex()
	if !isResult || ex.values[cmd].proofOf != manager {
		return value{}, "EInvalidOwner"
	}

	o := Order{Batch: ex.b.Label, Pool: poolID, Manager: manager}
	var ok1, ok2, ok3, ok4, ok5, ok6, ok7, ok8 bool
	o.ClientOrderID, ok1 = ex.u64(call.Args[3])
	o.Restriction, ok2 = ex.u8(call.Args[4])
	o.SelfMatching, ok3 = ex.u8(call.Args[5])
	o.Price, ok4 = ex.u64(call.Args[6])
	o.Quantity, ok5 = ex.u64(call.Args[7])
	o.IsBid, ok6 = ex.boolean(call.Args[8])
	o.PayWithDeep, ok7 = ex.boolean(call.Args[9])
	o.Expiry, ok8 = ex.u64(call.Args[10])
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8) {
		return value{}, "malformed arguments"
	}
	if clock, _ := ex.object(call.Args[11]); clock != domain.ClockID {
		return value{}, "last argument is not the clock"
	}
	if o.Price == 0 || o.Price%pool.TickSize != 0 {
		return value{}, "EOrderInvalidPrice"
	}
	if o.Quantity < pool.MinSize || o.Quantity%pool.LotSize != 0 {
		return value{}, "EOrderBelowMinimumSize"
	}
	ex.orders = append(ex.orders, o)
	return value{}, ""
}

func (ex *execution) addPricePoint(call ptb.Call) (value, string) {
	if len(call.Args) != 3 || len(call.TypeArgs) != 4 {
		return value{}, "wrong arity"
	}
	targetID, _ := ex.object(call.Args[0])
	refID, _ := ex.object(call.Args[1])
	target, ok := ex.pool(targetID)
	if !ok {
		return value{}, "target pool not found"
	}
	ref, ok := ex.pool(refID)
	if !ok {
		return value{}, "reference pool not found"
	}
	if !ref.Whitelisted {
		return value{}, "EIneligibleReferencePool"
	}
	if call.TypeArgs[0] != target.Base || call.TypeArgs[2] != ref.Base || call.TypeArgs[3] != ref.Quote {
		return value{}, "type arguments do not match pools"
	}
	ex.pricePoints = append(ex.pricePoints, PricePoint{Target: targetID, Reference: refID})
	return value{}, ""
}

func (ex *execution) allPools() []Pool {
	pools := make([]Pool, 0, len(ex.l.pools)+len(ex.newPools))
	for _, p := range ex.l.pools {
		pools = append(pools, p)
	}
	for _, p := range ex.newPools {
		pools = append(pools, p)
	}
	return pools
}

func (ex *execution) pool(id string) (Pool, bool) {
	if p, ok := ex.l.pools[id]; ok {
		return p, true
	}
	p, ok := ex.newPools[id]
	return p, ok
}

func (ex *execution) managerExists(id string) bool {
	_, ok := ex.l.managers[id]
	return ok || ex.newManagers[id]
}

// object resolves an object input or a command result holding an object.
func (ex *execution) object(a ptb.Argument) (string, bool) {
	if in, ok := ex.b.InputOf(a); ok {
		return in.ObjectID, in.IsObject()
	}
	if cmd, nested, ok := a.ResultIndex(); ok && nested < 0 && cmd < len(ex.values) {
		v := ex.values[cmd]
		return v.object, v.object != ""
	}
	return "", false
}

// coin resolves the amount of a coin produced by SplitCoins.
func (ex *execution) coin(a ptb.Argument) (uint64, bool) {
	cmd, nested, ok := a.ResultIndex()
	if !ok || cmd >= len(ex.values) {
		return 0, false
	}
	amounts := ex.values[cmd].amounts
	if nested < 0 {
		nested = 0
	}
	if nested >= len(amounts) {
		return 0, false
	}
	return amounts[nested], true
}

func (ex *execution) u64(a ptb.Argument) (uint64, bool) {
	in, ok := ex.b.InputOf(a)
	if !ok {
		return 0, false
	}
	return in.U64Value()
}

func (ex *execution) u8(a ptb.Argument) (uint8, bool) {
	in, ok := ex.b.InputOf(a)
	if !ok || in.IsObject() || len(in.Pure) != 1 {
		return 0, false
	}
	return in.Pure[0], true
}

func (ex *execution) boolean(a ptb.Argument) (bool, bool) {
	in, ok := ex.b.InputOf(a)
	if !ok {
		return false, false
	}
	return in.BoolValue()
}
