package deepbook

import "deepbook_go/internal/domain"

// PoolSpec is one pool the bootstrap creates, by catalog names.
type PoolSpec struct {
	Base        string
	Quote       string
	Whitelisted bool
}

// Name is the human pool name, e.g. SUII/DEEP.
func (p PoolSpec) Name() string { return PoolName(p.Base, p.Quote) }

// PricePointSpec links a trading pool to the whitelisted pool it reads DEEP prices from.
type PricePointSpec struct {
	Target    string
	Reference string
}

// TradingPool receives the bulk orders and the fill order.
var TradingPool = PoolName(Suii, USDC)

// PoolPlan lists the pools in creation order: whitelisted reference pools first.
func PoolPlan() []PoolSpec {
	return []PoolSpec{
		{Base: Suii, Quote: Token, Whitelisted: true},
		{Base: Spam, Quote: Token, Whitelisted: true},
		{Base: Suii, Quote: USDC},
		{Base: Spam, Quote: USDC},
	}
}

// ReferencePools returns the whitelisted pools that get seeded.
func ReferencePools() []string {
	var names []string
	for _, p := range PoolPlan() {
		if p.Whitelisted {
			names = append(names, p.Name())
		}
	}
	return names
}

// PricePointPlan pairs each non-whitelisted pool with the reference pool sharing its base.
func PricePointPlan() []PricePointSpec {
	return []PricePointSpec{
		{Target: PoolName(Suii, USDC), Reference: PoolName(Suii, Token)},
		{Target: PoolName(Spam, USDC), Reference: PoolName(Spam, Token)},
	}
}

// PoolName renders catalog names with their coin symbols.
func PoolName(base, quote string) string {
	return symbol(base) + "/" + symbol(quote)
}

func symbol(name string) string {
	for _, t := range tokens {
		if t.name == name {
			return t.symbol
		}
	}
	return name
}

// Rules for objects created by pool and manager batches.
var (
	PoolCreated    = domain.Created().Containing("Pool").Excluding("Inner", "Key")
	ManagerCreated = domain.Created().Containing("::balance_manager::BalanceManager")
)
