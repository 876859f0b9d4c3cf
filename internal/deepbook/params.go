package deepbook

import (
	"math"

	"deepbook_go/internal/infra"
)

// Order policy codes understood by pool::place_limit_order.
const (
	NoRestriction       uint8 = 0
	ImmediateOrCancel   uint8 = 1
	FillOrKill          uint8 = 2
	PostOnly            uint8 = 3
	SelfMatchingAllowed uint8 = 0
	CancelTaker         uint8 = 1
	CancelMaker         uint8 = 2
)

const (
	// DefaultClientOrderID is attached to every order the bootstrap places.
	DefaultClientOrderID uint64 = 1

	// NoExpiry keeps resting orders alive indefinitely.
	NoExpiry uint64 = math.MaxUint64

	// ReferenceSpread is how many price units the seeded bid and ask sit from the mid.
	ReferenceSpread uint64 = 8
)

// Params are the pool and funding constants every template uses.
type Params struct {
	PoolCreationFee uint64
	FloatScaling    uint64
	TickSize        uint64
	LotSize         uint64
	MinSize         uint64
	StartingBalance uint64
}

// ParamsFrom copies the on-chain constants out of the bootstrap config.
func ParamsFrom(cfg infra.BootstrapConfig) Params {
	return Params{
		PoolCreationFee: cfg.PoolCreationFee,
		FloatScaling:    cfg.FloatScaling,
		TickSize:        cfg.TickSize,
		LotSize:         cfg.LotSize,
		MinSize:         cfg.MinSize,
		StartingBalance: cfg.StartingBalance,
	}
}

// OrderParams are the arguments of one limit order placement.
type OrderParams struct {
	ClientOrderID uint64
	Restriction   uint8
	SelfMatching  uint8
	Price         uint64
	Quantity      uint64
	IsBid         bool
	PayWithDeep   bool
	Expiry        uint64
}

// LimitOrder returns the long-lived, unrestricted order the bootstrap uses everywhere.
func LimitOrder(price, quantity uint64, isBid bool) OrderParams {
	return OrderParams{
		ClientOrderID: DefaultClientOrderID,
		Restriction:   NoRestriction,
		SelfMatching:  SelfMatchingAllowed,
		Price:         price,
		Quantity:      quantity,
		IsBid:         isBid,
		PayWithDeep:   true,
		Expiry:        NoExpiry,
	}
}
