package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SuiFramework and ClockID are the well-known system objects every bootstrap touches.
const (
	SuiFramework = "0x0000000000000000000000000000000000000000000000000000000000000002"
	ClockID      = "0x0000000000000000000000000000000000000000000000000000000000000006"
)

// NormalizeID pads a hex object id or address to the canonical 0x + 64 hex form.
func NormalizeID(id string) string {
	s := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "0x"))
	if len(s) < 64 {
		s = strings.Repeat("0", 64-len(s)) + s
	}
	return "0x" + s
}

// AssetType is a fully qualified Move type: <package>::<module>::<Name>.
type AssetType string

// NewAssetType derives the type of a coin published by packageID.
func NewAssetType(packageID, module, name string) AssetType {
	return AssetType(NormalizeID(packageID) + "::" + module + "::" + name)
}

// SuiType is the native gas coin type.
func SuiType() AssetType {
	return NewAssetType(SuiFramework, "sui", "SUI")
}

// ParseAssetType validates the three-part form and normalizes the address.
func ParseAssetType(s string) (AssetType, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("malformed asset type %q", s)
	}
	return NewAssetType(parts[0], parts[1], parts[2]), nil
}

// Package returns the address part.
func (a AssetType) Package() string {
	return strings.SplitN(string(a), "::", 2)[0]
}

// Name returns the trailing type name, e.g. DEEP.
func (a AssetType) Name() string {
	i := strings.LastIndex(string(a), "::")
	if i < 0 {
		return string(a)
	}
	return string(a)[i+2:]
}

func (a AssetType) String() string { return string(a) }

// PackageDeployment records what a publish produced.
type PackageDeployment struct {
	Name         string            `json:"name"`
	SourcePath   string            `json:"source_path"`
	PackageID    string            `json:"package_id,omitempty"`
	UpgradeCapID string            `json:"upgrade_cap_id,omitempty"`
	Extras       map[string]string `json:"extras,omitempty"` // e.g. "treasury", "coin", "registry", "admin_cap"
}

// WithPackageID returns a copy with the package id set. A package id never changes once assigned.
func (p PackageDeployment) WithPackageID(id string) (PackageDeployment, error) {
	if p.PackageID != "" && p.PackageID != id {
		return p, fmt.Errorf("package %s already published at %s", p.Name, p.PackageID)
	}
	p.PackageID = id
	return p, nil
}

// Extra returns a named extra id or an error naming what is missing.
func (p PackageDeployment) Extra(name string) (string, error) {
	id, ok := p.Extras[name]
	if !ok || id == "" {
		return "", &ResourceNotFoundError{Context: p.Name, Predicate: "extra " + name}
	}
	return id, nil
}

// Pool is an order book for one (base, quote) pair. Sizes are fixed at creation.
type Pool struct {
	Name        string    `json:"name"`
	PoolID      string    `json:"pool_id"`
	Base        AssetType `json:"base"`
	Quote       AssetType `json:"quote"`
	TickSize    uint64    `json:"tick_size"`
	LotSize     uint64    `json:"lot_size"`
	MinSize     uint64    `json:"min_size"`
	Whitelisted bool      `json:"whitelisted"`
}

// Funding pairs an asset type with the coin object deposits are split from.
type Funding struct {
	Asset  AssetType `json:"asset"`
	CoinID string    `json:"coin_id"`
}

// ReferencePricePoint links a trading pool's DEEP price to a reference pool.
type ReferencePricePoint struct {
	TargetPoolID    string `json:"target_pool_id"`
	ReferencePoolID string `json:"reference_pool_id"`
}

// Checkpoint is one persisted phase boundary of a bootstrap run.
type Checkpoint struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"index" json:"run_id"`
	Phase     string    `json:"phase"`
	State     string    `json:"state"` // JSON-encoded bootstrap context
	Signer    string    `json:"signer"`
	CreatedAt time.Time `json:"created_at"`
}

// DecodeState unmarshals the stored context into v.
func (c *Checkpoint) DecodeState(v any) error {
	return json.Unmarshal([]byte(c.State), v)
}
