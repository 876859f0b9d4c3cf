// Package deepbook knows the DeepBook packages, their Move entry points and
// how to lay out the batches that create pools, fund managers and place orders.
package deepbook

import (
	"fmt"

	"deepbook_go/internal/deploy"
	"deepbook_go/internal/domain"
)

// Catalog names. Paths for each come from configuration.
const (
	DeepBook = "deepbook"
	Token    = "token"
	USDC     = "usdc"
	Spam     = "spam"
	Suii     = "suii"
)

// Extra names recorded on PackageDeployment.Extras.
const (
	ExtraRegistry = "registry"
	ExtraAdminCap = "admin_cap"
	ExtraTreasury = "treasury"
	ExtraCoin     = "coin"
)

// coinPackage describes a token package: the Move module and the coin struct it defines.
type coinPackage struct {
	name   string
	module string
	symbol string
}

// tokens in publish order. The DEEP token package must come first.
var tokens = []coinPackage{
	{Token, "deep", "DEEP"},
	{USDC, "usdc", "USDC"},
	{Spam, "spam", "SPAM"},
	{Suii, "suii", "SUII"},
}

// PublishOrder lists every catalog name in the order packages are published.
func PublishOrder() []string {
	return []string{Token, USDC, Spam, Suii, DeepBook}
}

// TokenNames lists the coin packages in deposit order.
func TokenNames() []string {
	names := make([]string, len(tokens))
	for i, t := range tokens {
		names[i] = t.name
	}
	return names
}

func coinRules(symbol string) map[string]domain.Predicate {
	return map[string]domain.Predicate{
		ExtraTreasury: domain.Created().Containing("ProtectedTreasury"),
		ExtraCoin:     domain.Created().Containing("Coin", symbol).Excluding("Meta"),
	}
}

// Spec returns the package spec for a catalog name rooted at path.
func Spec(name, path string) (deploy.PackageSpec, error) {
	if name == DeepBook {
		return deploy.PackageSpec{
			Name: DeepBook,
			Path: path,
			Extras: map[string]domain.Predicate{
				ExtraRegistry: domain.Created().Containing("Registry").Excluding("Inner"),
				ExtraAdminCap: domain.Created().Containing("DeepbookAdminCap"),
			},
			DependsOn: []string{Token},
		}, nil
	}
	for _, t := range tokens {
		if t.name == name {
			return deploy.PackageSpec{Name: name, Path: path, Extras: coinRules(t.symbol)}, nil
		}
	}
	return deploy.PackageSpec{}, fmt.Errorf("unknown package %q", name)
}

// Catalog returns every package spec in publish order. paths must name all of them.
func Catalog(paths map[string]string) ([]deploy.PackageSpec, error) {
	specs := make([]deploy.PackageSpec, 0, len(tokens)+1)
	for _, name := range PublishOrder() {
		path, ok := paths[name]
		if !ok || path == "" {
			return nil, domain.NewConfigError("packages."+name, "missing source path")
		}
		spec, err := Spec(name, path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// CoinType returns the coin type a token deployment defines.
func CoinType(dep domain.PackageDeployment) (domain.AssetType, error) {
	for _, t := range tokens {
		if t.name == dep.Name {
			if dep.PackageID == "" {
				return "", fmt.Errorf("package %s has not been published", dep.Name)
			}
			return domain.NewAssetType(dep.PackageID, t.module, t.symbol), nil
		}
	}
	return "", fmt.Errorf("package %q defines no coin", dep.Name)
}
