package deepbook

import (
	"errors"
	"testing"

	"deepbook_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaths() map[string]string {
	return map[string]string{
		DeepBook: "pkgs/deepbook",
		Token:    "pkgs/token",
		USDC:     "pkgs/usdc",
		Spam:     "pkgs/spam",
		Suii:     "pkgs/suii",
	}
}

func TestCatalog_Order(t *testing.T) {
	specs, err := Catalog(testPaths())
	require.NoError(t, err)

	var names []string
	for _, s := range specs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{Token, USDC, Spam, Suii, DeepBook}, names)
	assert.Equal(t, []string{Token}, specs[4].DependsOn)
	assert.Contains(t, specs[4].Extras, ExtraRegistry)
	assert.Contains(t, specs[4].Extras, ExtraAdminCap)
	for _, s := range specs[:4] {
		assert.Contains(t, s.Extras, ExtraCoin, s.Name)
		assert.Contains(t, s.Extras, ExtraTreasury, s.Name)
		assert.Empty(t, s.DependsOn, s.Name)
	}
}

func TestCatalog_MissingPath(t *testing.T) {
	paths := testPaths()
	delete(paths, Spam)

	_, err := Catalog(paths)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "packages.spam")
}

func TestCatalog_RegistryRule(t *testing.T) {
	spec, err := Spec(DeepBook, "x")
	require.NoError(t, err)

	changes := []domain.ChangeRecord{
		{Kind: domain.ChangeCreated, ObjectType: "0x2::dynamic_field::Field<u64, 0xd::registry::RegistryInner>", ObjectID: "0xinner"},
		{Kind: domain.ChangeCreated, ObjectType: "0xd::registry::Registry", ObjectID: "0xreg"},
	}
	id, err := domain.Extract(changes, spec.Extras[ExtraRegistry])
	require.NoError(t, err)
	assert.Equal(t, "0xreg", id)
}

func TestCatalog_CoinRuleSkipsMetadata(t *testing.T) {
	spec, err := Spec(USDC, "x")
	require.NoError(t, err)

	changes := []domain.ChangeRecord{
		{Kind: domain.ChangeCreated, ObjectType: "0x2::coin::CoinMetadata<0xu::usdc::USDC>", ObjectID: "0xmeta"},
		{Kind: domain.ChangeCreated, ObjectType: "0x2::coin::Coin<0xu::usdc::USDC>", ObjectID: "0xcoin"},
	}
	id, err := domain.Extract(changes, spec.Extras[ExtraCoin])
	require.NoError(t, err)
	assert.Equal(t, "0xcoin", id)
}

func TestSpec_Unknown(t *testing.T) {
	_, err := Spec("walrus", "x")
	assert.Error(t, err)
}

func TestCoinType(t *testing.T) {
	asset, err := CoinType(domain.PackageDeployment{Name: Suii, PackageID: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, domain.NewAssetType("0xabc", "suii", "SUII"), asset)
	assert.Equal(t, "SUII", asset.Name())

	_, err = CoinType(domain.PackageDeployment{Name: Suii})
	assert.Error(t, err, "unpublished")

	_, err = CoinType(domain.PackageDeployment{Name: DeepBook, PackageID: "0x1"})
	assert.Error(t, err, "deepbook defines no coin")
}

func TestPoolPlan(t *testing.T) {
	var names []string
	for _, p := range PoolPlan() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"SUII/DEEP", "SPAM/DEEP", "SUII/USDC", "SPAM/USDC"}, names)
	assert.Equal(t, []string{"SUII/DEEP", "SPAM/DEEP"}, ReferencePools())
	assert.Equal(t, "SUII/USDC", TradingPool)

	for _, pp := range PricePointPlan() {
		assert.Contains(t, ReferencePools(), pp.Reference)
		assert.NotContains(t, ReferencePools(), pp.Target)
	}
}

func TestPoolCreatedRule(t *testing.T) {
	changes := []domain.ChangeRecord{
		{Kind: domain.ChangeCreated, ObjectType: "0x2::dynamic_field::Field<0xd::registry::PoolKey, 0x2::object::ID>", ObjectID: "0xkey"},
		{Kind: domain.ChangeCreated, ObjectType: "0x2::dynamic_field::Field<u64, 0xd::pool::PoolInner<0xa::suii::SUII, 0xb::deep::DEEP>>", ObjectID: "0xinner"},
		{Kind: domain.ChangeCreated, ObjectType: "0xd::pool::Pool<0xa::suii::SUII, 0xb::deep::DEEP>", ObjectID: "0xpool"},
	}
	id, err := domain.Extract(changes, PoolCreated)
	require.NoError(t, err)
	assert.Equal(t, "0xpool", id)
}
