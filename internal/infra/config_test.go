package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deepbook_go/internal/domain"

	"github.com/shopspring/decimal"
)

const sampleConfig = `
app:
  name: deepbook-bootstrap
network:
  rpc_url: ws://127.0.0.1:9000
  gas_budget: 5000000000
  settle_timeout: 10s
packages:
  deepbook: ../deepbookv3/packages/deepbook
  token: ../deepbookv3/packages/token
  usdc: ../deepbookv3/packages/usdc
  spam: ../deepbookv3/packages/spam
  suii: ../deepbookv3/packages/suii
bootstrap:
  mid_price: "100.5"
  manager_count: 10
  order_batch_size: 10
  order_iterations: 3
  fill_debug: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SUI_PRIVATE_KEY", "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8g")
	t.Setenv("SUI_FAUCET_URL", "http://faucet.local/gas")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Network.RPCURL != "ws://127.0.0.1:9000" {
		t.Errorf("rpc_url = %q", cfg.Network.RPCURL)
	}
	if cfg.Network.FaucetURL != "http://faucet.local/gas" {
		t.Errorf("faucet url should come from env, got %q", cfg.Network.FaucetURL)
	}
	if cfg.Network.GasBudget != 5_000_000_000 {
		t.Errorf("gas_budget = %d", cfg.Network.GasBudget)
	}
	if cfg.Network.SettleTimeout != 10*time.Second {
		t.Errorf("settle_timeout = %s", cfg.Network.SettleTimeout)
	}
	// Unset values keep their defaults.
	if cfg.Network.PollInterval != 500*time.Millisecond {
		t.Errorf("poll_interval = %s", cfg.Network.PollInterval)
	}
	if cfg.Bootstrap.PoolCreationFee != 10_000_000_000 {
		t.Errorf("pool_creation_fee = %d", cfg.Bootstrap.PoolCreationFee)
	}
	if !cfg.Bootstrap.MidPrice.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("mid_price = %s", cfg.Bootstrap.MidPrice)
	}
	if cfg.Bootstrap.ManagerCount != 10 || cfg.Bootstrap.OrderIterations != 3 {
		t.Errorf("bootstrap counts not loaded: %+v", cfg.Bootstrap)
	}
	if cfg.Bootstrap.FillDebug {
		t.Error("fill_debug: false should override the default")
	}
	if !Defaults().Bootstrap.FillDebug {
		t.Error("fill_debug should default to true")
	}
}

func TestLoadConfig_MissingKey(t *testing.T) {
	t.Setenv("SUI_PRIVATE_KEY", "")

	_, err := LoadConfig(writeConfig(t, sampleConfig))
	var ce *domain.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Field != "network.private_key" {
		t.Errorf("Field = %q", ce.Field)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Network.PrivateKey = "key"
		cfg.Packages = map[string]string{
			"deepbook": "a", "token": "b", "usdc": "c", "spam": "d", "suii": "e",
		}
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"bad scheme", func(c *Config) { c.Network.RPCURL = "tcp://x" }, "network.rpc_url"},
		{"missing package", func(c *Config) { delete(c.Packages, "spam") }, "packages.spam"},
		{"gas above ceiling", func(c *Config) { c.Network.GasBudget = c.Limits.MaxGasBudget + 1 }, "network.gas_budget"},
		{"batch above managers", func(c *Config) { c.Bootstrap.OrderBatchSize = c.Bootstrap.ManagerCount + 1 }, "bootstrap.order_batch_size"},
		{"mid price inside spread", func(c *Config) { c.Bootstrap.MidPrice = decimal.NewFromInt(8) }, "bootstrap.mid_price"},
		{"empty build command", func(c *Config) { c.Build.Command = " " }, "build.command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mut(cfg)
			var ce *domain.ConfigError
			if err := cfg.Validate(); !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("Validate() = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestScaledPrice(t *testing.T) {
	b := Defaults().Bootstrap
	if got := b.ScaledPrice(decimal.NewFromInt(100)); got != 100_000_000_000 {
		t.Errorf("ScaledPrice(100) = %d", got)
	}
	if got := b.ScaledPrice(decimal.RequireFromString("0.5")); got != 500_000_000 {
		t.Errorf("ScaledPrice(0.5) = %d", got)
	}
}
