package infra

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"deepbook_go/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultBuildCommand compiles a Move package and prints base64 modules as JSON.
const DefaultBuildCommand = "sui move build --dump-bytecode-as-base64 --ignore-chain"

// Config holds every setting of a bootstrap run.
// LoadConfig reads the YAML file, then lets the environment override secrets and endpoints.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Network struct {
		RPCURL         string        `yaml:"rpc_url"` // http(s):// or ws(s)://
		FaucetURL      string        `yaml:"faucet_url"`
		FaucetRequests int           `yaml:"faucet_requests"`
		GasBudget      uint64        `yaml:"gas_budget"` // MIST
		RequestTimeout time.Duration `yaml:"request_timeout"`
		SettleTimeout  time.Duration `yaml:"settle_timeout"`
		PollInterval   time.Duration `yaml:"poll_interval"`
		PrivateKey     string        `yaml:"private_key"` // prefer SUI_PRIVATE_KEY
	} `yaml:"network"`

	Build struct {
		Command string `yaml:"command"`
	} `yaml:"build"`

	// Packages maps catalog names (deepbook, token, usdc, spam, suii) to source directories.
	Packages map[string]string `yaml:"packages"`

	Limits struct {
		MaxCommands     int    `yaml:"max_commands"`
		MaxInputObjects int    `yaml:"max_input_objects"`
		MaxGasBudget    uint64 `yaml:"max_gas_budget"`
	} `yaml:"limits"`

	Bootstrap BootstrapConfig `yaml:"bootstrap"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// BootstrapConfig carries the on-chain constants. Units are noted per field.
type BootstrapConfig struct {
	PoolCreationFee uint64          `yaml:"pool_creation_fee"` // DEEP minor units (DEEP has 6 decimals)
	FloatScaling    uint64          `yaml:"float_scaling"`     // fixed-point scale of prices (1e9)
	TickSize        uint64          `yaml:"tick_size"`         // price units
	LotSize         uint64          `yaml:"lot_size"`          // base minor units
	MinSize         uint64          `yaml:"min_size"`          // base minor units
	StartingBalance uint64          `yaml:"starting_balance"`  // per asset per manager, minor units
	MidPrice        decimal.Decimal `yaml:"mid_price"`         // quote per base, human units
	OrderPrice      decimal.Decimal `yaml:"order_price"`       // quote per base, human units
	ManagerCount    int             `yaml:"manager_count"`     // managers for the bulk loop
	OrderBatchSize  int             `yaml:"order_batch_size"`  // managers used per bulk round
	OrderIterations int             `yaml:"order_iterations"`  // bulk rounds
	FillMultiplier  uint64          `yaml:"fill_multiplier"`   // fill order size in min_size units
	FillDebug       bool            `yaml:"fill_debug"`        // await the fill order and log its effects
}

// ScaledPrice converts a human price to the ledger's fixed-point representation.
func (b BootstrapConfig) ScaledPrice(p decimal.Decimal) uint64 {
	return uint64(p.Mul(decimal.NewFromInt(int64(b.FloatScaling))).IntPart())
}

// Defaults returns the values the bootstrap was tuned with on localnet.
func Defaults() *Config {
	var cfg Config
	cfg.App.Name = "deepbook-bootstrap"
	cfg.Network.RPCURL = "http://127.0.0.1:9000"
	cfg.Network.FaucetURL = "http://127.0.0.1:9123/gas"
	cfg.Network.FaucetRequests = 2
	cfg.Network.GasBudget = 50_000_000_000
	cfg.Network.RequestTimeout = 60 * time.Second
	cfg.Network.SettleTimeout = 30 * time.Second
	cfg.Network.PollInterval = 500 * time.Millisecond
	cfg.Build.Command = DefaultBuildCommand
	cfg.Limits.MaxCommands = 1024
	cfg.Limits.MaxInputObjects = 2048
	cfg.Limits.MaxGasBudget = 50_000_000_000
	cfg.Bootstrap = BootstrapConfig{
		PoolCreationFee: 10_000 * 1_000_000,
		FloatScaling:    1_000_000_000,
		TickSize:        1_000,
		LotSize:         1_000,
		MinSize:         10_000,
		StartingBalance: 10_000 * 1_000_000_000,
		MidPrice:        decimal.NewFromInt(100),
		OrderPrice:      decimal.NewFromInt(100),
		ManagerCount:    100,
		OrderBatchSize:  100,
		OrderIterations: 100,
		FillMultiplier:  100,
		FillDebug:       true,
	}
	cfg.Storage.Path = "data/bootstrap.db"
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig reads the YAML file on top of Defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.ConfigError{Field: "path", Err: err}
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &domain.ConfigError{Field: "yaml", Err: err}
	}

	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", slog.Any("error", err))
	}
	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !hasAnyPrefix(c.Network.RPCURL, "http://", "https://", "ws://", "wss://") {
		return domain.NewConfigError("network.rpc_url", "unsupported url %q", c.Network.RPCURL)
	}
	if c.Network.PrivateKey == "" {
		return domain.NewConfigError("network.private_key", "set SUI_PRIVATE_KEY")
	}
	if c.Network.GasBudget == 0 {
		return domain.NewConfigError("network.gas_budget", "must be positive")
	}
	if c.Limits.MaxGasBudget > 0 && c.Network.GasBudget > c.Limits.MaxGasBudget {
		return domain.NewConfigError("network.gas_budget", "%d exceeds limits.max_gas_budget %d", c.Network.GasBudget, c.Limits.MaxGasBudget)
	}
	if c.Network.SettleTimeout <= 0 || c.Network.PollInterval <= 0 {
		return domain.NewConfigError("network.settle_timeout", "settle timeout and poll interval must be positive")
	}
	if strings.TrimSpace(c.Build.Command) == "" {
		return domain.NewConfigError("build.command", "missing value")
	}
	for _, name := range []string{"deepbook", "token", "usdc", "spam", "suii"} {
		if c.Packages[name] == "" {
			return domain.NewConfigError("packages."+name, "missing source path")
		}
	}
	if c.Limits.MaxCommands <= 0 || c.Limits.MaxInputObjects <= 0 {
		return domain.NewConfigError("limits", "ceilings must be positive")
	}

	b := c.Bootstrap
	if b.FloatScaling == 0 || b.TickSize == 0 || b.LotSize == 0 || b.MinSize == 0 {
		return domain.NewConfigError("bootstrap", "float_scaling, tick_size, lot_size and min_size must be positive")
	}
	if b.ManagerCount <= 0 || b.OrderBatchSize <= 0 || b.OrderIterations < 0 {
		return domain.NewConfigError("bootstrap", "manager_count and order_batch_size must be positive")
	}
	if b.OrderBatchSize > b.ManagerCount {
		return domain.NewConfigError("bootstrap.order_batch_size", "%d exceeds manager_count %d", b.OrderBatchSize, b.ManagerCount)
	}
	if !b.MidPrice.GreaterThan(decimal.NewFromInt(8)) {
		return domain.NewConfigError("bootstrap.mid_price", "must exceed the 8 unit seeding spread")
	}
	return nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// overrideWithEnv replaces endpoints and secrets when the environment provides them.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("SUI_PRIVATE_KEY"); key != "" {
		cfg.Network.PrivateKey = key
	}
	if url := os.Getenv("SUI_RPC_URL"); url != "" {
		cfg.Network.RPCURL = url
	}
	if url := os.Getenv("SUI_FAUCET_URL"); url != "" {
		cfg.Network.FaucetURL = url
	}
}
