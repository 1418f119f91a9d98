package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Pair     string `yaml:"pair"`     // CEX symbol, e.g. NTRNUSDT
	Base     string `yaml:"base"`     // base token symbol, e.g. NTRN
	Quote    string `yaml:"quote"`    // quote token symbol, e.g. USDC
	Strategy string `yaml:"strategy"` // binance_duality | astroport_duality | maker
	DryRun   bool   `yaml:"dry_run"`

	Chain struct {
		LCDURL         string  `yaml:"lcd_url"`
		ChainID        string  `yaml:"chain_id"`
		Mnemonic       string  `yaml:"-"` // env MNEMONIC only, never from file
		AccountAddress string  `yaml:"account_address"`
		Bech32Prefix   string  `yaml:"bech32_prefix"`
		GasPrice       float64 `yaml:"gas_price"` // per-unit, in gas denom
		GasDenom       string  `yaml:"gas_denom"`
		GasAdjustment  float64 `yaml:"gas_adjustment"`
	} `yaml:"chain"`

	Binance struct {
		ApiKey    string `yaml:"-"` // env BINANCE_API_KEY
		ApiSecret string `yaml:"-"` // env BINANCE_API_SECRET
		RestURL   string `yaml:"rest_url"`
		WsURL     string `yaml:"ws_url"`
	} `yaml:"binance"`

	Duality struct {
		Depth           int     `yaml:"depth"`
		PageLimit       int     `yaml:"page_limit"`
		MaxRetries      int     `yaml:"max_retries"`
		PriceAdjustment float64 `yaml:"price_adjustment"`
	} `yaml:"duality"`

	Astroport struct {
		// Pair contract addresses keyed by pair name (e.g. USDC-NTRN).
		Contracts map[string]string `yaml:"contracts"`
	} `yaml:"astroport"`

	Trade struct {
		BaseQty           float64 `yaml:"base_qty"`
		Threshold         float64 `yaml:"threshold"`
		SlippageTolerance float64 `yaml:"slippage_tolerance"`
		// Quote-side sizing factor for the Duality leg of the
		// Astroport strategy. Operational constant, not derived.
		DualityAmountFactor float64 `yaml:"duality_amount_factor"`
		BuyAdjustment       float64 `yaml:"buy_adjustment"`
		SellAdjustment      float64 `yaml:"sell_adjustment"`
	} `yaml:"trade"`

	Timings struct {
		PollIntervalMs    int `yaml:"poll_interval_ms"`
		DetectorTickMs    int `yaml:"detector_tick_ms"`
		BalanceIntervalMs int `yaml:"balance_interval_ms"`
	} `yaml:"timings"`

	Redis struct {
		Addr      string `yaml:"addr"`
		DB        int    `yaml:"db"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		ActiveKey string `yaml:"active_key"`
		SnapNS    string `yaml:"snap_ns"`
	} `yaml:"redis"`

	Storage struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		JSONLPath   string `yaml:"jsonl_path"`
	} `yaml:"storage"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Dash struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"dash"`
}

// Load reads the YAML config and overlays secrets from the environment
// (a .env file is honored when present). Secrets never live in the file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	_ = godotenv.Load()
	c.Chain.Mnemonic = os.Getenv("MNEMONIC")
	c.Binance.ApiKey = os.Getenv("BINANCE_API_KEY")
	c.Binance.ApiSecret = os.Getenv("BINANCE_API_SECRET")

	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Strategy == "" {
		c.Strategy = "binance_duality"
	}
	if c.Base == "" {
		c.Base = "NTRN"
	}
	if c.Quote == "" {
		c.Quote = "USDC"
	}
	if c.Pair == "" {
		c.Pair = c.Base + "USDT"
	}
	if c.Chain.Bech32Prefix == "" {
		c.Chain.Bech32Prefix = "neutron"
	}
	if c.Chain.GasPrice == 0 {
		c.Chain.GasPrice = 0.025
	}
	if c.Chain.GasDenom == "" {
		c.Chain.GasDenom = "untrn"
	}
	if c.Chain.GasAdjustment == 0 {
		c.Chain.GasAdjustment = 1.3
	}
	if c.Binance.RestURL == "" {
		c.Binance.RestURL = "https://fapi.binance.com"
	}
	if c.Binance.WsURL == "" {
		c.Binance.WsURL = "wss://fstream.binance.com"
	}
	if c.Duality.Depth == 0 {
		c.Duality.Depth = 5
	}
	if c.Duality.PageLimit == 0 {
		c.Duality.PageLimit = 100
	}
	if c.Duality.MaxRetries == 0 {
		c.Duality.MaxRetries = 3
	}
	if c.Duality.PriceAdjustment == 0 {
		c.Duality.PriceAdjustment = 1.01
	}
	if c.Trade.BaseQty == 0 {
		c.Trade.BaseQty = 1
	}
	if c.Trade.SlippageTolerance == 0 {
		c.Trade.SlippageTolerance = 0.99
	}
	if c.Trade.DualityAmountFactor == 0 {
		c.Trade.DualityAmountFactor = 0.195604
	}
	if c.Trade.BuyAdjustment == 0 {
		c.Trade.BuyAdjustment = -0.03
	}
	if c.Trade.SellAdjustment == 0 {
		c.Trade.SellAdjustment = 0.03
	}
	if c.Timings.PollIntervalMs == 0 {
		c.Timings.PollIntervalMs = 3000
	}
	if c.Timings.DetectorTickMs == 0 {
		c.Timings.DetectorTickMs = 150
	}
	if c.Timings.BalanceIntervalMs == 0 {
		c.Timings.BalanceIntervalMs = 3000
	}
}

func validate(c *Config) error {
	if c.Chain.LCDURL == "" {
		return fmt.Errorf("config: chain.lcd_url is required")
	}
	if c.Chain.ChainID == "" {
		return fmt.Errorf("config: chain.chain_id is required")
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Timings.PollIntervalMs) * time.Millisecond
}
func (c *Config) DetectorTick() time.Duration {
	return time.Duration(c.Timings.DetectorTickMs) * time.Millisecond
}
func (c *Config) BalanceInterval() time.Duration {
	return time.Duration(c.Timings.BalanceIntervalMs) * time.Millisecond
}
