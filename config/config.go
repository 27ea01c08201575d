package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Quoteflow QuoteflowConfig `yaml:"quoteflow"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	RefRate   RefRateConfig   `yaml:"reference_rate"`
	Sources   SourcesConfig   `yaml:"sources"`
}

type QuoteflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// DefaultSymbol is selected at startup when non-empty.
	DefaultSymbol string `yaml:"default_symbol"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type RefRateConfig struct {
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
}

// SourceConfig describes one upstream provider. TokenEnv names the
// environment variable that holds the provider credential; an empty value in
// that variable leaves the source disabled without error.
type SourceConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URL      string        `yaml:"url"`
	TokenEnv string        `yaml:"token_env"`
	Interval time.Duration `yaml:"interval"` // polling sources only

	// AutoReconnect re-enables automatic redial after transport failures.
	// Deliberately off by default: public endpoints rate-limit aggressive
	// reconnect loops.
	AutoReconnect bool `yaml:"auto_reconnect"`
}

type SourcesConfig struct {
	Binance    SourceConfig `yaml:"binance"`
	Bybit      SourceConfig `yaml:"bybit"`
	Coinbase   SourceConfig `yaml:"coinbase"`
	Okx        SourceConfig `yaml:"okx"`
	Pyth       SourceConfig `yaml:"pyth"`
	PythPro    SourceConfig `yaml:"pyth_pro"`
	PrimeAPI   SourceConfig `yaml:"prime_api"`
	Infoway    SourceConfig `yaml:"infoway_io"`
	TwelveData SourceConfig `yaml:"twelve_data"`
	Yahoo      SourceConfig `yaml:"yahoo"`
}

// Default endpoint URLs, used when the config file leaves a source URL empty.
const (
	defaultBinanceURL    = "wss://stream.binance.com:9443/ws"
	defaultBybitURL      = "wss://stream.bybit.com/v5/public/spot"
	defaultCoinbaseURL   = "wss://advanced-trade-ws.coinbase.com"
	defaultOkxURL        = "wss://ws.okx.com:8443/ws/v5/public"
	defaultPythURL       = "wss://hermes.pyth.network/ws"
	defaultPythProURL    = "wss://pyth-lazer.dourolabs.app/v1/stream"
	defaultPrimeAPIURL   = "wss://stream.primeapi.io/v1/forex"
	defaultInfowayURL    = "wss://data.infoway.io/ws"
	defaultTwelveDataURL = "wss://ws.twelvedata.com/v1/quotes/price"
	defaultYahooURL      = "http://localhost:3001/api/us10y"
)

const defaultConfigPath = "config/config.yml"

// Environment specific overrides picked up when APP_ENV is set and the
// caller did not pass an explicit path.
var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Sources: SourcesConfig{
			Binance:    SourceConfig{Enabled: true},
			Bybit:      SourceConfig{Enabled: true},
			Coinbase:   SourceConfig{Enabled: true},
			Okx:        SourceConfig{Enabled: true},
			Pyth:       SourceConfig{Enabled: true},
			PythPro:    SourceConfig{Enabled: true, TokenEnv: "PYTH_LAZER_AUTH_TOKEN"},
			PrimeAPI:   SourceConfig{Enabled: true, TokenEnv: "PRIME_API_TOKEN"},
			Infoway:    SourceConfig{Enabled: true, TokenEnv: "INFOWAY_API_TOKEN"},
			TwelveData: SourceConfig{Enabled: true, TokenEnv: "TWELVE_DATA_API_TOKEN"},
			Yahoo:      SourceConfig{Enabled: true, Interval: 500 * time.Millisecond},
		},
	}
}

func applyDefaults(cfg *Config) {
	fill := func(sc *SourceConfig, url string) {
		if sc.URL == "" {
			sc.URL = url
		}
	}
	fill(&cfg.Sources.Binance, defaultBinanceURL)
	fill(&cfg.Sources.Bybit, defaultBybitURL)
	fill(&cfg.Sources.Coinbase, defaultCoinbaseURL)
	fill(&cfg.Sources.Okx, defaultOkxURL)
	fill(&cfg.Sources.Pyth, defaultPythURL)
	fill(&cfg.Sources.PythPro, defaultPythProURL)
	fill(&cfg.Sources.PrimeAPI, defaultPrimeAPIURL)
	fill(&cfg.Sources.Infoway, defaultInfowayURL)
	fill(&cfg.Sources.TwelveData, defaultTwelveDataURL)
	fill(&cfg.Sources.Yahoo, defaultYahooURL)

	if cfg.RefRate.Interval <= 0 {
		cfg.RefRate.Interval = 10 * time.Second
	}
	if cfg.Sources.Yahoo.Interval <= 0 {
		cfg.Sources.Yahoo.Interval = 500 * time.Millisecond
	}
	if cfg.Dashboard.Listen == "" {
		cfg.Dashboard.Listen = ":8080"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Quoteflow.Name == "" {
		return fmt.Errorf("quoteflow.name is required")
	}
	if cfg.Quoteflow.Version == "" {
		return fmt.Errorf("quoteflow.version is required")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}

	// In development an unset token_env just leaves the source disabled.
	// Production-like deployments treat it as a config error: the operator
	// meant to run the source but it can never start.
	if env := AppEnvironment(); IsProductionLike(env) {
		for _, name := range credentialGatedSources {
			sc, _ := cfg.Sources.ForSource(name)
			if sc.Enabled && sc.TokenEnv == "" {
				return fmt.Errorf("sources.%s.token_env is required in %s", name, env)
			}
		}
	}
	return nil
}

var credentialGatedSources = []string{"pyth_pro", "prime_api", "infoway_io", "twelve_data"}

// Token resolves the credential for a source from its configured environment
// variable. Empty when the source carries no credential requirement or the
// variable is unset.
func (sc SourceConfig) Token() string {
	if sc.TokenEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(sc.TokenEnv))
}

// ForSource returns the configuration block for one source identifier.
func (s *SourcesConfig) ForSource(name string) (SourceConfig, bool) {
	switch name {
	case "binance":
		return s.Binance, true
	case "bybit":
		return s.Bybit, true
	case "coinbase":
		return s.Coinbase, true
	case "okx":
		return s.Okx, true
	case "pyth":
		return s.Pyth, true
	case "pyth_pro":
		return s.PythPro, true
	case "prime_api":
		return s.PrimeAPI, true
	case "infoway_io":
		return s.Infoway, true
	case "twelve_data":
		return s.TwelveData, true
	case "yahoo":
		return s.Yahoo, true
	default:
		return SourceConfig{}, false
	}
}
