package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Detector DetectorConfig `yaml:"detector"`
	Risk     RiskConfig     `yaml:"risk"`
	Trading  TradingConfig  `yaml:"trading"`
	API      APIConfig      `yaml:"api"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// MonitorConfig controla el loop de monitorización.
type MonitorConfig struct {
	IntervalMS        int     `yaml:"interval_ms"`
	MarketLimit       int     `yaml:"market_limit"`
	SpikeThresholdPct float64 `yaml:"spike_threshold_pct"`
	Workers           int     `yaml:"workers"`
	HistoryCapacity   int     `yaml:"history_capacity"`
}

// DetectorConfig controla los filtros de detección.
type DetectorConfig struct {
	MinProfitThreshold float64 `yaml:"min_profit_threshold"` // fracción, 0.005 = 0.5%
	MinConfidence      float64 `yaml:"min_confidence"`
	MaxSlippage        float64 `yaml:"max_slippage"`
	MaxCapital         float64 `yaml:"max_capital"`
	DedupTTLSeconds    int     `yaml:"dedup_ttl_seconds"`
}

// RiskConfig controla los límites de capital.
type RiskConfig struct {
	MaxPositionSize  float64 `yaml:"max_position_size"`
	MaxTotalExposure float64 `yaml:"max_total_exposure"`
}

// TradingConfig controla la ejecución real.
type TradingConfig struct {
	Enabled    bool   `yaml:"enabled"` // false = dry-run (default seguro)
	APIKey     string `yaml:"api_key"`
	MaxRetries int    `yaml:"max_retries"`
	MaxPending int    `yaml:"max_pending"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
	MockMode  bool   `yaml:"mock_mode"` // datos sintéticos, sin red
}

// HTTPConfig controla el API de estado.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case os.IsNotExist(err):
		// Sin archivo: defaults + entorno
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba las combinaciones que no deben arrancar.
func (c *Config) Validate() error {
	if c.Trading.Enabled && !c.API.MockMode && c.Trading.APIKey == "" {
		return fmt.Errorf("config.Validate: trading enabled but no API key set (TRADING_API_KEY)")
	}
	if c.Detector.MinProfitThreshold < 0 {
		return fmt.Errorf("config.Validate: min_profit_threshold must be >= 0")
	}
	if c.Risk.MaxPositionSize > c.Risk.MaxTotalExposure {
		return fmt.Errorf("config.Validate: max_position_size (%.2f) exceeds max_total_exposure (%.2f)",
			c.Risk.MaxPositionSize, c.Risk.MaxTotalExposure)
	}
	return nil
}

// PollInterval devuelve el intervalo del monitor como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMS) * time.Millisecond
}

// DedupTTL devuelve el TTL del filtro de duplicados.
func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.Detector.DedupTTLSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TRADING_API_KEY"); v != "" {
		cfg.Trading.APIKey = v
	}
	if v := os.Getenv("TRADING_ENABLED"); v == "true" || v == "1" {
		cfg.Trading.Enabled = true
	}
	if v := os.Getenv("MOCK_MODE"); v == "true" || v == "1" {
		cfg.API.MockMode = true
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Monitor.IntervalMS <= 0 {
		cfg.Monitor.IntervalMS = 5000
	}
	if cfg.Monitor.MarketLimit <= 0 {
		cfg.Monitor.MarketLimit = 50
	}
	if cfg.Monitor.SpikeThresholdPct <= 0 {
		cfg.Monitor.SpikeThresholdPct = 5.0
	}
	if cfg.Monitor.HistoryCapacity <= 0 {
		cfg.Monitor.HistoryCapacity = 100
	}
	if cfg.Detector.MinProfitThreshold <= 0 {
		cfg.Detector.MinProfitThreshold = 0.005
	}
	if cfg.Detector.MinConfidence <= 0 {
		cfg.Detector.MinConfidence = 0.6
	}
	if cfg.Detector.MaxSlippage <= 0 {
		cfg.Detector.MaxSlippage = 0.05
	}
	if cfg.Detector.MaxCapital <= 0 {
		cfg.Detector.MaxCapital = 100
	}
	if cfg.Detector.DedupTTLSeconds <= 0 {
		cfg.Detector.DedupTTLSeconds = 60
	}
	if cfg.Risk.MaxPositionSize <= 0 {
		cfg.Risk.MaxPositionSize = 50
	}
	if cfg.Risk.MaxTotalExposure <= 0 {
		cfg.Risk.MaxTotalExposure = 500
	}
	if cfg.Trading.MaxRetries <= 0 {
		cfg.Trading.MaxRetries = 3
	}
	if cfg.Trading.MaxPending <= 0 {
		cfg.Trading.MaxPending = 10
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "arbbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
