package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del motor de decisión.
type Config struct {
	Features  FeaturesConfig  `yaml:"features"`
	Model     ModelConfig     `yaml:"model"`
	Council   CouncilConfig   `yaml:"council"`
	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
	Risk      RiskConfig      `yaml:"risk"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// FeaturesConfig controla las ventanas del FeatureEngine.
type FeaturesConfig struct {
	MinDataPoints        int     `yaml:"min_data_points"`
	BookLevels           int     `yaml:"book_levels"`
	VolatilityMinutes    int     `yaml:"volatility_minutes"`
	SentimentHalfLifeHrs float64 `yaml:"sentiment_half_life_hours"`
	LatencyBudgetMs      float64 `yaml:"latency_budget_ms"`
}

// ModelConfig contiene los pesos del ensemble y el filtro de tradeabilidad.
type ModelConfig struct {
	StructWeight    float64 `yaml:"struct_weight"`
	SentimentWeight float64 `yaml:"sentiment_weight"`
	NarrativeWeight float64 `yaml:"narrative_weight"`
	MinEdge         float64 `yaml:"min_edge"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MaxSpreadBps    float64 `yaml:"max_spread_bps"`
}

// CouncilConfig controla el timeout de sesión y los límites del Doomer.
type CouncilConfig struct {
	TimeoutMs    int     `yaml:"timeout_ms"`
	MaxDrawdown  float64 `yaml:"max_drawdown"`
	MinConsensus float64 `yaml:"min_consensus"`
}

// ArbitrageConfig controla el proyector Frank-Wolfe.
type ArbitrageConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	MinProfit     float64 `yaml:"min_profit"`
}

// RiskConfig controla el dimensionado Kelly y los trailing stops.
type RiskConfig struct {
	MaxLeverage       float64 `yaml:"max_leverage"`
	HalfKellyDrawdown float64 `yaml:"half_kelly_drawdown"`
	ClusterCap        float64 `yaml:"cluster_cap"`
	StopLossPct       float64 `yaml:"stop_loss_pct"`
	TakeProfitEdge    float64 `yaml:"take_profit_edge"`
	CorrelationWindow int     `yaml:"correlation_window_minutes"`
}

// PipelineConfig controla el loop de decisión.
type PipelineConfig struct {
	IntervalSeconds   int     `yaml:"interval_seconds"`
	Workers           int     `yaml:"workers"` // 0 = NumCPU*2
	SessionsPerSecond float64 `yaml:"sessions_per_second"`
	Bankroll          string  `yaml:"bankroll_usd"` // decimal, p. ej. "10000.00"
}

// StorageConfig controla dónde se persiste el diario.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// MetricsConfig controla el endpoint de prometheus. Vacío = desactivado.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if _, err := decimal.NewFromString(cfg.Pipeline.Bankroll); err != nil {
		return nil, fmt.Errorf("config.Load: bankroll %q: %w", cfg.Pipeline.Bankroll, err)
	}
	return &cfg, nil
}

// Interval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Pipeline.IntervalSeconds) * time.Second
}

// Bankroll devuelve el capital en USD. Load ya validó el formato.
func (c *Config) Bankroll() decimal.Decimal {
	d, err := decimal.NewFromString(c.Pipeline.Bankroll)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CouncilTimeout devuelve el timeout de sesión del consejo.
func (c *Config) CouncilTimeout() time.Duration {
	return time.Duration(c.Council.TimeoutMs) * time.Millisecond
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FUSION_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("FUSION_BANKROLL"); v != "" {
		cfg.Pipeline.Bankroll = v
	}
	if v := os.Getenv("FUSION_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("FUSION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = n
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los umbrales del core que quedan a cero toman el default de cada paquete.
func setDefaults(cfg *Config) {
	if cfg.Pipeline.IntervalSeconds <= 0 {
		cfg.Pipeline.IntervalSeconds = 30
	}
	if cfg.Pipeline.SessionsPerSecond <= 0 {
		cfg.Pipeline.SessionsPerSecond = 50
	}
	if cfg.Pipeline.Bankroll == "" {
		cfg.Pipeline.Bankroll = "10000"
	}
	if cfg.Council.TimeoutMs <= 0 {
		cfg.Council.TimeoutMs = 500
	}
	if cfg.Risk.StopLossPct <= 0 {
		cfg.Risk.StopLossPct = 0.10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polyfusion.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
