package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/spendcast/internal/forecast"
)

// Config holds all spendcast configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Model      ModelConfig      `toml:"model"`
	Forecast   ForecastConfig   `toml:"forecast"`
	API        APIConfig        `toml:"api"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Budget     BudgetConfig     `toml:"budget"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultPeriod  string `toml:"default_period"`
	DefaultHorizon int    `toml:"default_horizon"`
	Currency       string `toml:"currency"`
	DataDir        string `toml:"data_dir,omitempty"`
	ImportDir      string `toml:"import_dir,omitempty"`
}

// ModelConfig points at the neural model artifact and runtime.
type ModelConfig struct {
	Path        string `toml:"path,omitempty"`
	LibraryPath string `toml:"library_path,omitempty"`
	InputName   string `toml:"input_name,omitempty"`
	OutputName  string `toml:"output_name,omitempty"`
	Disabled    bool   `toml:"disabled"`
	TimeoutSec  int    `toml:"timeout_sec"`
	Threads     int    `toml:"threads"`
}

// ForecastConfig holds the blending constants.
type ForecastConfig struct {
	StatisticalWeight float64 `toml:"statistical_weight"`
	NeuralWeight      float64 `toml:"neural_weight"`
	DampRaw           float64 `toml:"damp_raw"`
	DampLast          float64 `toml:"damp_last"`
	DampAverage       float64 `toml:"damp_average"`
}

// APIConfig holds ledger REST API settings.
type APIConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Token   string `toml:"token,omitempty"`
}

// PostgresConfig holds the direct database source settings.
type PostgresConfig struct {
	DSN    string `toml:"dsn,omitempty"`
	UserID int64  `toml:"user_id,omitempty"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr     string `toml:"addr"`
	Schedule string `toml:"schedule"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	t := forecast.DefaultTuning()
	return Config{
		General: GeneralConfig{
			DefaultPeriod:  "month",
			DefaultHorizon: forecast.DefaultHorizon,
			Currency:       "USD",
		},
		Model: ModelConfig{
			InputName:  "X",
			OutputName: "Y",
			TimeoutSec: 10,
			Threads:    1,
		},
		Forecast: ForecastConfig{
			StatisticalWeight: t.StatisticalWeight,
			NeuralWeight:      t.NeuralWeight,
			DampRaw:           t.DampRaw,
			DampLast:          t.DampLast,
			DampAverage:       t.DampAverage,
		},
		Daemon: DaemonConfig{
			Addr:     "127.0.0.1:8631",
			Schedule: "@every 15m",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// Tuning converts the forecast section into engine constants.
func (c ForecastConfig) Tuning() forecast.Tuning {
	return forecast.Tuning{
		StatisticalWeight: c.StatisticalWeight,
		NeuralWeight:      c.NeuralWeight,
		DampRaw:           c.DampRaw,
		DampLast:          c.DampLast,
		DampAverage:       c.DampAverage,
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendcast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "spendcast")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the directory holding the ledger database.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendcast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "spendcast")
}

// LedgerPath returns the full path to the ledger database.
func LedgerPath(cfg Config) string {
	return filepath.Join(DataDir(cfg), "ledger.db")
}

// ModelPath returns the configured model artifact, defaulting to
// models/expense_predictor.onnx under the data directory.
func ModelPath(cfg Config) string {
	if cfg.Model.Path != "" {
		return cfg.Model.Path
	}
	return filepath.Join(DataDir(cfg), "models", "expense_predictor.onnx")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Budget.sortSchedule(); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path with owner-only permissions.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetAPIToken returns the API token from env var or config, in that order.
func GetAPIToken(cfg Config) string {
	if tok := os.Getenv("SPENDCAST_API_TOKEN"); tok != "" {
		return tok
	}
	return cfg.API.Token
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
