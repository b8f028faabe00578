package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Storage StorageConfig
	Quotes  QuotesConfig
	Pricing PricingConfig
	Log     LogConfig
}

// StorageConfig locates the data files.
type StorageConfig struct {
	DataDir       string
	QuotesFile    string
	StockFile     string
	StockSeedFile string
}

// QuotesConfig holds quote validation settings.
type QuotesConfig struct {
	MinYear int
	MaxYear int
}

// PricingConfig holds the standard panel size in cm.
type PricingConfig struct {
	PanelWidth  float64
	PanelHeight float64
}

// LogConfig holds logger options.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	minYear, err := getenvInt("QUOTE_MIN_YEAR", 2025)
	if err != nil {
		return nil, err
	}
	maxYear, err := getenvInt("QUOTE_MAX_YEAR", 2030)
	if err != nil {
		return nil, err
	}
	panelWidth, err := getenvFloat("PANEL_WIDTH", 150)
	if err != nil {
		return nil, err
	}
	panelHeight, err := getenvFloat("PANEL_HEIGHT", 300)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Storage: StorageConfig{
			DataDir:       getenvWithDefault("QUOTES_DATA_DIR", "."),
			QuotesFile:    getenvWithDefault("QUOTES_FILE", "presupuestos.dat"),
			StockFile:     getenvWithDefault("STOCK_FILE", "stock.dat"),
			StockSeedFile: os.Getenv("STOCK_SEED_FILE"),
		},
		Quotes: QuotesConfig{
			MinYear: minYear,
			MaxYear: maxYear,
		},
		Pricing: PricingConfig{
			PanelWidth:  panelWidth,
			PanelHeight: panelHeight,
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	switch {
	case c.Storage.DataDir == "":
		return errors.New("QUOTES_DATA_DIR must not be empty")
	case c.Storage.QuotesFile == "":
		return errors.New("QUOTES_FILE must not be empty")
	case c.Storage.StockFile == "":
		return errors.New("STOCK_FILE must not be empty")
	}

	if c.QuotesPath() == c.StockPath() {
		return errors.New("QUOTES_FILE and STOCK_FILE must differ")
	}

	if c.Quotes.MinYear <= 0 || c.Quotes.MaxYear < c.Quotes.MinYear {
		return fmt.Errorf("QUOTE_MIN_YEAR (%d) and QUOTE_MAX_YEAR (%d) must form a valid range", c.Quotes.MinYear, c.Quotes.MaxYear)
	}

	if c.Pricing.PanelWidth <= 0 || c.Pricing.PanelHeight <= 0 {
		return errors.New("PANEL_WIDTH and PANEL_HEIGHT must be positive")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return nil
}

// QuotesPath is the quote file location.
func (c *Config) QuotesPath() string {
	return resolve(c.Storage.DataDir, c.Storage.QuotesFile)
}

// StockPath is the stock file location.
func (c *Config) StockPath() string {
	return resolve(c.Storage.DataDir, c.Storage.StockFile)
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(dir, name)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}
