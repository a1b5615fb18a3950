package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds process-wide settings read from the environment. Each field is
// filled from the upper-cased koanf key, e.g. max_capacity from MAX_CAPACITY.
type Config struct {
	Port            string        `koanf:"port"`
	GinMode         string        `koanf:"gin_mode"`
	LogLevel        string        `koanf:"log_level"`
	DatabaseURL     string        `koanf:"database_url"`
	DataPath        string        `koanf:"data_path"`
	JWTSecret       string        `koanf:"jwt_secret"`
	APIMasterSecret string        `koanf:"api_master_secret"`
	AdminUsername   string        `koanf:"admin_username"`
	AdminPassword   string        `koanf:"admin_password"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	MaxCapacity     int           `koanf:"max_capacity"`
	MaxMatrixCells  int           `koanf:"max_matrix_cells"`
}

// Defaults returns the settings used for every variable left unset
func Defaults() Config {
	return Config{
		Port:           "8000",
		LogLevel:       "info",
		DataPath:       "aid.db",
		AdminUsername:  "admin",
		AdminPassword:  "admin123",
		TokenTTL:       24 * time.Hour,
		MaxCapacity:    3,
		MaxMatrixCells: 1_000_000,
	}
}

// LoadDotEnv loads the first .env found in the working directory or its parents.
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads the configuration from the process environment on top of Defaults.
// Empty variables count as unset.
func Load() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.APIMasterSecret == "" {
		return fmt.Errorf("API_MASTER_SECRET is required")
	}
	if c.MaxCapacity <= 0 {
		return fmt.Errorf("MAX_CAPACITY must be positive, got %d", c.MaxCapacity)
	}
	if c.MaxMatrixCells < 0 {
		return fmt.Errorf("MAX_MATRIX_CELLS must not be negative, got %d", c.MaxMatrixCells)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}
