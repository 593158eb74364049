package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all planner configuration.
type Config struct {
	// Logging
	Log LogConfig `yaml:"log"`

	// Where runs are persisted
	Storage StorageConfig `yaml:"storage"`

	// Where planning inputs are read and orders are written
	ERP ERPConfig `yaml:"erp"`

	// Default run options
	Planning PlanningConfig `yaml:"planning"`

	// HTTP API
	HTTP HTTPConfig `yaml:"http"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Mode  string `yaml:"mode"`  // dev, prod
	Level string `yaml:"level"` // debug, info, warn, error
}

// StorageConfig selects the run store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite, memory
	Path   string `yaml:"path"`
}

// ERPConfig selects the source of items, BOMs, stock, demand and receipts.
type ERPConfig struct {
	Driver      string `yaml:"driver"`       // csv, postgres, sqlite
	DSN         string `yaml:"dsn"`          // postgres or sqlite DSN
	ScenarioDir string `yaml:"scenario_dir"` // csv scenario directory
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// PlanningConfig holds the default run options.
type PlanningConfig struct {
	HorizonDays           int  `yaml:"horizon_days"`
	ConsiderSafetyStock   bool `yaml:"consider_safety_stock"`
	IncludeWorkOrders     bool `yaml:"include_work_orders"`
	IncludeSalesOrders    bool `yaml:"include_sales_orders"`
	IncludePlannerDemand  bool `yaml:"include_planner_demand"`
	DeriveComponentDemand bool `yaml:"derive_component_demand"`
	MaxBOMLevel           int  `yaml:"max_bom_level"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     string   `yaml:"read_timeout"`
	WriteTimeout    string   `yaml:"write_timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	ERPCSV      = "csv"
	ERPPostgres = "postgres"
	ERPSQLite   = "sqlite"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Mode:  "dev",
			Level: "info",
		},

		Storage: StorageConfig{
			Driver: StorageSQLite,
			Path:   "data/mrp.db",
		},

		ERP: ERPConfig{
			Driver:      ERPCSV,
			ScenarioDir: "example/scenario",
		},

		Planning: PlanningConfig{
			HorizonDays:         90,
			ConsiderSafetyStock: true,
			IncludeWorkOrders:   true,
			IncludeSalesOrders:  true,
			MaxBOMLevel:         10,
		},

		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "10s",
			CORSOrigins:     []string{"*"},
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
// Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies MRP_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MRP_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := os.Getenv("MRP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if v := os.Getenv("MRP_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("MRP_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}

	if v := os.Getenv("MRP_ERP_DRIVER"); v != "" {
		c.ERP.Driver = v
	}
	if v := os.Getenv("MRP_ERP_DSN"); v != "" {
		c.ERP.DSN = v
	}
	if v := os.Getenv("MRP_ERP_SCENARIO_DIR"); v != "" {
		c.ERP.ScenarioDir = v
	}

	if v := os.Getenv("MRP_HORIZON_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Planning.HorizonDays = n
		}
	}

	if v := os.Getenv("MRP_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("MRP_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.HTTP.CORSOrigins = origins
	}
}

// GetReadTimeout returns the HTTP read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.HTTP.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the HTTP write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.HTTP.WriteTimeout, 60*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.HTTP.ShutdownTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Log.Mode {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid log mode: %s (valid: dev, prod)", c.Log.Mode)
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (valid: sqlite, memory)", c.Storage.Driver)
	}

	switch c.ERP.Driver {
	case ERPCSV:
		if c.ERP.ScenarioDir == "" {
			return fmt.Errorf("erp scenario_dir is required for the csv driver")
		}
	case ERPPostgres, ERPSQLite:
		if c.ERP.DSN == "" {
			return fmt.Errorf("erp dsn is required for the %s driver", c.ERP.Driver)
		}
	default:
		return fmt.Errorf("invalid erp driver: %s (valid: csv, postgres, sqlite)", c.ERP.Driver)
	}

	if c.Planning.HorizonDays <= 0 {
		return fmt.Errorf("planning horizon must be positive, got %d", c.Planning.HorizonDays)
	}
	if c.Planning.MaxBOMLevel < 0 {
		return fmt.Errorf("max BOM level cannot be negative, got %d", c.Planning.MaxBOMLevel)
	}
	if !c.Planning.IncludeWorkOrders && !c.Planning.IncludeSalesOrders && !c.Planning.IncludePlannerDemand {
		return fmt.Errorf("planning must include at least one demand source")
	}

	return nil
}
