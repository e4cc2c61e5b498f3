package tabclean

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/brunobiangulo/tabclean/chart"
	"github.com/brunobiangulo/tabclean/clean"
	"github.com/brunobiangulo/tabclean/parser"
)

// EnvPrefix is the prefix for environment overrides (TABCLEAN_DB_PATH, ...).
const EnvPrefix = "TABCLEAN"

// Config holds all configuration for a tabclean session and its shells.
type Config struct {
	// DBPath is the full path to the SQLite history database.
	// If empty, defaults to ~/.tabclean/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path" envconfig:"DB_PATH"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name" envconfig:"DB_NAME"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. "home" (default) uses ~/.tabclean/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir" envconfig:"STORAGE_DIR" validate:"omitempty,oneof=home local cwd"`

	// History enables the SQLite operation log and snapshots.
	History bool `json:"history" yaml:"history" envconfig:"HISTORY"`

	// MaxSnapshots bounds the snapshots kept per dataset. 0 keeps all.
	MaxSnapshots int `json:"max_snapshots" yaml:"max_snapshots" envconfig:"MAX_SNAPSHOTS" validate:"gte=0"`

	// Parsing
	NAValues   []string `json:"na_values" yaml:"na_values" envconfig:"NA_VALUES"`
	SniffLines int      `json:"sniff_lines" yaml:"sniff_lines" envconfig:"SNIFF_LINES" validate:"gte=1"`

	// Charts
	Bins          int `json:"bins" yaml:"bins" envconfig:"BINS" validate:"gte=1,lte=500"`
	DensityPoints int `json:"density_points" yaml:"density_points" envconfig:"DENSITY_POINTS" validate:"gte=2"`
	ChartWidth    int `json:"chart_width" yaml:"chart_width" envconfig:"CHART_WIDTH" validate:"gte=100"`
	ChartHeight   int `json:"chart_height" yaml:"chart_height" envconfig:"CHART_HEIGHT" validate:"gte=100"`

	// DefaultPolicy is used by non-interactive shells when no policy is given.
	DefaultPolicy string `json:"default_policy" yaml:"default_policy" envconfig:"DEFAULT_POLICY" validate:"omitempty,oneof=drop fill ask"`

	// HTTP shell
	ServerAddr string  `json:"server_addr" yaml:"server_addr" envconfig:"SERVER_ADDR" validate:"required"`
	RateLimit  float64 `json:"rate_limit" yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gte=0"` // requests per second, 0 disables
	RateBurst  int     `json:"rate_burst" yaml:"rate_burst" envconfig:"RATE_BURST" validate:"gte=0"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty" envconfig:"API_KEY"` // optional bearer token
	CORSOrigins string  `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty" envconfig:"CORS_ORIGINS"`

	// OutputDir is the directory the HTTP shell saves into. Save paths are
	// taken relative to it; empty means the working directory.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty" envconfig:"OUTPUT_DIR"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `json:"log_format" yaml:"log_format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=text json"`
}

// DefaultConfig returns a Config with sensible defaults.
// History is stored in ~/.tabclean/tabclean.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:        "tabclean",
		StorageDir:    "home",
		History:       true,
		MaxSnapshots:  20,
		SniffLines:    20,
		Bins:          20,
		DensityPoints: 100,
		ChartWidth:    800,
		ChartHeight:   600,
		DefaultPolicy: "ask",
		ServerAddr:    ":8080",
		RateLimit:     20,
		RateBurst:     40,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// LoadConfig builds a Config from defaults, an optional file and the
// environment, in that order. The file is YAML unless it ends in .json.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			err = json.Unmarshal(data, &cfg)
		default:
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: environment: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ParserOptions maps the parsing fields onto parser.Options.
func (c Config) ParserOptions() parser.Options {
	return parser.Options{NAValues: c.NAValues, SniffLines: c.SniffLines}
}

// ChartOptions maps the chart fields onto chart.Options.
func (c Config) ChartOptions() chart.Options {
	return chart.Options{Bins: c.Bins, DensityPoints: c.DensityPoints}
}

// ChartSize returns the raster/vector canvas size.
func (c Config) ChartSize() chart.Size {
	return chart.Size{Width: c.ChartWidth, Height: c.ChartHeight}
}

// Policy resolves DefaultPolicy. ok is false for "ask" or empty, meaning
// the shell must decide interactively.
func (c Config) Policy() (p clean.Policy, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(c.DefaultPolicy)) {
	case "", "ask":
		return 0, false, nil
	}
	p, err = clean.ParsePolicy(c.DefaultPolicy)
	if err != nil {
		return 0, false, err
	}
	return p, true, nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "tabclean"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".tabclean", name+".db")
	}
}
