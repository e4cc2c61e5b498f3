package tabclean

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/tabclean/clean"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "tabclean.yaml", `
db_path: /tmp/history.db
bins: 12
chart_width: 1024
default_policy: fill
na_values: ["?", "n/a"]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBPath != "/tmp/history.db" || cfg.Bins != 12 || cfg.ChartWidth != 1024 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.NAValues) != 2 || cfg.NAValues[0] != "?" {
		t.Errorf("na values = %v", cfg.NAValues)
	}
	// Unset fields keep their defaults.
	if cfg.ChartHeight != 600 || cfg.ServerAddr != ":8080" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	p, ok, err := cfg.Policy()
	if err != nil || !ok || p != clean.FillMeanMode {
		t.Errorf("Policy() = %v, %v, %v", p, ok, err)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "tabclean.json", `{"sniff_lines": 5, "log_format": "json"}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.SniffLines != 5 || cfg.LogFormat != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if opts := cfg.ParserOptions(); opts.SniffLines != 5 {
		t.Errorf("parser options = %+v", opts)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "tabclean.yaml", "bins: 12\n")
	t.Setenv("TABCLEAN_BINS", "7")
	t.Setenv("TABCLEAN_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("TABCLEAN_NA_VALUES", "-,none")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bins != 7 {
		t.Errorf("bins = %d, want env value 7", cfg.Bins)
	}
	if cfg.ServerAddr != "127.0.0.1:9000" {
		t.Errorf("server addr = %q", cfg.ServerAddr)
	}
	if strings.Join(cfg.NAValues, "|") != "-|none" {
		t.Errorf("na values = %v", cfg.NAValues)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"bad yaml", func(t *testing.T) string { return writeFile(t, "c.yaml", "bins: [1, 2\n") }},
		{"out of range", func(t *testing.T) string { return writeFile(t, "c.yaml", "bins: 0\n") }},
		{"bad enum", func(t *testing.T) string { return writeFile(t, "c.yaml", "default_policy: maybe\n") }},
		{"bad env", func(t *testing.T) string {
			t.Setenv("TABCLEAN_CHART_WIDTH", "wide")
			return ""
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(tc.setup(t))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestPolicyAsk(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok, err := cfg.Policy(); ok || err != nil {
		t.Errorf("ask policy: ok=%v err=%v", ok, err)
	}
}

func TestResolveDBPath(t *testing.T) {
	cfg := Config{DBPath: "/x/y.db"}
	if got := cfg.resolveDBPath(); got != "/x/y.db" {
		t.Errorf("explicit path = %q", got)
	}

	cfg = Config{DBName: "hist", StorageDir: "local"}
	if got := cfg.resolveDBPath(); got != "hist.db" {
		t.Errorf("local path = %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg = Config{}
	want := filepath.Join(home, ".tabclean", "tabclean.db")
	if got := cfg.resolveDBPath(); got != want {
		t.Errorf("home path = %q, want %q", got, want)
	}
}
