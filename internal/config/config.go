package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RegistryPath  string    `toml:"registry_path"`
	RegistryCall  string    `toml:"registry_call"`
	MasterlistDir string    `toml:"masterlist_dir"`
	HistoryDB     string    `toml:"history_db"`
	MetricsListen string    `toml:"metrics_listen"`
	OTLPEndpoint  string    `toml:"otlp_endpoint"`
	Phases        Phases    `toml:"phases"`
	Output        Output    `toml:"output"`
	Watch         Watch     `toml:"watch"`
	Discovery     Discovery `toml:"discovery"`
}

type Phases struct {
	// Glob patterns per bucket; buckets are checked in priority order.
	Infrastructure []string `toml:"infrastructure"`
	Extensions     []string `toml:"extensions"`
	Gadgets        []string `toml:"gadgets"`

	// Modules depended on by at least this many others count as
	// infrastructure regardless of name.
	FanInThreshold int `toml:"fan_in_threshold"`
}

type Output struct {
	PlanJSON       string `toml:"plan_json"`
	ModuleRegistry string `toml:"module_registry"`
	DOT            string `toml:"dot"`
	TSV            string `toml:"tsv"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Exclude  []string      `toml:"exclude"`
}

type Discovery struct {
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.RegistryCall == "" {
		cfg.RegistryCall = "mw.loader.register("
	}
	if cfg.MasterlistDir == "" {
		cfg.MasterlistDir = "./masterlists"
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = "./loadplan-history.db"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Discovery.RatePerSecond == 0 {
		cfg.Discovery.RatePerSecond = 200
	}
	if cfg.Discovery.Burst == 0 {
		cfg.Discovery.Burst = 50
	}
	if cfg.Phases.FanInThreshold == 0 {
		cfg.Phases.FanInThreshold = 3
	}
	if len(cfg.Phases.Gadgets) == 0 {
		cfg.Phases.Gadgets = []string{"ext.gadget.*"}
	}
	if len(cfg.Phases.Extensions) == 0 {
		cfg.Phases.Extensions = []string{"ext.*"}
	}
	if len(cfg.Phases.Infrastructure) == 0 {
		cfg.Phases.Infrastructure = []string{"jquery*", "mediawiki*", "oojs*"}
	}
}
