package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crawlcore/crawlcore"
	"github.com/crawlcore/crawlcore/catalog"
)

// Config is the on-disk YAML shape loaded by every subcommand via -c.
type Config struct {
	// StorePath is the boltstore file backing the crawl's live state.
	StorePath string `yaml:"store_path"`

	// CatalogDSN is the sqlite DSN backing the run ledger and snapshot
	// tables (package catalog). Defaults to a file next to StorePath.
	CatalogDSN string `yaml:"catalog_dsn"`

	Scheduler struct {
		Concurrency    int `yaml:"concurrency"`
		Queue          int `yaml:"queue"`
		PullIntervalMS int `yaml:"pull_interval_ms"`
		MaxDocuments   int `yaml:"max_documents"`
	} `yaml:"scheduler"`

	Orphan struct {
		Strategy string `yaml:"strategy"` // "ignore" | "process" | "delete"
	} `yaml:"orphan"`

	StopTimeoutSeconds     int `yaml:"stop_timeout_seconds"`
	ProgressIntervalSeconds int `yaml:"progress_interval_seconds"`

	CleanRetentionHours int `yaml:"clean_retention_hours"`
}

// loadConfig reads and parses the YAML config at path, then applies any
// variable substitutions from a -variables file.
func loadConfig(path, variablesPath string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if variablesPath != "" {
		data, err = applyVariables(data, variablesPath)
		if err != nil {
			return nil, err
		}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.StorePath == "" {
		return nil, fmt.Errorf("config %q: store_path is required", path)
	}
	if cfg.CatalogDSN == "" {
		cfg.CatalogDSN = cfg.StorePath + ".catalog.sqlite"
	}
	return &cfg, nil
}

// applyVariables is a substitution hook for externalized config values
// (e.g. "${SEED_URL}" placeholders resolved from a separate variables
// file). It is currently a no-op passthrough: crawlcore has no built-in
// templating engine, and a concrete collector binary wiring its own
// Capabilities is expected to layer templating on top if it needs it.
func applyVariables(data []byte, variablesPath string) ([]byte, error) {
	if _, err := os.Stat(variablesPath); err != nil {
		return nil, fmt.Errorf("read variables %q: %w", variablesPath, err)
	}
	return data, nil
}

func (c *Config) schedulerConfig() crawlcore.SchedulerConfig {
	return crawlcore.SchedulerConfig{
		Concurrency:  c.Scheduler.Concurrency,
		Queue:        c.Scheduler.Queue,
		PullInterval: time.Duration(c.Scheduler.PullIntervalMS) * time.Millisecond,
		MaxDocuments: c.Scheduler.MaxDocuments,
	}
}

func (c *Config) orphanStrategy() crawlcore.OrphanStrategy {
	switch c.Orphan.Strategy {
	case "process":
		return crawlcore.OrphanProcess
	case "delete":
		return crawlcore.OrphanDelete
	default:
		return crawlcore.OrphanIgnore
	}
}

func (c *Config) crawlerConfig() crawlcore.CrawlerConfig {
	return crawlcore.CrawlerConfig{
		Scheduler:        c.schedulerConfig(),
		Orphan:           crawlcore.OrphanConfig{Strategy: c.orphanStrategy()},
		StopTimeout:      time.Duration(c.StopTimeoutSeconds) * time.Second,
		ProgressInterval: time.Duration(c.ProgressIntervalSeconds) * time.Second,
	}
}

func (c *Config) cleanConfig() catalog.CleanConfig {
	return catalog.CleanConfig{
		Interval: time.Hour,
		Delta:    time.Duration(c.CleanRetentionHours) * time.Hour,
	}
}
