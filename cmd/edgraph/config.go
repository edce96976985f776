package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rendis/edgraph/internal/store"
)

// Config holds all edgraph configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBDriver    string `json:"db_driver"`
	DBPath      string `json:"db_path"`
	PostgresURL string `json:"postgres_url,omitempty"`
	LogLevel    string `json:"log_level"`

	RetentionSchedule string `json:"retention_schedule"`
	RetentionKeep     int    `json:"retention_keep"`

	DiffFlags                string `json:"diff_flags"`
	SaveIntermediateProducts bool   `json:"save_intermediate_products"`
	MaxTraversalDepth        int    `json:"max_traversal_depth"`
}

func defaultConfig() Config {
	return Config{
		DBDriver:          store.DriverLibSQL,
		DBPath:            filepath.Join(edgraphDir(), "edgraph.db"),
		LogLevel:          "info",
		RetentionSchedule: "@daily",
		RetentionKeep:     50,
		DiffFlags:         "all",
	}
}

// edgraphDir is $EDGRAPH_HOME, else ~/.edgraph.
func edgraphDir() string {
	if v := os.Getenv("EDGRAPH_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".edgraph"
	}
	return filepath.Join(home, ".edgraph")
}

func settingsPath() string {
	return filepath.Join(edgraphDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("EDGRAPH_DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	if v := os.Getenv("EDGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("EDGRAPH_POSTGRES_URL"); v != "" {
		cfg.PostgresURL = v
	}
	if v := os.Getenv("EDGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("EDGRAPH_RETENTION_SCHEDULE"); v != "" {
		cfg.RetentionSchedule = v
	}
	if v := os.Getenv("EDGRAPH_RETENTION_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetentionKeep = n
		}
	}
	if v := os.Getenv("EDGRAPH_DIFF_FLAGS"); v != "" {
		cfg.DiffFlags = v
	}
	if v := os.Getenv("EDGRAPH_SAVE_INTERMEDIATE_PRODUCTS"); v != "" {
		cfg.SaveIntermediateProducts = v == "true" || v == "1"
	}
	if v := os.Getenv("EDGRAPH_MAX_TRAVERSAL_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTraversalDepth = n
		}
	}

	return cfg
}

// storeDSN is what store.Open expects for the configured driver.
func (c Config) storeDSN() string {
	if c.DBDriver == store.DriverPostgres {
		return c.PostgresURL
	}
	if strings.HasPrefix(c.DBPath, "file:") || strings.Contains(c.DBPath, "://") {
		return c.DBPath
	}
	return "file:" + c.DBPath
}

// slogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged  bool
	RetentionChanged bool
	RestartNeeded    []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.RetentionSchedule != new.RetentionSchedule || old.RetentionKeep != new.RetentionKeep {
		d.RetentionChanged = true
	}
	if old.DBDriver != new.DBDriver {
		d.RestartNeeded = append(d.RestartNeeded, "db_driver")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.PostgresURL != new.PostgresURL {
		d.RestartNeeded = append(d.RestartNeeded, "postgres_url")
	}
	if old.DiffFlags != new.DiffFlags {
		d.RestartNeeded = append(d.RestartNeeded, "diff_flags")
	}
	if old.SaveIntermediateProducts != new.SaveIntermediateProducts {
		d.RestartNeeded = append(d.RestartNeeded, "save_intermediate_products")
	}
	if old.MaxTraversalDepth != new.MaxTraversalDepth {
		d.RestartNeeded = append(d.RestartNeeded, "max_traversal_depth")
	}
	return d
}

func pidPath() string {
	return filepath.Join(edgraphDir(), "edgraph.pid")
}
