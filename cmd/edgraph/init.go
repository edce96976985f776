package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/retention"
	"github.com/rendis/edgraph/internal/store"
)

// runInit writes settings.json from flags and asks a running server to reload.
func (a *app) runInit(args []string) error {
	def := defaultConfig()
	fs := a.flagSet("init")
	driver := fs.String("db-driver", def.DBDriver, "revision store: libsql or postgres")
	dbPath := fs.String("db-path", "", "database path (default: ~/.edgraph/edgraph.db)")
	pgURL := fs.String("postgres-url", "", "PostgreSQL connection URL")
	logLevel := fs.String("log-level", def.LogLevel, "log level: debug, info, warn, error")
	schedule := fs.String("retention-schedule", def.RetentionSchedule, "cron schedule for pruning revisions")
	keep := fs.Int("retention-keep", def.RetentionKeep, "revisions kept per graph, 0 disables pruning")
	diffFlags := fs.String("diff-flags", def.DiffFlags, "default diff categories")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}

	switch *driver {
	case store.DriverLibSQL:
	case store.DriverPostgres:
		if *pgURL == "" {
			return fmt.Errorf("-postgres-url is required with -db-driver postgres")
		}
	default:
		return fmt.Errorf("unknown db driver %q", *driver)
	}
	if _, err := diff.ParseFlags(*diffFlags); err != nil {
		return err
	}
	if *keep > 0 {
		if err := retention.ValidateSchedule(*schedule); err != nil {
			return err
		}
	}

	dir := edgraphDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}

	cfg := def
	cfg.DBDriver = *driver
	cfg.PostgresURL = *pgURL
	cfg.LogLevel = *logLevel
	cfg.RetentionSchedule = *schedule
	cfg.RetentionKeep = *keep
	cfg.DiffFlags = *diffFlags
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	} else {
		cfg.DBPath = filepath.Join(dir, "edgraph.db")
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	path := settingsPath()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "Config written to %s\n", path)

	if pid, ok := signalRunningServer(); ok {
		fmt.Fprintf(a.stdout, "Signaled running server (PID %d) to reload configuration\n", pid)
	}
	return nil
}

// signalRunningServer sends SIGHUP to the server named in the pidfile.
func signalRunningServer() (int, bool) {
	data, err := os.ReadFile(pidPath())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return 0, false
	}
	return pid, true
}
