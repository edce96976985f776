package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/rendis/edgraph/internal/diff"
	"github.com/rendis/edgraph/internal/expressions"
	"github.com/rendis/edgraph/internal/nodes"
	"github.com/rendis/edgraph/internal/retention"
	"github.com/rendis/edgraph/internal/store"
	"github.com/rendis/edgraph/pkg/mcp"
)

func (a *app) runServe(ctx context.Context, args []string) error {
	fs := a.flagSet("serve")
	if _, err := parseArgs(fs, args, 0, ""); err != nil {
		return err
	}
	flags, err := diff.ParseFlags(a.cfg.DiffFlags)
	if err != nil {
		return fmt.Errorf("diff_flags: %w", err)
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	a.logger.Info("store ready", slog.String("driver", a.cfg.DBDriver))

	sched, err := a.startRetention(ctx, st)
	if err != nil {
		return err
	}
	var schedMu sync.Mutex
	defer func() {
		schedMu.Lock()
		defer schedMu.Unlock()
		if sched != nil {
			_ = sched.Stop()
		}
	}()

	if err := os.MkdirAll(edgraphDir(), 0o700); err != nil {
		a.logger.Warn("cannot create edgraph directory", slog.String("error", err.Error()))
	}
	if err := os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		a.logger.Warn("cannot write pidfile", slog.String("error", err.Error()))
	} else {
		defer os.Remove(pidPath())
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				schedMu.Lock()
				sched = a.reload(ctx, st, sched)
				schedMu.Unlock()
			}
		}
	}()

	engines := expressions.Default()
	mcp.Version = version
	srv := mcp.NewServer(mcp.ServerDeps{
		Store:     st,
		Registry:  nodes.NewRegistry(engines),
		Engines:   engines,
		Options:   a.options(),
		DiffFlags: flags,
		Logger:    a.logger,
	})
	a.logger.Info("edgraph serving on stdio", slog.String("version", version))
	return srv.Serve(ctx)
}

// startRetention returns nil when retention_keep is zero.
func (a *app) startRetention(ctx context.Context, st store.Store) (*retention.Scheduler, error) {
	if a.cfg.RetentionKeep <= 0 {
		a.logger.Info("revision retention disabled")
		return nil, nil
	}
	sched, err := retention.New(st, retention.Config{
		Schedule: a.cfg.RetentionSchedule,
		Keep:     a.cfg.RetentionKeep,
		Vacuum:   true,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	if err := sched.Start(ctx); err != nil {
		return nil, err
	}
	return sched, nil
}

// reload re-reads the configuration after SIGHUP. The log level and the
// retention schedule apply immediately; other changes wait for a restart.
func (a *app) reload(ctx context.Context, st store.Store, sched *retention.Scheduler) *retention.Scheduler {
	next := loadConfig()
	d := diffConfigs(a.cfg, next)

	if d.LogLevelChanged {
		a.level.Set(next.slogLevel())
		a.logger.Info("log level changed", slog.String("level", next.LogLevel))
	}
	for _, field := range d.RestartNeeded {
		a.logger.Warn("config change requires restart", slog.String("field", field))
	}
	if !d.RetentionChanged {
		a.cfg = next
		return sched
	}

	if sched != nil {
		_ = sched.Stop()
	}
	prev := a.cfg
	a.cfg = next
	fresh, err := a.startRetention(ctx, st)
	if err != nil {
		a.logger.Error("retention reload failed, keeping previous schedule", slog.String("error", err.Error()))
		a.cfg.RetentionSchedule, a.cfg.RetentionKeep = prev.RetentionSchedule, prev.RetentionKeep
		fresh, _ = a.startRetention(ctx, st)
	} else {
		a.logger.Info("retention rescheduled",
			slog.String("schedule", next.RetentionSchedule), slog.Int("keep", next.RetentionKeep))
	}
	return fresh
}
