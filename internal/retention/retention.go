// Package retention prunes old graph revisions on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Pruner is the slice of store.Store the scheduler needs.
type Pruner interface {
	PruneRevisions(ctx context.Context, keep int) (int64, error)
	Vacuum(ctx context.Context) error
}

// Config controls a Scheduler.
type Config struct {
	// Schedule is a five-field cron expression or a descriptor such as
	// "@daily" or "@every 6h".
	Schedule string
	// Keep is the number of newest revisions retained per graph.
	Keep int
	// Vacuum reclaims space after a run that deleted anything.
	Vacuum bool
}

// Scheduler runs PruneRevisions whenever its schedule fires.
type Scheduler struct {
	pruner   Pruner
	cfg      Config
	schedule cron.Schedule
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex

	runMu   sync.Mutex
	running bool
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a schedule New would accept.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return edgraph.NewErrorf(edgraph.ErrCodeValidation, "parse retention schedule %q: %v", expr, err).WithCause(err)
	}
	return nil
}

// New validates cfg and returns a stopped scheduler.
func New(p Pruner, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if p == nil {
		return nil, edgraph.NewError(edgraph.ErrCodeValidation, "retention needs a store")
	}
	if cfg.Keep < 1 {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation, "retention keep must be at least 1, got %d", cfg.Keep)
	}
	schedule, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation, "parse retention schedule %q: %v", cfg.Schedule, err).WithCause(err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{pruner: p, cfg: cfg, schedule: schedule, logger: logger}, nil
}

// NextRun returns the first activation strictly after from.
func (s *Scheduler) NextRun(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Start launches the background loop. It returns an error if already started.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("retention scheduler already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(loopCtx)
	s.logger.Info("retention scheduler started",
		slog.String("schedule", s.cfg.Schedule),
		slog.Int("keep", s.cfg.Keep),
	)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	for {
		next := s.NextRun(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("retention run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce prunes immediately. Overlapping calls fail with CONFLICT rather
// than queueing.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	if !s.tryAcquire() {
		return 0, edgraph.NewError(edgraph.ErrCodeConflict, "retention run already in progress")
	}
	defer s.release()

	start := time.Now()
	n, err := s.pruner.PruneRevisions(ctx, s.cfg.Keep)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	if n > 0 && s.cfg.Vacuum {
		if err := s.pruner.Vacuum(ctx); err != nil {
			return n, fmt.Errorf("vacuum after prune: %w", err)
		}
	}
	s.logger.Info("retention run finished",
		slog.Int64("deleted", n),
		slog.Duration("duration", time.Since(start)),
	)
	return n, nil
}

func (s *Scheduler) tryAcquire() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.runMu.Lock()
	s.running = false
	s.runMu.Unlock()
}

// Stop shuts the loop down and waits for an in-flight run to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("retention scheduler stopped")
	return nil
}
