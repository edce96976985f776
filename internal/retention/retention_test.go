package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/edgraph/pkg/edgraph"
)

type mockPruner struct {
	mu       sync.Mutex
	keeps    []int
	vacuums  int
	deleted  int64
	pruneErr error
	block    chan struct{}
	entered  chan struct{}
}

func (m *mockPruner) PruneRevisions(_ context.Context, keep int) (int64, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keeps = append(m.keeps, keep)
	return m.deleted, m.pruneErr
}

func (m *mockPruner) Vacuum(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vacuums++
	return nil
}

func (m *mockPruner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keeps)
}

func codeOf(err error) string {
	var e *edgraph.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestNew_Validation(t *testing.T) {
	p := &mockPruner{}
	tests := []struct {
		name   string
		pruner Pruner
		cfg    Config
	}{
		{"nil store", nil, Config{Schedule: "@daily", Keep: 1}},
		{"keep zero", p, Config{Schedule: "@daily"}},
		{"bad cron", p, Config{Schedule: "every day", Keep: 3}},
		{"six fields", p, Config{Schedule: "0 0 3 * * *", Keep: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pruner, tt.cfg, nil)
			require.Error(t, err)
			assert.Equal(t, edgraph.ErrCodeValidation, codeOf(err))
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("@weekly"))
	assert.NoError(t, ValidateSchedule("0 4 * * 1"))

	err := ValidateSchedule("sometimes")
	require.Error(t, err)
	assert.Equal(t, edgraph.ErrCodeValidation, codeOf(err))
}

func TestNextRun(t *testing.T) {
	s, err := New(&mockPruner{}, Config{Schedule: "30 3 * * *", Keep: 5}, nil)
	require.NoError(t, err)

	from := time.Date(2026, 5, 10, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 11, 3, 30, 0, 0, time.UTC), s.NextRun(from))

	s, err = New(&mockPruner{}, Config{Schedule: "@every 6h", Keep: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, from.Add(6*time.Hour), s.NextRun(from))
}

func TestRunOnce(t *testing.T) {
	p := &mockPruner{deleted: 4}
	s, err := New(p, Config{Schedule: "@daily", Keep: 10, Vacuum: true}, nil)
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, []int{10}, p.keeps)
	assert.Equal(t, 1, p.vacuums)

	p.deleted = 0
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.vacuums, "nothing deleted, nothing to vacuum")
}

func TestRunOnce_Error(t *testing.T) {
	p := &mockPruner{pruneErr: errors.New("disk full")}
	s, err := New(p, Config{Schedule: "@daily", Keep: 1, Vacuum: true}, nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Zero(t, p.vacuums)

	p.pruneErr = nil
	_, err = s.RunOnce(context.Background())
	assert.NoError(t, err, "a failed run releases the lock")
}

func TestRunOnce_Overlap(t *testing.T) {
	p := &mockPruner{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s, err := New(p, Config{Schedule: "@daily", Keep: 1}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()
	<-p.entered

	_, err = s.RunOnce(context.Background())
	assert.Equal(t, edgraph.ErrCodeConflict, codeOf(err))

	close(p.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, p.calls())
}

func TestStartStop(t *testing.T) {
	p := &mockPruner{}
	s, err := New(p, Config{Schedule: "@every 1s", Keep: 2}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "double start")

	assert.Eventually(t, func() bool { return p.calls() >= 1 }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stop is idempotent")

	after := p.calls()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, p.calls(), "no runs after stop")
}

func TestStop_ParentContext(t *testing.T) {
	s, err := New(&mockPruner{}, Config{Schedule: "@daily", Keep: 1}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	require.NoError(t, s.Stop())
}
