package workflow

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditops/envsegd/internal/domain/inventory"
)

func TestSchedulerRunsPeriodically(t *testing.T) {
	dataDir, outDir := t.TempDir(), t.TempDir()
	seedInputData(t, dataDir)
	repo := &memRunRepo{}
	m := newTestManager(t, dataDir, outDir, repo)

	s := &Scheduler{
		Manager:  m,
		Interval: 20 * time.Millisecond,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.RunFor(context.Background(), []inventory.Kind{inventory.KindEnvironment}, 150*time.Millisecond)

	// first pass after one interval, then repeats until the duration elapses
	require.NotEmpty(t, repo.saved)
	for _, run := range repo.saved {
		assert.Equal(t, "env", run.Process)
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	repo := &memRunRepo{}
	m := newTestManager(t, t.TempDir(), t.TempDir(), repo)

	s := &Scheduler{
		Manager:  m,
		Interval: time.Hour,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunFor(ctx, inventory.AllKinds(), 0)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
	assert.Empty(t, repo.saved)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := &Scheduler{
		Manager:  newTestManager(t, t.TempDir(), t.TempDir(), nil),
		Interval: time.Hour,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.Start(context.Background(), []inventory.Kind{inventory.KindEnvironment})
	s.Stop()
	s.Stop()
}
