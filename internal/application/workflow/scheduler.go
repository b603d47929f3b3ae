package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/auditops/envsegd/internal/domain/inventory"
)

// Scheduler drives the selected workflows at a fixed interval. Each kind
// ticks independently so a slow analysis on one inventory does not delay
// the others.
type Scheduler struct {
	Manager  *Manager
	Interval time.Duration
	Log      *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// Start launches one ticker loop per kind. The first pass runs after one
// interval, matching the periodic contract.
func (s *Scheduler) Start(ctx context.Context, kinds []inventory.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})

	for _, kind := range kinds {
		s.wg.Add(1)
		go s.loop(ctx, kind, s.stop)
	}
	s.Log.Info("schedulers started", "kinds", len(kinds), "interval", s.Interval)
}

func (s *Scheduler) loop(ctx context.Context, kind inventory.Kind, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case t := <-ticker.C:
			s.Log.Info("scheduled run triggered", "workflow", string(kind), "at", t.Format(time.RFC3339))
			if err := s.Manager.RunWorkflow(ctx, kind); err != nil {
				s.Log.Error("scheduled workflow failed", "workflow", string(kind), "error", err)
			}
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// Stop halts all ticker loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()
	s.wg.Wait()
	s.Log.Info("schedulers stopped")
}

// RunFor blocks for the given duration (zero means until ctx is done),
// then stops the schedulers.
func (s *Scheduler) RunFor(ctx context.Context, kinds []inventory.Kind, duration time.Duration) {
	s.Start(ctx, kinds)
	if duration > 0 {
		select {
		case <-time.After(duration):
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}
	s.Stop()
}
