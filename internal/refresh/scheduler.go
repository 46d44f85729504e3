package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type SchedulerConfig struct {
	Interval   time.Duration
	RunOnStart bool
}

// Scheduler fires the trigger on a fixed interval.
type Scheduler struct {
	trigger *Trigger
	cfg     SchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(trigger *Trigger, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	return &Scheduler{trigger: trigger, cfg: cfg}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		slog.Warn("refresh scheduler already running", slog.String("component", "refresh"))
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.cfg.RunOnStart {
			s.run(stop)
		}
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.run(stop)
			}
		}
	}()

	slog.Info("refresh scheduler started", slog.String("component", "refresh"), slog.Duration("interval", s.cfg.Interval))
}

// Stop halts the ticker and waits for an in-flight trigger to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("refresh scheduler stopped", slog.String("component", "refresh"))
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(stop <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := s.trigger.fire(ctx, "scheduler"); err != nil {
		slog.Error("scheduled refresh failed", slog.String("component", "refresh"), slog.Any("error", err))
	}
}
