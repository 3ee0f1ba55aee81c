package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
)

// TickFunc is invoked once per elapsed interval.
type TickFunc func(ctx context.Context)

// Scheduler invokes a [TickFunc] at a fixed interval.
//
// The first tick happens one interval after [Scheduler.Start]; callers that
// want an immediate poll perform it themselves before starting. The timer is
// re-armed before each tick runs, so the cadence stays fixed even when a tick
// is slow. Ticks never overlap: a slow tick delays the next one.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	interval time.Duration
	tick     TickFunc
	clock    clockz.Clock
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	ticks   int
}

// NewScheduler creates a new [Scheduler].
//
// Parameters:
//   - interval: Time between ticks
//   - tick: Function invoked on every tick
//   - clock: Time source; nil selects clockz.RealClock
//   - logger: Logger for scheduler events (panic recovery, etc.)
func NewScheduler(interval time.Duration, tick TickFunc, clock clockz.Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockz.RealClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		tick:     tick,
		clock:    clock,
		logger:   logger,
	}
}

// Interval returns the configured tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Ticks returns how many ticks have been dispatched so far.
func (s *Scheduler) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Start arms the timer and begins the tick loop in a background goroutine.
//
// The timer is created before Start returns. Start is idempotent; subsequent
// calls after the first are no-ops. If Stop was called before Start, Start is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	timer := s.clock.NewTimer(s.interval)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer timer.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-timer.C():
				timer.Reset(s.interval)

				s.mu.Lock()
				s.ticks++
				s.mu.Unlock()

				s.safeTick(loopCtx)
			}
		}
	}()
}

// Stop halts the scheduler and waits for the loop (including a running tick)
// to finish.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// safeTick calls the tick function with panic recovery so a misbehaving tick
// cannot kill the loop. The stack is logged with a correlation ID.
func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("poll tick panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.tick(ctx)
}
