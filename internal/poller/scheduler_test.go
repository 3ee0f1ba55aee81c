package poller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and is a safe no-op.
func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler := NewScheduler(time.Minute, func(context.Context) {}, nil, testLogger())

	// this must not panic
	scheduler.Stop()
}

// TestScheduler_StopTwice verifies that Stop() is idempotent.
func TestScheduler_StopTwice(t *testing.T) {
	scheduler := NewScheduler(time.Minute, func(context.Context) {}, nil, testLogger())
	scheduler.Start(context.Background())

	scheduler.Stop()
	scheduler.Stop()
}

// TestScheduler_StopBeforeStartThenStart verifies that a stopped scheduler
// cannot be restarted.
func TestScheduler_StopBeforeStartThenStart(t *testing.T) {
	clock := clockz.NewFakeClock()
	var ticks atomic.Int32

	scheduler := NewScheduler(time.Second, func(context.Context) { ticks.Add(1) }, clock, testLogger())
	scheduler.Stop()
	scheduler.Start(context.Background())

	clock.Advance(5 * time.Second)
	clock.BlockUntilReady()
	time.Sleep(20 * time.Millisecond)

	if ticks.Load() != 0 {
		t.Errorf("ticks = %d, want 0", ticks.Load())
	}
}

// TestScheduler_TicksAtInterval verifies that one tick is dispatched per
// elapsed interval and none before the first interval elapses.
func TestScheduler_TicksAtInterval(t *testing.T) {
	clock := clockz.NewFakeClock()
	var ticks atomic.Int32

	scheduler := NewScheduler(time.Minute, func(context.Context) { ticks.Add(1) }, clock, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	clock.Advance(30 * time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)
	if ticks.Load() != 0 {
		t.Fatalf("ticks = %d before first interval, want 0", ticks.Load())
	}

	for i := 1; i <= 3; i++ {
		clock.Advance(time.Minute)
		clock.BlockUntilReady()
		want := i
		waitFor(t, func() bool { return scheduler.Ticks() == want })
	}

	waitFor(t, func() bool { return ticks.Load() == 3 })
}

// TestScheduler_StartTwice verifies that Start() is idempotent and does not
// arm a second timer.
func TestScheduler_StartTwice(t *testing.T) {
	clock := clockz.NewFakeClock()
	var ticks atomic.Int32

	scheduler := NewScheduler(time.Minute, func(context.Context) { ticks.Add(1) }, clock, testLogger())
	scheduler.Start(context.Background())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	clock.Advance(time.Minute)
	clock.BlockUntilReady()
	waitFor(t, func() bool { return ticks.Load() == 1 })

	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != 1 {
		t.Errorf("ticks = %d, want 1", ticks.Load())
	}
}

// TestScheduler_NoTicksAfterStop verifies that a stopped scheduler's timer
// no longer fires.
func TestScheduler_NoTicksAfterStop(t *testing.T) {
	clock := clockz.NewFakeClock()
	var ticks atomic.Int32

	scheduler := NewScheduler(time.Minute, func(context.Context) { ticks.Add(1) }, clock, testLogger())
	scheduler.Start(context.Background())
	scheduler.Stop()

	clock.Advance(10 * time.Minute)
	clock.BlockUntilReady()
	time.Sleep(20 * time.Millisecond)

	if ticks.Load() != 0 {
		t.Errorf("ticks = %d after Stop, want 0", ticks.Load())
	}
}

// TestScheduler_ContextCancellation verifies that cancelling the parent
// context ends the loop.
func TestScheduler_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(time.Minute, func(context.Context) {}, clockz.NewFakeClock(), testLogger())
	scheduler.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return after context cancellation")
	}
}

// TestScheduler_TickPanicRecovery verifies that a panicking tick does not
// stop subsequent ticks.
func TestScheduler_TickPanicRecovery(t *testing.T) {
	clock := clockz.NewFakeClock()
	var calls atomic.Int32

	scheduler := NewScheduler(time.Second, func(context.Context) {
		if calls.Add(1) == 1 {
			panic("first tick explodes")
		}
	}, clock, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	waitFor(t, func() bool { return calls.Load() == 1 })

	clock.Advance(time.Second)
	clock.BlockUntilReady()
	waitFor(t, func() bool { return calls.Load() == 2 })
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not cause a race condition or panic.
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 100; i++ {
		scheduler := NewScheduler(time.Minute, func(context.Context) {}, clockz.NewFakeClock(), testLogger())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			scheduler.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()
		wg.Wait()

		scheduler.Stop()
	}
}
