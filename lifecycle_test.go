package applet

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/qdesktop/qapplet/config"
)

// blockingRunner blocks every run until release is closed.
type blockingRunner struct {
	runs    atomic.Int32
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) (*Signal, error) {
	r.runs.Add(1)
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return NewSignal(nil), nil
}

// hookRunner records configuration and shutdown calls.
type hookRunner struct {
	countingRunner

	mu        sync.Mutex
	applyErr  error
	applied   []*config.Snapshot
	shutdowns int
	order     *[]string
}

func (r *hookRunner) ApplyConfig(_ context.Context, snap *config.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	r.applied = append(r.applied, snap)
	return nil
}

func (r *hookRunner) Shutdown(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdowns++
	if r.order != nil {
		*r.order = append(*r.order, "runner")
	}
	return nil
}

func (r *hookRunner) setApplyErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyErr = err
}

func TestNew_RequiresRunner(t *testing.T) {
	if _, err := New(nil, WithLogger(testLogger())); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
}

func TestNew_EmptyConfigurationHasDefaults(t *testing.T) {
	for _, opts := range [][]Option{
		nil,
		{WithConfig(&config.Root{})},
		{WithArgs(nil)},
	} {
		svc := newFakeService(t)
		a, err := New(&countingRunner{}, append([]Option{
			WithLogger(testLogger()),
			WithBackendURL(svc.URL()),
			WithStoreOpener(MemoryStoreOpener),
		}, opts...)...)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		if a.Config() == nil {
			t.Fatal("Config() = nil")
		}
		g := a.Geometry()
		if g.Width != 1 || g.Height != 1 || g.Origin == nil || *g.Origin != (config.Origin{X: 1, Y: 1}) {
			t.Errorf("Geometry() = %+v, want 1x1 at {1,1}", g)
		}
		if a.Authorization() != (config.Authorization{}) {
			t.Errorf("Authorization() = %+v, want empty", a.Authorization())
		}
		if !a.Configured() {
			t.Error("Configured() = false")
		}
		_ = a.Shutdown(context.Background())
	}
}

func TestNew_ArgsConfiguration(t *testing.T) {
	svc := newFakeService(t)
	a, err := New(&countingRunner{},
		WithLogger(testLogger()),
		WithBackendURL(svc.URL()),
		WithStoreOpener(MemoryStoreOpener),
		WithArgs([]string{`{"extensionId":"from-args","geometry":{"width":4,"height":1}}`}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = a.Shutdown(context.Background()) }()

	if a.ExtensionID() != "from-args" || a.Width() != 4 || a.Height() != 1 {
		t.Errorf("got %q %dx%d, want from-args 4x1", a.ExtensionID(), a.Width(), a.Height())
	}
}

func TestNew_InvalidArgs(t *testing.T) {
	_, err := New(&countingRunner{},
		WithLogger(testLogger()),
		WithStoreOpener(MemoryStoreOpener),
		WithArgs([]string{`{not json`}),
	)
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("New() error = %v, want ErrInvalid", err)
	}
}

func TestPoll_PausedIsNoOp(t *testing.T) {
	svc := newFakeService(t)
	runner := &countingRunner{}
	a := newTestApplet(t, runner, svc)

	a.Pause()
	a.Poll(context.Background(), false)

	if runner.runs.Load() != 0 {
		t.Errorf("runs = %d, want 0", runner.runs.Load())
	}
	if len(svc.Signals()) != 0 {
		t.Error("paused poll sent a signal")
	}
}

func TestPoll_ForcedRunsWhilePaused(t *testing.T) {
	svc := newFakeService(t)
	runner := &countingRunner{signal: func() *Signal { return NewSignal(grid(1, 1)) }}
	a := newTestApplet(t, runner, svc)

	a.Pause()
	a.Poll(context.Background(), true)

	if runner.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runner.runs.Load())
	}
	if len(svc.Signals()) != 1 {
		t.Errorf("posted %d signals, want 1", len(svc.Signals()))
	}
	if !a.Paused() {
		t.Error("forced poll cleared the paused flag")
	}
}

func TestPoll_SkipsWhileRunningUnlessForced(t *testing.T) {
	svc := newFakeService(t)
	runner := &blockingRunner{release: make(chan struct{})}
	a := newTestApplet(t, runner, svc)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		a.Poll(ctx, false)
		close(done)
	}()
	waitFor(t, "first poll to start", a.Running)

	a.Poll(ctx, false)
	if got := runner.runs.Load(); got != 1 {
		t.Fatalf("runs = %d after busy poll, want 1", got)
	}

	forced := make(chan struct{})
	go func() {
		a.Poll(ctx, true)
		close(forced)
	}()
	waitFor(t, "forced poll to start", func() bool { return runner.runs.Load() == 2 })

	close(runner.release)
	for _, ch := range []chan struct{}{done, forced} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("poll did not finish")
		}
	}

	if a.Running() {
		t.Error("Running() = true after all polls finished")
	}
	if got := len(svc.Signals()); got != 2 {
		t.Errorf("posted %d signals, want 2", got)
	}
}

func TestPoll_RunnerErrorSendsErrorSignal(t *testing.T) {
	svc := newFakeService(t)
	runner := &countingRunner{err: errors.New("api down")}
	a := newTestApplet(t, runner, svc)

	a.Poll(context.Background(), false)

	if err := a.ErrorState(); err == nil || err.Error() != "api down" {
		t.Errorf("ErrorState() = %v, want api down", err)
	}
	sent := svc.Signals()
	if len(sent) != 1 || sent[0].Action != string(ActionError) {
		t.Fatalf("sent = %+v, want one ERROR signal", sent)
	}
	if !reflect.DeepEqual(sent[0].Errors, []string{"api down"}) {
		t.Errorf("errors = %v, want [api down]", sent[0].Errors)
	}

	runner.err = nil
	a.Poll(context.Background(), false)
	if a.ErrorState() != nil {
		t.Errorf("ErrorState() = %v after successful run, want nil", a.ErrorState())
	}
}

func TestPoll_RunnerPanic(t *testing.T) {
	svc := newFakeService(t)
	a := newTestApplet(t, RunnerFunc(func(context.Context) (*Signal, error) {
		panic("kaboom")
	}), svc)

	a.Poll(context.Background(), false)

	var perr *PanicError
	if !errors.As(a.ErrorState(), &perr) {
		t.Fatalf("ErrorState() = %v, want *PanicError", a.ErrorState())
	}
	if perr.Value != "kaboom" || perr.CorrelationID == "" {
		t.Errorf("PanicError = %+v", perr)
	}
	if a.Running() {
		t.Error("Running() = true after panic")
	}
	if sent := svc.Signals(); len(sent) != 1 || sent[0].Action != string(ActionError) {
		t.Errorf("sent = %+v, want one ERROR signal", sent)
	}
}

func TestStart_RepeatedKeepsOneTimer(t *testing.T) {
	svc := newFakeService(t)
	runner := &countingRunner{}
	clock := clockz.NewFakeClock()
	a := newTestApplet(t, runner, svc, WithClock(clock), WithPollingInterval(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := a.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}
	if got := runner.runs.Load(); got != 3 {
		t.Fatalf("runs = %d after three starts, want 3", got)
	}

	for want := int32(4); want <= 5; want++ {
		clock.Advance(time.Minute)
		clock.BlockUntilReady()
		waitFor(t, "scheduled poll", func() bool { return runner.runs.Load() >= want })
	}

	time.Sleep(20 * time.Millisecond)
	if got := runner.runs.Load(); got != 5 {
		t.Errorf("runs = %d, want 5 (one per interval)", got)
	}
}

func TestStart_WaitsForConfiguration(t *testing.T) {
	svc := newFakeService(t)
	runner := &hookRunner{}
	a := newTestApplet(t, runner, svc)
	ctx := context.Background()

	runner.setApplyErr(errors.New("bad token"))
	if err := a.Configure(ctx, testRoot()); err == nil {
		t.Fatal("Configure() error = nil, want error")
	}
	if a.Configured() {
		t.Fatal("Configured() = true after failed configure")
	}

	started := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { started <- a.Start(ctx) }()
	}

	time.Sleep(30 * time.Millisecond)
	if got := runner.runs.Load(); got != 0 {
		t.Fatalf("runs = %d before configuration, want 0", got)
	}

	runner.setApplyErr(nil)
	if err := a.Configure(ctx, testRoot()); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-started:
			if err != nil {
				t.Errorf("Start() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Start() did not return after configuration")
		}
	}
	if runner.runs.Load() == 0 {
		t.Error("no poll ran after configuration")
	}
}

func TestStart_ContextCancelledBeforeConfiguration(t *testing.T) {
	svc := newFakeService(t)
	runner := &hookRunner{}
	a := newTestApplet(t, runner, svc)

	runner.setApplyErr(errors.New("bad token"))
	_ = a.Configure(context.Background(), testRoot())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Start(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Start() error = %v, want ErrNotConfigured", err)
	}
}

func TestConfigure_AppliesSnapshotToRunner(t *testing.T) {
	svc := newFakeService(t)
	runner := &hookRunner{}
	a := newTestApplet(t, runner, svc)

	root := testRoot()
	root.Applet = &config.AppletConfig{User: map[string]any{"repo": "qapplet"}}
	if err := a.Configure(context.Background(), root); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	runner.mu.Lock()
	last := runner.applied[len(runner.applied)-1]
	runner.mu.Unlock()
	if got, _ := last.String("repo"); got != "qapplet" {
		t.Errorf("repo = %q, want qapplet", got)
	}
	if a.Config() != last {
		t.Error("runner saw a different snapshot from Config()")
	}
}

func TestConfigure_InvalidGeometry(t *testing.T) {
	svc := newFakeService(t)
	a := newTestApplet(t, &countingRunner{}, svc)

	err := a.Configure(context.Background(), &config.Root{Geometry: &config.Geometry{Width: 0, Height: 2}})
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("Configure() error = %v, want ErrInvalid", err)
	}
	if a.Configured() {
		t.Error("Configured() = true after invalid configuration")
	}
}

func TestShutdown_RunsOnceWithHooks(t *testing.T) {
	svc := newFakeService(t)
	var order []string
	runner := &hookRunner{order: &order}
	a := newTestApplet(t, runner, svc)

	a.OnShutdown(func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	a.OnShutdown(func(context.Context) error {
		order = append(order, "second")
		return errors.New("close db")
	})

	err1 := a.Shutdown(context.Background())
	err2 := a.Shutdown(context.Background())

	if err1 == nil || err1.Error() != "close db" {
		t.Errorf("Shutdown() error = %v, want close db", err1)
	}
	if err2 != err1 {
		t.Errorf("second Shutdown() = %v, want first result", err2)
	}
	if !reflect.DeepEqual(order, []string{"runner", "first", "second"}) {
		t.Errorf("hook order = %v", order)
	}
	if runner.shutdowns != 1 {
		t.Errorf("runner shutdowns = %d, want 1", runner.shutdowns)
	}

	a.Poll(context.Background(), true)
	if runner.runs.Load() != 0 {
		t.Error("Poll() ran after shutdown")
	}
	if err := a.Start(context.Background()); !errors.Is(err, ErrShutdown) {
		t.Errorf("Start() after shutdown = %v, want ErrShutdown", err)
	}
}

func TestShutdown_WaitsForPollInProgress(t *testing.T) {
	svc := newFakeService(t)
	runner := &blockingRunner{release: make(chan struct{})}
	a := newTestApplet(t, runner, svc)

	go a.Poll(context.Background(), false)
	waitFor(t, "poll to start", a.Running)

	shut := make(chan struct{})
	go func() {
		_ = a.Shutdown(context.Background())
		close(shut)
	}()

	select {
	case <-shut:
		t.Fatal("Shutdown() returned while a poll was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-shut:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown() did not return")
	}
	if got := len(svc.Signals()); got != 1 {
		t.Errorf("posted %d signals, want the in-flight one", got)
	}
}
