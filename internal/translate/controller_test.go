package translate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/gesture"
)

// recorder collects emissions from the loop goroutine.
type recorder struct {
	mu      sync.Mutex
	classes []int
}

func (r *recorder) onEmit(e Emission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, e.Class)
}

func (r *recorder) emitted() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.classes))
	copy(out, r.classes)
	return out
}

// immediateClock never waits.
type immediateClock struct{}

func (immediateClock) Next(ctx context.Context) error { return ctx.Err() }

// gatedPredictor blocks every Predict until the test releases it.
type gatedPredictor struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedPredictor() *gatedPredictor {
	return &gatedPredictor{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedPredictor) Predict(ctx context.Context, frame *capture.Frame) (classifier.Prediction, error) {
	g.entered <- struct{}{}
	<-g.release
	return classifier.NoPrediction(2), nil
}

type fixture struct {
	camera     *capture.MockCamera
	classifier *classifier.Mock
	clock      *ManualClock
	recorder   *recorder
	controller *Controller
}

func newFixture(t *testing.T, resetOnStart bool) *fixture {
	t.Helper()

	f := &fixture{
		camera:     capture.NewMockCamera(nil, false),
		classifier: classifier.NewMock(2),
		clock:      NewManualClock(),
		recorder:   &recorder{},
	}
	if err := f.classifier.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	c, err := NewController(Config{
		Source:       f.camera,
		Predictor:    f.classifier,
		Clock:        f.clock,
		ResetOnStart: resetOnStart,
		OnEmit:       f.recorder.onEmit,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	f.controller = c
	return f
}

// runPasses starts the controller and runs exactly n iterations.
func (f *fixture) runPasses(t *testing.T, n int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !f.controller.Start(context.Background()) {
		t.Fatal("Start() returned false")
	}
	for i := 1; i < n; i++ {
		if !f.clock.Tick(ctx) {
			t.Fatalf("timed out waiting for iteration %d", i+1)
		}
	}
	f.controller.Stop()
	f.controller.Wait()
}

func assertEmitted(t *testing.T, got []int, want ...int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("emitted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("emitted %v, want %v", got, want)
		}
	}
}

func TestNewController_Validation(t *testing.T) {
	if _, err := NewController(Config{Predictor: classifier.NewMock(2)}); err == nil {
		t.Error("expected error without a source")
	}
	if _, err := NewController(Config{Source: capture.NewMockCamera(nil, false)}); err == nil {
		t.Error("expected error without a predictor")
	}
}

func TestController_DebouncesHeldGesture(t *testing.T) {
	f := newFixture(t, false)
	f.classifier.Script(
		classifier.Predicted(2, classA, 0.99),
		classifier.Predicted(2, classA, 0.99),
		classifier.Predicted(2, classA, 0.99),
	)

	f.runPasses(t, 3)

	assertEmitted(t, f.recorder.emitted(), classA)
	if got := f.controller.Stats().Iterations; got != 3 {
		t.Errorf("iterations = %d, want 3", got)
	}
}

func TestController_EmittedSequence(t *testing.T) {
	f := newFixture(t, false)
	f.classifier.Script(
		classifier.Predicted(2, classA, 0.99),
		classifier.Predicted(2, classA, 0.995),
		classifier.Predicted(2, classB, 0.99),
		classifier.Predicted(2, classB, 0.3),
		classifier.Predicted(2, classB, 0.99),
	)

	f.runPasses(t, 5)

	assertEmitted(t, f.recorder.emitted(), classA, classB)
	if f.controller.Previous() != classB {
		t.Errorf("Previous() = %d, want %d", f.controller.Previous(), classB)
	}
}

func TestController_ReleasesFrameOnFailure(t *testing.T) {
	f := newFixture(t, false)
	boom := errors.New("classifier crashed")
	f.classifier.Script(
		classifier.Failed(boom),
		classifier.Failed(boom),
		classifier.Predicted(2, classB, 0.99),
	)

	f.runPasses(t, 3)

	if f.camera.Acquired() != 3 {
		t.Errorf("acquired = %d, want 3", f.camera.Acquired())
	}
	if f.camera.Released() != f.camera.Acquired() {
		t.Errorf("released = %d, want %d", f.camera.Released(), f.camera.Acquired())
	}
	if got := f.controller.Stats().Failures; got != 2 {
		t.Errorf("failures = %d, want 2", got)
	}

	// The loop kept going after the failures.
	assertEmitted(t, f.recorder.emitted(), classB)
}

func TestController_StopIsIdempotent(t *testing.T) {
	f := newFixture(t, false)

	if f.controller.Stop() {
		t.Error("Stop() while idle should report no transition")
	}
	if f.controller.State() != Idle {
		t.Errorf("State() = %v, want idle", f.controller.State())
	}

	if !f.controller.Start(context.Background()) {
		t.Fatal("Start() returned false")
	}
	if f.controller.State() != Predicting {
		t.Errorf("State() = %v, want predicting", f.controller.State())
	}
	if f.controller.Start(context.Background()) {
		t.Error("second Start() should report no transition")
	}

	if !f.controller.Stop() {
		t.Error("first Stop() should report a transition")
	}
	if f.controller.Stop() {
		t.Error("second Stop() should report no transition")
	}
	f.controller.Wait()

	if f.controller.State() != Idle {
		t.Errorf("State() = %v, want idle", f.controller.State())
	}
	if f.camera.Acquired() != f.camera.Released() {
		t.Errorf("acquired/released = %d/%d", f.camera.Acquired(), f.camera.Released())
	}
}

func TestController_IterationsDoNotOverlap(t *testing.T) {
	camera := capture.NewMockCamera(nil, false)
	pred := newGatedPredictor()

	c, err := NewController(Config{
		Source:    camera,
		Predictor: pred,
		Clock:     immediateClock{},
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}

	c.Start(context.Background())

	<-pred.entered
	time.Sleep(20 * time.Millisecond)
	if got := camera.Acquired(); got != 1 {
		t.Fatalf("acquired %d frames while the first prediction is pending, want 1", got)
	}

	pred.release <- struct{}{}
	<-pred.entered

	if got := camera.Acquired(); got != 2 {
		t.Errorf("acquired = %d, want 2", got)
	}
	if got := camera.Released(); got != 1 {
		t.Errorf("released = %d before the second prediction, want 1", got)
	}

	c.Stop()
	pred.release <- struct{}{}
	c.Wait()

	if camera.Acquired() != 2 || camera.Released() != 2 {
		t.Errorf("acquired/released = %d/%d, want 2/2", camera.Acquired(), camera.Released())
	}
}

func TestController_StopDuringPrediction(t *testing.T) {
	camera := capture.NewMockCamera(nil, false)
	pred := newGatedPredictor()

	c, _ := NewController(Config{
		Source:    camera,
		Predictor: pred,
		Clock:     immediateClock{},
	})

	c.Start(context.Background())
	<-pred.entered

	c.Stop()
	if c.State() != Idle {
		t.Errorf("State() = %v right after Stop, want idle", c.State())
	}

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("loop exited while a prediction was still pending")
	case <-time.After(20 * time.Millisecond):
	}

	pred.release <- struct{}{}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not exit after the pending prediction completed")
	}

	if camera.Acquired() != 1 || camera.Released() != 1 {
		t.Errorf("acquired/released = %d/%d, want 1/1", camera.Acquired(), camera.Released())
	}
}

func TestController_SkipsUnavailableFrames(t *testing.T) {
	f := newFixture(t, false)
	f.camera.Detach()

	f.runPasses(t, 3)

	if got := f.classifier.Calls(); got != 0 {
		t.Errorf("Predict called %d times without frames, want 0", got)
	}
	if got := f.controller.Stats().Skipped; got != 3 {
		t.Errorf("skipped = %d, want 3", got)
	}
	assertEmitted(t, f.recorder.emitted())
}

func TestController_PreviousAcrossSessions(t *testing.T) {
	tests := []struct {
		name         string
		resetOnStart bool
		want         []int
	}{
		{name: "preserved by default", resetOnStart: false, want: []int{classA}},
		{name: "reset on start", resetOnStart: true, want: []int{classA, classA}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.resetOnStart)

			f.classifier.Script(classifier.Predicted(2, classA, 0.99))
			f.runPasses(t, 1)

			f.classifier.Script(classifier.Predicted(2, classA, 0.99))
			f.runPasses(t, 1)

			assertEmitted(t, f.recorder.emitted(), tt.want...)
		})
	}
}

func TestController_ContextDoneEndsSession(t *testing.T) {
	f := newFixture(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	f.controller.Start(ctx)
	cancel()
	f.controller.Wait()

	if f.controller.State() != Idle {
		t.Fatalf("State() = %v after context done, want idle", f.controller.State())
	}
	if f.controller.Previous() != gesture.NoClass {
		t.Errorf("Previous() = %d, want NoClass", f.controller.Previous())
	}

	// A new session can be started afterwards.
	f.runPasses(t, 1)
}

func TestState_String(t *testing.T) {
	if Idle.String() != "idle" || Predicting.String() != "predicting" || State(7).String() != "unknown" {
		t.Errorf("unexpected State strings: %s %s %s", Idle, Predicting, State(7))
	}
}

func TestRefreshClock(t *testing.T) {
	c := NewRefreshClock(0)
	if c.Interval() != time.Second/DefaultRefreshRate {
		t.Errorf("Interval() = %v, want %v", c.Interval(), time.Second/DefaultRefreshRate)
	}

	fast := NewRefreshClock(1000)
	start := time.Now()
	if err := fast.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < fast.Interval() {
		t.Errorf("Next() returned after %v, want at least %v", elapsed, fast.Interval())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRefreshClock(1).Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}
