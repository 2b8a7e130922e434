package translate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
)

// State is the state of the classification loop.
type State int

const (
	// Idle means no frames are requested.
	Idle State = iota
	// Predicting means the loop is classifying frames.
	Predicting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Predicting:
		return "predicting"
	default:
		return "unknown"
	}
}

// Predictor classifies a frame.
type Predictor interface {
	Predict(ctx context.Context, frame *capture.Frame) (classifier.Prediction, error)
}

// Config holds the controller's collaborators and options.
type Config struct {
	Source    capture.Source
	Predictor Predictor
	// Clock paces iterations. Nil uses a RefreshClock at DefaultRefreshRate.
	Clock Clock
	// Threshold is the emission confidence threshold. Zero uses DefaultThreshold.
	Threshold float64
	// ResetOnStart forgets the last emitted class on every Start.
	ResetOnStart bool
	// OnEmit is called from the loop goroutine for every emission.
	OnEmit func(Emission)
	Logger *slog.Logger
}

// Controller owns the Idle/Predicting state machine. While Predicting, a
// single goroutine runs iterations strictly one after another: acquire a
// frame, classify it, apply the emission policy, release the frame, then
// wait for the clock.
//
// Stop is cooperative. An iteration blocked in Predict is not interrupted;
// it finishes its pass and the loop then exits instead of rescheduling.
type Controller struct {
	source       capture.Source
	predictor    Predictor
	clock        Clock
	onEmit       func(Emission)
	resetOnStart bool
	logger       *slog.Logger

	mu     sync.Mutex
	state  State
	policy *Policy
	stop   chan struct{}
	done   chan struct{}

	iterations atomic.Uint64
	failures   atomic.Uint64
	skipped    atomic.Uint64
}

// NewController creates an idle Controller.
func NewController(config Config) (*Controller, error) {
	if config.Source == nil {
		return nil, errors.New("frame source is required")
	}
	if config.Predictor == nil {
		return nil, errors.New("predictor is required")
	}

	threshold := config.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	clock := config.Clock
	if clock == nil {
		clock = NewRefreshClock(DefaultRefreshRate)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		source:       config.Source,
		predictor:    config.Predictor,
		clock:        clock,
		onEmit:       config.OnEmit,
		resetOnStart: config.ResetOnStart,
		logger:       logger,
		state:        Idle,
		policy:       NewPolicy(threshold),
	}, nil
}

// Start moves the controller from Idle to Predicting and runs the first
// iteration immediately. Predict calls use ctx; stopping does not cancel it.
// Start returns false if the controller was already predicting. If a
// previous session is still finishing its last iteration, Start waits for it.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.state == Predicting {
		c.mu.Unlock()
		return false
	}
	prev := c.done
	c.mu.Unlock()

	if prev != nil {
		<-prev
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another Start won while we were waiting.
	if c.state == Predicting {
		return false
	}

	if c.resetOnStart {
		c.policy.Reset()
	}

	c.state = Predicting
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(ctx, c.stop, c.done)

	c.logger.Info("classification started", "threshold", c.policy.Threshold())
	return true
}

// Stop moves the controller to Idle. It returns false if it was already
// idle, in which case nothing happens.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Idle {
		return false
	}

	c.state = Idle
	close(c.stop)

	c.logger.Info("classification stopped")
	return true
}

// Wait blocks until the most recent session's loop has exited.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Previous returns the last emitted class, or gesture.NoClass.
func (c *Controller) Previous() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Previous()
}

// Threshold returns the emission confidence threshold.
func (c *Controller) Threshold() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Threshold()
}

// Stats holds loop counters.
type Stats struct {
	Iterations uint64 `json:"iterations"`
	Failures   uint64 `json:"failures"`
	Skipped    uint64 `json:"skipped"`
}

// Stats returns the loop counters accumulated over all sessions.
func (c *Controller) Stats() Stats {
	return Stats{
		Iterations: c.iterations.Load(),
		Failures:   c.failures.Load(),
		Skipped:    c.skipped.Load(),
	}
}

// run is the loop goroutine of a single session.
func (c *Controller) run(ctx context.Context, stop chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer c.finish(stop)

	// waitCtx is only used for scheduling; Predict keeps ctx.
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	for {
		c.iterate(ctx)

		select {
		case <-stop:
			return
		default:
		}

		if err := c.clock.Next(waitCtx); err != nil {
			return
		}
	}
}

// finish returns the controller to Idle when the loop ended without Stop,
// which happens when the context passed to Start is done.
func (c *Controller) finish(stop chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != stop || c.state != Predicting {
		return
	}
	c.state = Idle
	close(stop)
	c.logger.Info("classification loop ended", "reason", "context done")
}

// iterate runs one pass of the loop.
func (c *Controller) iterate(ctx context.Context) {
	c.iterations.Add(1)

	frame, err := c.source.CurrentFrame()
	if err != nil {
		c.skipped.Add(1)
		c.logger.Debug("no frame, skipping pass", "error", err)
		return
	}
	defer frame.Release()

	pred, err := c.predictor.Predict(ctx, frame)
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("classification failed", "error", err)
		return
	}

	c.mu.Lock()
	emission, ok := c.policy.Observe(pred)
	c.mu.Unlock()

	if ok && c.onEmit != nil {
		c.onEmit(emission)
	}
}
