package classifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

// Step is one scripted Predict outcome for the Mock.
type Step struct {
	Prediction Prediction
	Err        error
}

// Predicted returns a step predicting class with confidence conf. Every
// other class gets zero.
func Predicted(numClasses, class int, conf float64) Step {
	confidences := make([]float64, numClasses)
	confidences[class] = conf
	return Step{Prediction: Prediction{Class: class, Confidences: confidences}}
}

// Failed returns a step whose Predict call fails with err.
func Failed(err error) Step {
	return Step{Err: err}
}

// Mock is a test implementation of Service. Predict replays scripted steps
// in order and returns NoPrediction once they run out.
type Mock struct {
	numClasses int

	mu      sync.Mutex
	loaded  bool
	loadErr error
	counts  []int
	steps   []Step
	calls   int
}

// NewMock creates an unloaded mock for numClasses classes.
func NewMock(numClasses int) *Mock {
	return &Mock{
		numClasses: numClasses,
		counts:     make([]int, numClasses),
	}
}

// SetLoadError makes Load fail with err.
func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// Script appends steps to the Predict script.
func (m *Mock) Script(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

// Calls returns the number of Predict calls made.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = true
	return nil
}

func (m *Mock) AddExample(frame *capture.Frame, class int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	if class < 0 || class >= m.numClasses {
		return fmt.Errorf("%w: %d", gesture.ErrUnknownClass, class)
	}
	m.counts[class]++
	return nil
}

func (m *Mock) ExampleCount(class int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if class < 0 || class >= m.numClasses {
		return 0
	}
	return m.counts[class]
}

func (m *Mock) ClearClass(class int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return ErrNotLoaded
	}
	if class < 0 || class >= m.numClasses {
		return fmt.Errorf("%w: %d", gesture.ErrUnknownClass, class)
	}
	m.counts[class] = 0
	return nil
}

func (m *Mock) Predict(ctx context.Context, frame *capture.Frame) (Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if !m.loaded {
		return Prediction{}, ErrNotLoaded
	}
	if len(m.steps) == 0 {
		return NoPrediction(m.numClasses), nil
	}

	step := m.steps[0]
	m.steps = m.steps[1:]
	return step.Prediction, step.Err
}
