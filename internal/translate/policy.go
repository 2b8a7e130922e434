// Package translate runs the continuous classification loop that turns the
// live frame stream into emitted words.
package translate

import (
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/gesture"
)

// DefaultThreshold is the confidence a prediction must exceed to emit.
const DefaultThreshold = 0.98

// Emission is a prediction that passed the emission policy.
type Emission struct {
	Class      int
	Confidence float64
}

// Policy decides which predictions are emitted: a prediction emits only when
// its confidence is strictly above Threshold and its class differs from the
// last emitted class. There is no smoothing window, so a single frame below
// threshold does not reset the last emitted class.
type Policy struct {
	threshold float64
	previous  int
}

// NewPolicy creates a policy with no previous emission. A threshold outside
// [0, 1) falls back to DefaultThreshold.
func NewPolicy(threshold float64) *Policy {
	if threshold < 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Policy{
		threshold: threshold,
		previous:  gesture.NoClass,
	}
}

// Threshold returns the confidence threshold.
func (p *Policy) Threshold() float64 {
	return p.threshold
}

// Previous returns the last emitted class, or gesture.NoClass.
func (p *Policy) Previous() int {
	return p.previous
}

// Reset forgets the last emitted class.
func (p *Policy) Reset() {
	p.previous = gesture.NoClass
}

// Observe applies the policy to a prediction. When it emits, the emitted
// class becomes the previous one.
func (p *Policy) Observe(pred classifier.Prediction) (Emission, bool) {
	if pred.Class < 0 || pred.Class >= len(pred.Confidences) {
		return Emission{}, false
	}

	conf := pred.Confidences[pred.Class]
	if conf <= p.threshold || pred.Class == p.previous {
		return Emission{}, false
	}

	p.previous = pred.Class
	return Emission{Class: pred.Class, Confidence: conf}, true
}
