package app

import (
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/translate"
)

// ClassStatus is a gesture class with its current example count.
type ClassStatus struct {
	gesture.Class
	Examples int `json:"examples"`
}

// Status is a snapshot of the translator.
type Status struct {
	State     string               `json:"state"`
	Ready     bool                 `json:"ready"`
	Attached  bool                 `json:"attached"`
	Errors    []string             `json:"errors,omitempty"`
	SessionID string               `json:"session_id,omitempty"`
	Threshold float64              `json:"threshold"`
	Last      *gesture.Translation `json:"last,omitempty"`
	Classes   []ClassStatus        `json:"classes"`
	Stats     translate.Stats      `json:"stats"`
}

// State returns the state of the classification loop.
func (a *App) State() translate.State {
	return a.controller.State()
}

// LastTranslation returns the most recently emitted word.
func (a *App) LastTranslation() (gesture.Translation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return gesture.Translation{}, false
	}
	return *a.last, true
}

// Classes returns every class with its example count.
func (a *App) Classes() []ClassStatus {
	classes := a.vocab.Classes()
	out := make([]ClassStatus, len(classes))
	for i, c := range classes {
		out[i] = ClassStatus{Class: c, Examples: a.classifier.ExampleCount(c.Index)}
	}
	return out
}

// Status returns a snapshot of the translator.
func (a *App) Status() Status {
	st := Status{
		State:     a.controller.State().String(),
		Threshold: a.controller.Threshold(),
		Classes:   a.Classes(),
		Stats:     a.controller.Stats(),
		Attached:  true,
	}

	if dev, ok := a.source.(capture.Device); ok {
		st.Attached = dev.IsAttached()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	st.Ready = a.ready
	for _, err := range []error{a.loadErr, a.sourceErr} {
		if err != nil {
			st.Errors = append(st.Errors, err.Error())
		}
	}
	if st.State == translate.Predicting.String() {
		st.SessionID = a.session
	}
	if a.last != nil {
		last := *a.last
		st.Last = &last
	}
	return st
}
