package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/translate"
)

// StartRecording captures one frame and adds it as a training example for
// the class at index. It returns the class's new example count.
func (a *App) StartRecording(index int) (int, error) {
	class, err := a.vocab.Class(index)
	if err != nil {
		return 0, err
	}
	if err := a.checkReady(); err != nil {
		return 0, err
	}
	if err := a.checkSource(); err != nil {
		return 0, err
	}

	frame, err := a.source.CurrentFrame()
	if err != nil {
		return 0, err
	}
	defer frame.Release()

	if err := a.classifier.AddExample(frame, index); err != nil {
		return 0, err
	}

	count := a.classifier.ExampleCount(index)
	a.logger.Debug("example recorded", "class", class.Label, "examples", count)

	for _, d := range a.snapshotDisplays() {
		d.ShowExampleCount(class, count)
	}
	return count, nil
}

// ClearExamples drops every training example of the class at index.
func (a *App) ClearExamples(index int) error {
	class, err := a.vocab.Class(index)
	if err != nil {
		return err
	}
	if err := a.checkReady(); err != nil {
		return err
	}

	if err := a.classifier.ClearClass(index); err != nil {
		return err
	}

	a.logger.Info("examples cleared", "class", class.Label)
	for _, d := range a.snapshotDisplays() {
		d.ShowExampleCount(class, 0)
	}
	return nil
}

// ToggleClassification starts classification when idle and stops it when
// predicting. It returns the new state.
func (a *App) ToggleClassification() (translate.State, error) {
	a.cmdMu.Lock()
	defer a.cmdMu.Unlock()

	if a.controller.State() == translate.Predicting {
		a.stopLocked()
		return translate.Idle, nil
	}

	if err := a.checkReady(); err != nil {
		return translate.Idle, err
	}
	if err := a.checkSource(); err != nil {
		return translate.Idle, err
	}

	// The last pass of the previous session must not be attributed to the
	// new one.
	a.controller.Wait()

	id := uuid.NewString()
	now := time.Now()

	a.mu.Lock()
	a.session = id
	a.mu.Unlock()

	if a.history != nil {
		a.history.StartSession(id, now)
	}

	if !a.controller.Start(a.ctx) {
		return a.controller.State(), nil
	}
	a.logger.Info("session started", "session", id)
	return translate.Predicting, nil
}

// StopClassification stops classification. It reports whether the loop was running.
func (a *App) StopClassification() bool {
	a.cmdMu.Lock()
	defer a.cmdMu.Unlock()
	return a.stopLocked()
}

func (a *App) stopLocked() bool {
	if !a.controller.Stop() {
		return false
	}

	a.mu.RLock()
	id := a.session
	a.mu.RUnlock()

	if a.history != nil {
		a.history.EndSession(id, time.Now())
	}
	a.logger.Info("session stopped", "session", id)
	return true
}

// emit turns an emission into a Translation and shows it on every display.
// It runs on the loop goroutine.
func (a *App) emit(e translate.Emission) {
	class, err := a.vocab.Class(e.Class)
	if err != nil {
		a.logger.Warn("emission outside the vocabulary", "class", e.Class)
		return
	}

	a.mu.Lock()
	t := gesture.Translation{
		ID:         uuid.NewString(),
		SessionID:  a.session,
		Class:      class,
		Confidence: e.Confidence,
		At:         time.Now(),
	}
	a.last = &t
	a.mu.Unlock()

	a.logger.Info("word translated", "word", t.Word(), "confidence", t.Confidence, "session", t.SessionID)

	for _, d := range a.snapshotDisplays() {
		d.ShowWord(t)
	}
}
