// Package app provides the command surface of the translator: it trains the
// classifier from captured frames, starts and stops the classification loop,
// and fans every emitted word out to the registered displays.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/translate"
)

var (
	// ErrNotReady is returned by commands issued before Init has loaded the classifier.
	ErrNotReady = errors.New("translator is not initialized")
	// ErrUnavailable is returned by commands whose feature failed to initialize.
	// It is permanent for the life of the App.
	ErrUnavailable = errors.New("feature unavailable")
)

// Display receives what the translator shows to the user.
type Display interface {
	// ShowWord is called for every emitted word.
	ShowWord(t gesture.Translation)
	// ShowExampleCount is called when the number of examples of a class changes.
	ShowExampleCount(class gesture.Class, count int)
}

// Config holds configuration options for the application.
type Config struct {
	Vocabulary *gesture.Vocabulary
	// Source provides frames. If it also implements capture.Device, Init
	// attaches it and Close detaches it.
	Source     capture.Source
	Classifier classifier.Service
	// Store records sessions and emitted words. Optional.
	Store        *store.Store
	Clock        translate.Clock
	Threshold    float64
	ResetOnStart bool
	Logger       *slog.Logger
}

// App is the main application that orchestrates training and translation.
type App struct {
	vocab      *gesture.Vocabulary
	source     capture.Source
	classifier classifier.Service
	controller *translate.Controller
	history    *History
	logger     *slog.Logger

	// ctx outlives the requests that start classification.
	ctx    context.Context
	cancel context.CancelFunc

	// cmdMu serializes commands that change the loop state.
	cmdMu sync.Mutex
	// initMu serializes Init without blocking readiness checks.
	initMu sync.Mutex

	mu        sync.RWMutex
	ready     bool
	loadErr   error
	sourceErr error
	displays  []Display
	session   string
	last      *gesture.Translation
}

// New creates a new App. Call Init before issuing commands.
func New(config Config) (*App, error) {
	if config.Vocabulary == nil {
		return nil, errors.New("vocabulary is required")
	}
	if config.Source == nil {
		return nil, errors.New("frame source is required")
	}
	if config.Classifier == nil {
		return nil, errors.New("classifier is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		vocab:      config.Vocabulary,
		source:     config.Source,
		classifier: config.Classifier,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	if config.Store != nil {
		a.history = NewHistory(config.Store, logger)
		a.displays = append(a.displays, a.history)
	}

	controller, err := translate.NewController(translate.Config{
		Source:       config.Source,
		Predictor:    config.Classifier,
		Clock:        config.Clock,
		Threshold:    config.Threshold,
		ResetOnStart: config.ResetOnStart,
		OnEmit:       a.emit,
		Logger:       logger,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	a.controller = controller

	return a, nil
}

// Init attaches the frame source and loads the classifier. Each failure is
// logged once and makes the affected feature unavailable; there is no retry.
// The returned error joins all failures.
func (a *App) Init(ctx context.Context) error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	a.mu.RLock()
	ready, loadErr := a.ready, a.loadErr
	a.mu.RUnlock()

	if ready {
		return nil
	}
	if loadErr != nil {
		return loadErr
	}

	var errs []error

	if dev, ok := a.source.(capture.Device); ok && !dev.IsAttached() {
		if err := dev.Attach(); err != nil {
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
			a.logger.Error("frame source unavailable", "error", err)
			a.mu.Lock()
			a.sourceErr = err
			a.mu.Unlock()
			errs = append(errs, err)
		}
	}

	err := a.classifier.Load(ctx)

	a.mu.Lock()
	if err != nil {
		a.loadErr = fmt.Errorf("%w: classifier failed to load: %w", ErrUnavailable, err)
		errs = append(errs, a.loadErr)
	} else {
		a.ready = true
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.Error("classifier failed to load", "error", err)
	} else {
		a.logger.Info("classifier loaded", "classes", a.vocab.Len())
	}

	return errors.Join(errs...)
}

// checkReady reports why the classifier cannot be used yet, if it cannot.
func (a *App) checkReady() error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.loadErr != nil {
		return a.loadErr
	}
	if !a.ready {
		return ErrNotReady
	}
	return nil
}

// checkSource reports a permanent frame source failure.
func (a *App) checkSource() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sourceErr
}

// AddDisplay registers a display for emitted words and example counts.
func (a *App) AddDisplay(d Display) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.displays = append(a.displays, d)
}

func (a *App) snapshotDisplays() []Display {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Display, len(a.displays))
	copy(out, a.displays)
	return out
}

// Vocabulary returns the gesture classes the translator knows.
func (a *App) Vocabulary() *gesture.Vocabulary {
	return a.vocab
}

// Source returns the frame source.
func (a *App) Source() capture.Source {
	return a.source
}

// History returns the translation history, or nil without a store.
func (a *App) History() *History {
	return a.history
}

// Close stops classification, waits for the loop to exit and releases the
// frame source and classifier.
func (a *App) Close() error {
	a.StopClassification()
	a.cancel()
	a.controller.Wait()

	var errs []error
	if dev, ok := a.source.(capture.Device); ok {
		if err := dev.Detach(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := a.classifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	a.logger.Info("translator closed")
	return errors.Join(errs...)
}
