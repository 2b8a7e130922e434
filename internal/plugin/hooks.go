package plugin

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/ayusman/mudra/internal/gesture"
)

// MaxConcurrentHooks bounds the number of plugin processes running at once.
const MaxConcurrentHooks = 4

// Hooks is a display that runs the plugin actions bound to every emitted
// word. Actions run in the background; when MaxConcurrentHooks are already
// running the action is skipped.
type Hooks struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

// NewHooks creates Hooks over the plugins known to manager.
func NewHooks(manager *Manager, executor *Executor, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hooks{
		manager:  manager,
		executor: executor,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sem:      semaphore.NewWeighted(MaxConcurrentHooks),
	}
}

func (h *Hooks) ShowWord(t gesture.Translation) {
	for _, b := range h.manager.Bound(t.Word()) {
		if !h.sem.TryAcquire(1) {
			h.logger.Warn("plugin hook skipped, too many running",
				"plugin", b.Plugin.Manifest.Name, "word", t.Word())
			continue
		}

		req := &Request{
			Action:     b.Action,
			Word:       t.Word(),
			ClassIndex: t.Class.Index,
			Confidence: t.Confidence,
			SessionID:  t.SessionID,
			Config:     b.Plugin.Manifest.Config,
		}

		h.wg.Add(1)
		go h.run(b.Plugin, req)
	}
}

// ShowExampleCount does nothing; plugins react to words only.
func (h *Hooks) ShowExampleCount(gesture.Class, int) {}

func (h *Hooks) run(p *Plugin, req *Request) {
	defer h.wg.Done()
	defer h.sem.Release(1)

	resp, err := h.executor.Execute(h.ctx, p, req)
	if err != nil {
		h.logger.Warn("plugin hook failed", "plugin", p.Manifest.Name, "action", req.Action, "error", err)
		return
	}
	if !resp.Success {
		h.logger.Warn("plugin hook reported failure", "plugin", p.Manifest.Name, "action", req.Action, "error", resp.Error)
		return
	}
	h.logger.Debug("plugin hook ran", "plugin", p.Manifest.Name, "action", req.Action, "word", req.Word)
}

// Wait blocks until every running action has finished.
func (h *Hooks) Wait() {
	h.wg.Wait()
}

// Close cancels running actions and waits for them to exit.
func (h *Hooks) Close() error {
	h.cancel()
	h.wg.Wait()
	return nil
}
