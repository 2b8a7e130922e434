package app

import (
	"log/slog"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// History is a Display that records sessions and emitted words in the store.
// Store failures are logged and never reach the loop.
type History struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHistory creates a History backed by s.
func NewHistory(s *store.Store, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{store: s, logger: logger}
}

// StartSession records the start of a classification session.
func (h *History) StartSession(id string, at time.Time) {
	if err := h.store.Sessions().Start(id, at); err != nil {
		h.logger.Error("failed to record session start", "session", id, "error", err)
	}
}

// EndSession records the end of a classification session.
func (h *History) EndSession(id string, at time.Time) {
	if err := h.store.Sessions().End(id, at); err != nil {
		h.logger.Error("failed to record session end", "session", id, "error", err)
	}
}

func (h *History) ShowWord(t gesture.Translation) {
	err := h.store.Translations().Create(&store.Translation{
		ID:         t.ID,
		SessionID:  t.SessionID,
		ClassIndex: t.Class.Index,
		Word:       t.Word(),
		Confidence: t.Confidence,
		CreatedAt:  t.At,
	})
	if err != nil {
		h.logger.Error("failed to record translation", "word", t.Word(), "error", err)
	}
}

// ShowExampleCount does nothing; examples are never persisted.
func (h *History) ShowExampleCount(gesture.Class, int) {}

// Recent returns the most recent translations, newest first.
func (h *History) Recent(limit int) ([]*store.Translation, error) {
	return h.store.Translations().List(limit)
}

// Session returns the translations of a session in emission order.
func (h *History) Session(id string) ([]*store.Translation, error) {
	return h.store.Translations().GetBySessionID(id)
}
