package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/translate"
)

// Translator starts and stops classification.
type Translator interface {
	Status() app.Status
	ToggleClassification() (translate.State, error)
	StopClassification() bool
}

// TranslationHandler handles the classification commands.
type TranslationHandler struct {
	translator Translator
}

// NewTranslationHandler creates a new TranslationHandler.
func NewTranslationHandler(t Translator) *TranslationHandler {
	return &TranslationHandler{translator: t}
}

type stateResponse struct {
	State   string `json:"state"`
	Changed bool   `json:"changed"`
}

// ServeHTTP routes /api/translation, /api/translation/toggle and /api/translation/stop.
func (h *TranslationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/translation")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.translator.Status())

	case "toggle":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		state, err := h.translator.ToggleClassification()
		if err != nil {
			writeCommandError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stateResponse{State: state.String(), Changed: true})

	case "stop":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		changed := h.translator.StopClassification()
		writeJSON(w, http.StatusOK, stateResponse{State: translate.Idle.String(), Changed: changed})

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// History lists recorded translations.
type History interface {
	Recent(limit int) ([]*store.Translation, error)
	Session(id string) ([]*store.Translation, error)
}

// HistoryHandler handles GET /api/translations.
type HistoryHandler struct {
	history History
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(h History) *HistoryHandler {
	return &HistoryHandler{history: h}
}

type historyResponse struct {
	Translations []*store.Translation `json:"translations"`
}

// ServeHTTP returns recent translations, or those of ?session=ID.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	var (
		translations []*store.Translation
		err          error
	)
	if session := query.Get("session"); session != "" {
		translations, err = h.history.Session(session)
	} else {
		limit := 0
		if v := query.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
		}
		translations, err = h.history.Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list translations")
		return
	}

	if translations == nil {
		translations = []*store.Translation{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Translations: translations})
}
