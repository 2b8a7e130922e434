package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/app"
)

// Trainer records and clears training examples.
type Trainer interface {
	Classes() []app.ClassStatus
	StartRecording(index int) (int, error)
	ClearExamples(index int) error
}

// ClassesHandler handles HTTP requests for gesture classes and their examples.
type ClassesHandler struct {
	trainer Trainer
}

// NewClassesHandler creates a new ClassesHandler.
func NewClassesHandler(t Trainer) *ClassesHandler {
	return &ClassesHandler{trainer: t}
}

type classesResponse struct {
	Classes []app.ClassStatus `json:"classes"`
}

type examplesResponse struct {
	Index    int `json:"index"`
	Examples int `json:"examples"`
}

// ServeHTTP routes /api/classes and /api/classes/{index}/examples.
func (h *ClassesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/classes")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, classesResponse{Classes: h.trainer.Classes()})
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "examples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	index, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Class index must be an integer")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.record(w, index)
	case http.MethodDelete:
		h.clear(w, index)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// record handles POST /api/classes/{index}/examples.
func (h *ClassesHandler) record(w http.ResponseWriter, index int) {
	count, err := h.trainer.StartRecording(index)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, examplesResponse{Index: index, Examples: count})
}

// clear handles DELETE /api/classes/{index}/examples.
func (h *ClassesHandler) clear(w http.ResponseWriter, index int) {
	if err := h.trainer.ClearExamples(index); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
