// Package gesture defines the closed set of gesture classes the translator
// recognizes and the translations it emits.
package gesture

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NoClass is the sentinel class index meaning "no prediction".
const NoClass = -1

// DefaultLabels are the words recognized when no labels are configured.
var DefaultLabels = []string{"start", "stop"}

// ErrUnknownClass is returned when a class index is outside the vocabulary.
var ErrUnknownClass = errors.New("unknown gesture class")

// Class is a gesture class: an index with its display label.
type Class struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Vocabulary is an immutable, ordered set of gesture classes.
type Vocabulary struct {
	classes []Class
}

// NewVocabulary builds a vocabulary from labels. Labels must be non-empty
// and unique, and at least two are required.
func NewVocabulary(labels ...string) (*Vocabulary, error) {
	if len(labels) < 2 {
		return nil, fmt.Errorf("at least two labels are required, got %d", len(labels))
	}

	seen := make(map[string]bool, len(labels))
	classes := make([]Class, len(labels))
	for i, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("label %d is empty", i)
		}
		if seen[label] {
			return nil, fmt.Errorf("duplicate label %q", label)
		}
		seen[label] = true
		classes[i] = Class{Index: i, Label: label}
	}

	return &Vocabulary{classes: classes}, nil
}

// Len returns the number of classes.
func (v *Vocabulary) Len() int {
	return len(v.classes)
}

// Class returns the class with the given index.
func (v *Vocabulary) Class(index int) (Class, error) {
	if index < 0 || index >= len(v.classes) {
		return Class{}, fmt.Errorf("%w: %d", ErrUnknownClass, index)
	}
	return v.classes[index], nil
}

// Classes returns a copy of all classes in index order.
func (v *Vocabulary) Classes() []Class {
	out := make([]Class, len(v.classes))
	copy(out, v.classes)
	return out
}

// Labels returns the labels in index order.
func (v *Vocabulary) Labels() []string {
	out := make([]string, len(v.classes))
	for i, c := range v.classes {
		out[i] = c.Label
	}
	return out
}

// Translation is a single emitted word.
type Translation struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Class      Class     `json:"class"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Word returns the translated word.
func (t Translation) Word() string {
	return t.Class.Label
}
