// Package classifier provides the image classifier the translator predicts with:
// a k-nearest-neighbor classifier over frame embeddings.
package classifier

import (
	"context"
	"errors"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

// Defaults taken from the browser classifier this service replaces.
const (
	DefaultTopK      = 10
	DefaultImageSize = 227
)

var (
	// ErrNotLoaded is returned by every operation attempted before Load succeeds.
	ErrNotLoaded = errors.New("classifier not loaded")
	// ErrEmptyFrame is returned when a frame carries no image data.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrDimensionMismatch is returned when an embedding does not match
	// the dimension of the stored examples.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Service is the classifier the translator trains and predicts with.
type Service interface {
	// Load initializes the classifier. No other call may succeed until it has.
	Load(ctx context.Context) error

	// AddExample accumulates frame as a training example for class.
	AddExample(frame *capture.Frame, class int) error

	// ExampleCount returns the number of examples stored for class.
	ExampleCount(class int) int

	// ClearClass drops every example stored for class.
	ClearClass(class int) error

	// Predict classifies frame. It may block and may fail.
	Predict(ctx context.Context, frame *capture.Frame) (Prediction, error)
}

// Prediction is the result of classifying a single frame.
type Prediction struct {
	Class       int       `json:"class"`
	Confidences []float64 `json:"confidences"`
}

// Confidence returns the confidence of the predicted class, or 0 when no
// class was predicted.
func (p Prediction) Confidence() float64 {
	if p.Class < 0 || p.Class >= len(p.Confidences) {
		return 0
	}
	return p.Confidences[p.Class]
}

// NoPrediction returns the result reported when there is nothing to compare against.
func NoPrediction(numClasses int) Prediction {
	return Prediction{
		Class:       gesture.NoClass,
		Confidences: make([]float64, numClasses),
	}
}
