package classifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

// KNN classifies frames by majority vote among the topK stored examples
// whose embeddings are most similar (cosine) to the frame's embedding.
type KNN struct {
	numClasses int
	topK       int
	embedder   Embedder

	mu       sync.RWMutex
	loaded   bool
	dim      int
	examples [][][]float64 // class -> example -> unit vector
}

// NewKNN creates an unloaded classifier for numClasses classes.
// Values of topK less than or equal to 0 fall back to DefaultTopK.
func NewKNN(numClasses, topK int, embedder Embedder) *KNN {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &KNN{
		numClasses: numClasses,
		topK:       topK,
		embedder:   embedder,
		examples:   make([][][]float64, numClasses),
	}
}

// Load initializes the embedder.
func (k *KNN) Load(ctx context.Context) error {
	if err := k.embedder.Load(ctx); err != nil {
		return fmt.Errorf("load embedder: %w", err)
	}

	k.mu.Lock()
	k.loaded = true
	k.mu.Unlock()

	return nil
}

// Close releases the embedder.
func (k *KNN) Close() error {
	k.mu.Lock()
	k.loaded = false
	k.mu.Unlock()

	return k.embedder.Close()
}

func (k *KNN) checkClass(class int) error {
	if class < 0 || class >= k.numClasses {
		return fmt.Errorf("%w: %d", gesture.ErrUnknownClass, class)
	}
	return nil
}

func (k *KNN) isLoaded() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.loaded
}

// embed runs the embedder and normalizes the result to unit length.
func (k *KNN) embed(frame *capture.Frame) ([]float64, error) {
	if frame == nil || frame.Mat.Empty() {
		return nil, ErrEmptyFrame
	}

	vec, err := k.embedder.Embed(frame)
	if err != nil {
		return nil, fmt.Errorf("embed frame: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed frame: %w", ErrEmptyFrame)
	}

	unit := make([]float64, len(vec))
	copy(unit, vec)
	if norm := floats.Norm(unit, 2); norm > minNorm {
		floats.Scale(1/norm, unit)
	}
	return unit, nil
}

// AddExample stores frame's embedding as an example of class.
func (k *KNN) AddExample(frame *capture.Frame, class int) error {
	if !k.isLoaded() {
		return ErrNotLoaded
	}
	if err := k.checkClass(class); err != nil {
		return err
	}

	vec, err := k.embed(frame)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.dim == 0 {
		k.dim = len(vec)
	} else if len(vec) != k.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), k.dim)
	}

	k.examples[class] = append(k.examples[class], vec)
	return nil
}

// ExampleCount returns the number of examples stored for class.
func (k *KNN) ExampleCount(class int) int {
	if k.checkClass(class) != nil {
		return 0
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.examples[class])
}

// ClearClass drops all examples of class.
func (k *KNN) ClearClass(class int) error {
	if !k.isLoaded() {
		return ErrNotLoaded
	}
	if err := k.checkClass(class); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.examples[class] = nil
	if k.total() == 0 {
		k.dim = 0
	}
	return nil
}

// total must be called with mu held.
func (k *KNN) total() int {
	n := 0
	for _, ex := range k.examples {
		n += len(ex)
	}
	return n
}

type neighbor struct {
	class      int
	similarity float64
}

// Predict classifies frame. With no stored examples the result carries no
// class and zero confidences.
func (k *KNN) Predict(ctx context.Context, frame *capture.Frame) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if !k.isLoaded() {
		return Prediction{}, ErrNotLoaded
	}

	vec, err := k.embed(frame)
	if err != nil {
		return Prediction{}, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	total := k.total()
	if total == 0 {
		return NoPrediction(k.numClasses), nil
	}
	if len(vec) != k.dim {
		return Prediction{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), k.dim)
	}

	neighbors := make([]neighbor, 0, total)
	for class, examples := range k.examples {
		for _, ex := range examples {
			neighbors = append(neighbors, neighbor{
				class:      class,
				similarity: floats.Dot(vec, ex),
			})
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].similarity > neighbors[j].similarity
	})

	kk := k.topK
	if kk > len(neighbors) {
		kk = len(neighbors)
	}

	votes := make([]float64, k.numClasses)
	for _, n := range neighbors[:kk] {
		votes[n.class]++
	}

	best := 0
	for class := range votes {
		if votes[class] > votes[best] {
			best = class
		}
	}

	floats.Scale(1/float64(kk), votes)

	return Prediction{Class: best, Confidences: votes}, nil
}
