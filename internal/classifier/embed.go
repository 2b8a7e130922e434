package classifier

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/gift"
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/capture"
)

// DefaultFeatureSide is the side length of the downsampled image the pixel
// embedder turns into a feature vector.
const DefaultFeatureSide = 16

// minNorm is the smallest norm treated as a non-zero vector.
const minNorm = 1e-9

// Embedder turns a frame into a feature vector.
type Embedder interface {
	// Load prepares the embedder. It is called once before any Embed.
	Load(ctx context.Context) error

	// Embed returns the feature vector of frame.
	Embed(frame *capture.Frame) ([]float64, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// PixelEmbedder embeds a frame as its center crop, downsampled to a small
// RGB thumbnail and mean-centered.
type PixelEmbedder struct {
	filter *gift.GIFT
	side   int
}

// NewPixelEmbedder creates a PixelEmbedder that crops frames to
// imageSize x imageSize and downsamples them to side x side.
// Non-positive values use DefaultImageSize and DefaultFeatureSide.
func NewPixelEmbedder(imageSize, side int) *PixelEmbedder {
	if imageSize <= 0 {
		imageSize = DefaultImageSize
	}
	if side <= 0 {
		side = DefaultFeatureSide
	}

	return &PixelEmbedder{
		filter: gift.New(
			gift.ResizeToFill(imageSize, imageSize, gift.LinearResampling, gift.CenterAnchor),
			gift.Resize(side, side, gift.BoxResampling),
		),
		side: side,
	}
}

// Load is a no-op; the pixel embedder has no model to load.
func (e *PixelEmbedder) Load(ctx context.Context) error {
	return ctx.Err()
}

// Dim returns the length of the vectors Embed produces.
func (e *PixelEmbedder) Dim() int {
	return e.side * e.side * 3
}

// Embed returns the thumbnail's RGB values, centered on their mean and
// scaled to unit length.
func (e *PixelEmbedder) Embed(frame *capture.Frame) ([]float64, error) {
	if frame == nil || frame.Mat.Empty() {
		return nil, ErrEmptyFrame
	}

	img, err := frame.Mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}

	return e.EmbedImage(img), nil
}

// EmbedImage embeds an already decoded image.
func (e *PixelEmbedder) EmbedImage(img image.Image) []float64 {
	dst := image.NewNRGBA(e.filter.Bounds(img.Bounds()))
	e.filter.Draw(dst, img)

	vec := make([]float64, 0, e.Dim())
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := dst.NRGBAAt(x, y)
			vec = append(vec, float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		}
	}

	if len(vec) == 0 {
		return vec
	}

	floats.AddConst(-floats.Sum(vec)/float64(len(vec)), vec)
	if norm := floats.Norm(vec, 2); norm > minNorm {
		floats.Scale(1/norm, vec)
	}

	return vec
}

// Close is a no-op.
func (e *PixelEmbedder) Close() error {
	return nil
}
