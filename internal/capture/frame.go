package capture

import (
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrFrameUnavailable is returned when the source is not producing frames.
var ErrFrameUnavailable = errors.New("frame unavailable")

// Source produces one frame per request.
type Source interface {
	// CurrentFrame returns the frame at this instant. The caller owns the
	// frame and must Release it. Returns ErrFrameUnavailable when no
	// stream is attached.
	CurrentFrame() (*Frame, error)
}

// Device is a Source backed by a stream that must be attached before it
// produces frames.
type Device interface {
	Source
	Attach() error
	Detach() error
	IsAttached() bool
}

// Frame is a single captured image. It is owned by whoever acquired it and
// must be released once used.
type Frame struct {
	Mat       gocv.Mat
	Timestamp time.Time

	once    sync.Once
	onClose func()
}

// NewFrame wraps mat in a Frame. onRelease, if non-nil, runs after the Mat
// has been closed.
func NewFrame(mat gocv.Mat, onRelease func()) *Frame {
	return &Frame{
		Mat:       mat,
		Timestamp: time.Now(),
		onClose:   onRelease,
	}
}

// Release closes the underlying Mat. Only the first call has any effect.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		f.Mat.Close()
		if f.onClose != nil {
			f.onClose()
		}
	})
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Mat.Cols()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Mat.Rows()
}
