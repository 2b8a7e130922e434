package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing and counts how many
// frames were handed out and released.
type MockCamera struct {
	frames   []*gocv.Mat
	index    int
	loop     bool
	mu       sync.Mutex
	attached bool
	denyErr  error
	acquired int
	released int
}

// NewMockCamera creates a mock source over frames. With no frames it hands
// out empty Mats. The mock starts attached.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames:   frames,
		loop:     loop,
		attached: true,
	}
}

// Attach marks the source as producing frames, or fails if Deny was called.
func (c *MockCamera) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denyErr != nil {
		return c.denyErr
	}
	c.attached = true
	c.index = 0
	return nil
}

// Detach stops the source from producing frames.
func (c *MockCamera) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = false
	return nil
}

// IsAttached reports whether the source is producing frames.
func (c *MockCamera) IsAttached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Deny makes the source permanently unavailable, as a refused permission would.
func (c *MockCamera) Deny() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.denyErr = fmt.Errorf("%w: mock", ErrPermissionDenied)
	c.attached = false
}

func (c *MockCamera) CurrentFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached {
		return nil, ErrFrameUnavailable
	}

	var mat gocv.Mat
	if len(c.frames) == 0 {
		mat = gocv.NewMat()
	} else {
		if c.index >= len(c.frames) {
			if !c.loop {
				return nil, fmt.Errorf("%w: no more frames", ErrFrameUnavailable)
			}
			c.index = 0
		}
		// Clone the frame so the original isn't modified
		mat = c.frames[c.index].Clone()
		c.index++
	}

	c.acquired++
	return NewFrame(mat, c.onRelease), nil
}

func (c *MockCamera) onRelease() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released++
}

// Acquired returns the number of frames handed out.
func (c *MockCamera) Acquired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquired
}

// Released returns the number of frames released by their owners.
func (c *MockCamera) Released() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}
