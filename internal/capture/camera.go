// Package capture provides frame sources for the translator, backed by GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrPermissionDenied is reported when the camera device cannot be opened.
var ErrPermissionDenied = errors.New("camera access denied")

// Camera is a live video source that must be attached before it yields frames.
type Camera struct {
	deviceID int
	logger   *slog.Logger

	mu       sync.Mutex
	capture  *gocv.VideoCapture
	attached bool
	denied   error
	errs     chan error
}

// NewCamera creates a detached Camera for the given device ID.
func NewCamera(deviceID int, logger *slog.Logger) *Camera {
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{
		deviceID: deviceID,
		logger:   logger,
		errs:     make(chan error, 1),
	}
}

// Attach opens the camera device. A failure is sent on Errors and leaves
// the camera unavailable for the rest of its life; later calls return the
// same error.
func (c *Camera) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.denied != nil {
		return c.denied
	}
	if c.attached {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err == nil && !capture.IsOpened() {
		capture.Close()
		err = errors.New("device did not open")
	}
	if err != nil {
		c.denied = fmt.Errorf("%w: device %d: %v", ErrPermissionDenied, c.deviceID, err)
		c.report(c.denied)
		return c.denied
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, DefaultFPS)

	c.capture = capture
	c.attached = true
	c.logger.Info("camera attached", "device", c.deviceID)

	return nil
}

// report delivers err on the error channel without blocking.
func (c *Camera) report(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Errors delivers attach failures.
func (c *Camera) Errors() <-chan error {
	return c.errs
}

// Detach closes the device. The camera can be attached again afterwards
// unless a previous attach was denied.
func (c *Camera) Detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached || c.capture == nil {
		c.attached = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.attached = false
	c.logger.Info("camera detached", "device", c.deviceID)

	return err
}

// IsAttached reports whether the camera is currently producing frames.
func (c *Camera) IsAttached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.attached
}

// CurrentFrame reads a single frame from the device.
func (c *Camera) CurrentFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.attached || c.capture == nil {
		return nil, ErrFrameUnavailable
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("%w: read failed", ErrFrameUnavailable)
	}

	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: captured frame is empty", ErrFrameUnavailable)
	}

	return NewFrame(mat, nil), nil
}
