package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	// Create test frames
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	f1, err := cam.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame() error = %v", err)
	}
	if f1.Width() != 640 || f1.Height() != 480 {
		t.Errorf("frame size = %dx%d, want 640x480", f1.Width(), f1.Height())
	}
	f1.Release()

	f2, err := cam.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame() error = %v", err)
	}
	f2.Release()

	// Third read should fail (no loop)
	if _, err := cam.CurrentFrame(); !errors.Is(err, ErrFrameUnavailable) {
		t.Errorf("expected ErrFrameUnavailable after all frames consumed, got %v", err)
	}

	if cam.Acquired() != 2 || cam.Released() != 2 {
		t.Errorf("acquired/released = %d/%d, want 2/2", cam.Acquired(), cam.Released())
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)

	// Should loop indefinitely
	for i := 0; i < 5; i++ {
		f, err := cam.CurrentFrame()
		if err != nil {
			t.Fatalf("CurrentFrame() iteration %d error = %v", i, err)
		}
		f.Release()
	}
}

func TestMockCamera_DetachAndDeny(t *testing.T) {
	cam := NewMockCamera(nil, false)

	f, err := cam.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame() error = %v", err)
	}
	f.Release()

	cam.Detach()
	if _, err := cam.CurrentFrame(); !errors.Is(err, ErrFrameUnavailable) {
		t.Errorf("detached: expected ErrFrameUnavailable, got %v", err)
	}

	if err := cam.Attach(); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	cam.Deny()
	if err := cam.Attach(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Attach() after Deny error = %v, want ErrPermissionDenied", err)
	}
	if _, err := cam.CurrentFrame(); !errors.Is(err, ErrFrameUnavailable) {
		t.Errorf("denied: expected ErrFrameUnavailable, got %v", err)
	}
}

func TestFrame_ReleaseOnce(t *testing.T) {
	calls := 0
	f := NewFrame(gocv.NewMat(), func() { calls++ })

	f.Release()
	f.Release()

	if calls != 1 {
		t.Errorf("release hook called %d times, want 1", calls)
	}

	var nilFrame *Frame
	nilFrame.Release() // must not panic
}
