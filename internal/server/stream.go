package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
)

// Stream pacing
const (
	streamInterval = 66 * time.Millisecond // ~15 FPS
	retryInterval  = 100 * time.Millisecond
)

// StreamHandler serves MJPEG frames from the frame source as a live preview.
type StreamHandler struct {
	source capture.Source
	logger *slog.Logger
}

// NewStreamHandler creates a new StreamHandler with the given source.
func NewStreamHandler(source capture.Source, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{source: source, logger: logger}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		wait := streamInterval
		if err := h.writeFrame(w); err != nil {
			wait = retryInterval
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(wait):
		}
	}
}

// writeFrame writes one JPEG part. The frame is released before it returns.
func (h *StreamHandler) writeFrame(w http.ResponseWriter) error {
	frame, err := h.source.CurrentFrame()
	if err != nil {
		return err
	}
	defer frame.Release()

	if frame.Mat.Empty() {
		return capture.ErrFrameUnavailable
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame.Mat)
	if err != nil {
		h.logger.Debug("jpeg encode failed", "error", err)
		return err
	}
	defer buf.Close()

	fmt.Fprintf(w, "--frame\r\n")
	fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
	w.Write(buf.GetBytes())
	fmt.Fprintf(w, "\r\n")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
