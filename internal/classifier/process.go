package classifier

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
)

// DefaultIdleTimeout is how long an unused embedding process is kept alive.
const DefaultIdleTimeout = 30 * time.Second

// ProcessConfig configures a ProcessEmbedder.
type ProcessConfig struct {
	// Command and Args start the embedding service.
	Command string
	Args    []string
	// IdleTimeout shuts the process down after this long without a request.
	// It is restarted on the next Embed. Zero uses DefaultIdleTimeout.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// ProcessEmbedder delegates embedding to an external process. Each request
// is a JPEG frame written to stdin prefixed with its length (4 bytes,
// big-endian); each response is one JSON line {"embedding": [...]}.
type ProcessEmbedder struct {
	config ProcessConfig
	logger *slog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
}

// NewProcessEmbedder creates an embedder for the given command. The process
// is started by Load.
func NewProcessEmbedder(config ProcessConfig) (*ProcessEmbedder, error) {
	if config.Command == "" {
		return nil, errors.New("embedding command is required")
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ProcessEmbedder{
		config: config,
		logger: logger,
	}, nil
}

// Load starts the embedding process.
func (e *ProcessEmbedder) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureStarted(); err != nil {
		return err
	}
	e.resetIdleTimer()
	return nil
}

// Embed sends frame to the process and returns the embedding it replies with.
func (e *ProcessEmbedder) Embed(frame *capture.Frame) ([]float64, error) {
	if frame == nil || frame.Mat.Empty() {
		return nil, ErrEmptyFrame
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame.Mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	vec, err := e.roundTrip(buf.GetBytes())
	if err != nil {
		// The pipe is in an unknown state; start over on the next request.
		e.shutdown()
		return nil, err
	}

	e.resetIdleTimer()
	return vec, nil
}

func (e *ProcessEmbedder) roundTrip(data []byte) ([]float64, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := e.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := e.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := e.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return decodeEmbedding(line)
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func decodeEmbedding(line []byte) ([]float64, error) {
	var resp embeddingResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("embedding service: %s", resp.Error)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("embedding service returned an empty embedding")
	}
	return resp.Embedding, nil
}

// Close shuts down the process.
func (e *ProcessEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown()
}

func (e *ProcessEmbedder) ensureStarted() error {
	if e.started {
		return nil
	}

	e.cmd = exec.Command(e.config.Command, e.config.Args...)

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	e.cmd.Stderr = os.Stderr

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start embedding service: %w", err)
	}

	e.stdin = stdin
	e.stdout = bufio.NewReader(stdout)
	e.started = true
	e.logger.Info("embedding service started", "command", e.config.Command, "pid", e.cmd.Process.Pid)

	return nil
}

func (e *ProcessEmbedder) shutdown() error {
	if !e.started {
		return nil
	}

	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}

	if e.stdin != nil {
		e.stdin.Close()
	}

	err := e.cmd.Wait()
	e.started = false
	e.cmd = nil
	e.stdin = nil
	e.stdout = nil

	e.logger.Info("embedding service stopped")
	return err
}

func (e *ProcessEmbedder) resetIdleTimer() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(e.config.IdleTimeout, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.shutdown()
	})
}
