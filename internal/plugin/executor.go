package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeoutMs is the execution timeout used when none is configured.
const DefaultTimeoutMs = 5000

// killGrace bounds how long Execute waits for output after the plugin is
// killed; children of a killed plugin may still hold stdout open.
const killGrace = time.Second

var (
	// ErrTimeout is returned when a plugin outlives the executor's timeout.
	ErrTimeout = errors.New("plugin execution timeout")
	// ErrBadResponse is returned when a plugin's stdout is not a Response.
	ErrBadResponse = errors.New("invalid plugin response")
)

// Executor runs one plugin action per call, bounded by a timeout.
type Executor struct {
	timeoutMs int
}

// NewExecutor creates a new Executor with the specified timeout in milliseconds.
// Values less than or equal to 0 use DefaultTimeoutMs.
func NewExecutor(timeoutMs int) *Executor {
	if timeoutMs <= 0 {
		timeoutMs = DefaultTimeoutMs
	}
	return &Executor{timeoutMs: timeoutMs}
}

// Timeout returns the execution timeout.
func (e *Executor) Timeout() time.Duration {
	return time.Duration(e.timeoutMs) * time.Millisecond
}

// Execute starts the plugin in its own directory, writes req to its stdin
// as JSON and decodes a Response from its stdout. A Response with Success
// false is returned without error; the caller decides what it means.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout())
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGrace

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %dms", ErrTimeout, e.timeoutMs)
	}
	if runErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("plugin %s failed: %w, stderr: %s", plugin.Manifest.Name, runErr, msg)
		}
		return nil, fmt.Errorf("plugin %s failed: %w", plugin.Manifest.Name, runErr)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v, stdout: %q", ErrBadResponse, err, stdout.String())
	}
	return &resp, nil
}
