package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Executor handles the execution of plugins with timeout support.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor with the specified per-call timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		timeout: timeout,
	}
}

// Execute runs a plugin with the given request and returns the response.
// The request is sent as JSON on stdin and stdout is parsed as a Response.
// If req.Config is empty the manifest's config is sent instead.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path

	sent := *req
	if len(sent.Config) == 0 {
		sent.Config = plugin.Manifest.Config
	}

	reqJSON, err := json.Marshal(&sent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s timed out after %s", plugin.Manifest.Name, e.timeout)
	}

	if err != nil {
		if stderrStr := stderr.String(); stderrStr != "" {
			return nil, fmt.Errorf("plugin execution failed: %w, stderr: %s", err, stderrStr)
		}
		return nil, fmt.Errorf("plugin execution failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse plugin response: %w, stdout: %s", err, stdout.String())
	}

	return &response, nil
}

// Dispatch executes every plugin subscribed to req.Event, in name order.
// Failures, including unsuccessful responses, are joined into the returned error.
func (e *Executor) Dispatch(ctx context.Context, mgr *Manager, req *Request) error {
	var errs []error
	for _, p := range mgr.ForEvent(req.Event) {
		resp, err := e.Execute(ctx, p, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Manifest.Name, err))
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("%s: %s", p.Manifest.Name, resp.Error))
		}
	}
	return errors.Join(errs...)
}
