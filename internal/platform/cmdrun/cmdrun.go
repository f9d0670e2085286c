// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cmdrun executes short-lived external tools with a bounded runtime and
// classifies the outcome instead of surfacing raw exec errors.
package cmdrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Kind classifies the outcome of an external command.
type Kind int

const (
	Success Kind = iota
	ToolMissing
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ToolMissing:
		return "tool_missing"
	case IOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

var (
	// ErrToolMissing is returned by Result.Err when the binary is not installed.
	ErrToolMissing = errors.New("tool missing")
	// ErrCommandFailed is returned by Result.Err for every other failure.
	ErrCommandFailed = errors.New("command failed")
)

// Result is the classified outcome of one command invocation.
type Result struct {
	Kind     Kind
	Detail   string
	ExitCode int
}

// OK reports whether the command ran and exited zero.
func (r Result) OK() bool { return r.Kind == Success }

// Err converts the result into an error suitable for wrapping. Nil on success.
func (r Result) Err() error {
	switch r.Kind {
	case Success:
		return nil
	case ToolMissing:
		return fmt.Errorf("%w: %s", ErrToolMissing, r.Detail)
	default:
		return fmt.Errorf("%w: %s", ErrCommandFailed, r.Detail)
	}
}

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// Exec runs commands through os/exec.
type Exec struct {
	// Env replaces the child environment when non-nil.
	Env []string
	// Timeout bounds every invocation. Zero means 10 seconds.
	Timeout time.Duration
}

// Run executes name with args and classifies the outcome.
func (e Exec) Run(ctx context.Context, name string, args ...string) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 -- binaries come from operator configuration
	cmd := exec.CommandContext(ctx, name, args...)
	if e.Env != nil {
		cmd.Env = e.Env
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return Classify(err, stderr.String())
}

// Classify maps an exec error into a Result.
func Classify(err error, stderr string) Result {
	if err == nil {
		return Result{Kind: Success}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return Result{Kind: ToolMissing, Detail: err.Error(), ExitCode: -1}
	}
	detail := err.Error()
	if s := strings.TrimSpace(stderr); s != "" {
		detail = detail + ": " + s
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return Result{Kind: IOFailure, Detail: detail, ExitCode: code}
}
