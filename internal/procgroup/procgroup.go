// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns child processes as process group leaders and tears
// down the whole group with a SIGTERM, poll, SIGKILL protocol.
package procgroup

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

var (
	ErrNotStarted = errors.New("process not started")
	ErrKillFailed = errors.New("kill operation failed")
)

const (
	// DefaultGrace is the total time a group gets to exit after SIGTERM.
	DefaultGrace = 1500 * time.Millisecond
	// PollInterval is the sleep between exit checks during termination.
	PollInterval = 50 * time.Millisecond
	// reapTimeout bounds the wait after SIGKILL.
	reapTimeout = 2 * time.Second
)

// Proc is a running child process that leads its own process group.
// The zero value is not usable; obtain one from Start.
type Proc struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu       sync.Mutex
	waitErr  error
	exitCode int
}

// Start puts cmd in a new process group, starts it and reaps it in the
// background so Exited never reports a zombie as alive.
func Start(cmd *exec.Cmd) (*Proc, error) {
	if cmd == nil {
		return nil, ErrNotStarted
	}
	Set(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	p := &Proc{cmd: cmd, done: make(chan struct{}), exitCode: -1}
	go p.wait()
	return p, nil
}

func (p *Proc) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.waitErr = err
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}
	p.mu.Unlock()
	close(p.done)
}

// Pid returns the leader pid, which is also the process group id.
func (p *Proc) Pid() int {
	if p == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Done is closed once the process has been reaped.
func (p *Proc) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has been reaped.
func (p *Proc) Exited() bool {
	if p == nil {
		return true
	}
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit status, or -1 while running or when killed by a signal.
func (p *Proc) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Err returns the error reported by Wait, if the process has exited.
func (p *Proc) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}
