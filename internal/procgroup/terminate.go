// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"errors"
	"syscall"
	"time"

	"github.com/ManuGH/kioskd/internal/log"
	"github.com/ManuGH/kioskd/internal/metrics"
)

// Terminate stops the whole process group. It sends SIGTERM, polls for exit
// every PollInterval up to grace, then sends SIGKILL and waits for the reaper.
// Safe to call on nil or already exited processes.
func (p *Proc) Terminate(grace time.Duration) error {
	if p == nil || p.Exited() {
		return nil
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	pid := p.Pid()
	logger := log.WithComponent("procgroup")

	signalGroup(pid, syscall.SIGTERM)

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if p.Exited() {
			metrics.IncProcExit("graceful")
			return nil
		}
		time.Sleep(PollInterval)
	}
	if p.Exited() {
		metrics.IncProcExit("graceful")
		return nil
	}

	logger.Warn().Int(log.FieldPID, pid).Dur("grace", grace).Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	signalGroup(pid, syscall.SIGKILL)

	select {
	case <-p.done:
		metrics.IncProcExit("forced")
		return nil
	case <-time.After(reapTimeout):
		metrics.IncProcExit("stuck")
		return ErrKillFailed
	}
}

func signalGroup(pid int, sig syscall.Signal) {
	name := "SIGTERM"
	if sig == syscall.SIGKILL {
		name = "SIGKILL"
	}
	err := Kill(pid, sig)
	switch {
	case err == nil:
		metrics.IncProcTerminate(name, "sent")
	case errors.Is(err, syscall.ESRCH):
		metrics.IncProcTerminate(name, "esrch")
	default:
		metrics.IncProcTerminate(name, "error")
		logger := log.WithComponent("procgroup")
		logger.Debug().Err(err).Int(log.FieldPID, pid).Str("signal", name).Msg("signal delivery failed")
	}
}
