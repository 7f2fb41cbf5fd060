// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/iptvcheck/internal/log"
	"github.com/ManuGH/iptvcheck/internal/metrics"
)

// Terminate stops a process group: SIGTERM, wait up to grace for waitCh, then
// SIGKILL and drain waitCh. It returns the error received from waitCh.
// It is safe to call on nil commands (returns nil).
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup")

	signalGroup(cmd, syscall.SIGTERM)
	logger.Debug().Int(log.FieldPID, cmd.Process.Pid).Msg("sent SIGTERM to process group")

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("exit0")
		} else {
			metrics.IncProcWait("exit_nonzero")
		}
		return err
	case <-time.After(grace):
		logger.Warn().Int(log.FieldPID, cmd.Process.Pid).Dur("grace", grace).
			Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
		signalGroup(cmd, syscall.SIGKILL)

		// Always drain waitCh so the Wait goroutine can exit.
		err := <-waitCh
		if err == nil {
			metrics.IncProcWait("forced_exit0")
		} else {
			metrics.IncProcWait("forced_error")
		}
		return err
	}
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	name := "SIGTERM"
	if sig == syscall.SIGKILL {
		name = "SIGKILL"
	}
	err := Kill(cmd, sig)
	switch {
	case err == nil:
		metrics.IncProcTerminate(name, "sent")
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		metrics.IncProcTerminate(name, "esrch")
	default:
		metrics.IncProcTerminate(name, "error")
	}
}
