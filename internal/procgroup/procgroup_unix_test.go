// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessGroupKill(t *testing.T) {
	// sh -> sleep (background) + sleep (foreground)
	cmd := exec.Command("sh", "-c", "sleep 10 & sleep 10")
	Set(cmd)

	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	// Wait a moment for sh to spawn children
	time.Sleep(100 * time.Millisecond)

	pgid, err := syscall.Getpgid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, pgid, "process should be group leader")

	require.NoError(t, Kill(cmd, syscall.SIGKILL))

	err = cmd.Wait()
	require.Error(t, err, "expected the process to be killed")
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			assert.True(t, status.Signaled(), "process should be signaled")
			assert.Equal(t, syscall.SIGKILL, status.Signal())
		}
	}

	// Wait a tiny bit for the kernel to reap the background child
	time.Sleep(50 * time.Millisecond)
	err = syscall.Kill(-pgid, syscall.Signal(0))
	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		t.Fatalf("process group %d still exists after kill", pgid)
	}
	assert.ErrorIs(t, err, syscall.ESRCH)
}

func TestKillWithoutGroupSignalsOnlyTheChild(t *testing.T) {
	cmd := exec.Command("sleep", "10")
	require.NoError(t, cmd.Start())

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	require.Equal(t, syscall.Getpgrp(), pgid, "child shares the test's group")

	require.NoError(t, Kill(cmd, syscall.SIGKILL))

	err = cmd.Wait()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, status.Signal())
}

func TestKillNilCommand(t *testing.T) {
	assert.NoError(t, Kill(nil, syscall.SIGTERM))
	assert.NoError(t, Kill(&exec.Cmd{}, syscall.SIGTERM))
}

func TestKillExitedProcess(t *testing.T) {
	cmd := exec.Command("true")
	Set(cmd)
	require.NoError(t, cmd.Run())

	assert.NoError(t, Kill(cmd, syscall.SIGTERM), "exited process should not be an error")
}

func TestTerminateGraceful(t *testing.T) {
	cmd := exec.Command("sleep", "10")
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	start := time.Now()
	err := Terminate(cmd, waitCh, 2*time.Second)
	require.Error(t, err, "SIGTERM exit is a non-zero exit")
	assert.Less(t, time.Since(start), 2*time.Second, "sleep honours SIGTERM, no escalation expected")
}

func TestTerminateEscalatesToKill(t *testing.T) {
	// The shell ignores SIGTERM, so only SIGKILL stops it.
	cmd := exec.Command("sh", "-c", "trap '' TERM; sleep 10")
	Set(cmd)
	require.NoError(t, cmd.Start())
	time.Sleep(100 * time.Millisecond)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	err := Terminate(cmd, waitCh, 200*time.Millisecond)
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, status.Signal())
}

func TestTerminateNilCommand(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Millisecond))
}
