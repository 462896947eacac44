// Copyright 2026 RomFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// killGrace is how long StopProcess waits after SIGKILL before reporting failure.
const killGrace = 500 * time.Millisecond

// ProcessConfig bounds StopProcess. Zero fields take the defaults.
type ProcessConfig struct {
	GracefulTimeout time.Duration // default 10s
	PollInterval    time.Duration // default 100ms
}

// StartBackgroundProcess starts executable in its own session with args,
// detached from our stdio. A nil env inherits os.Environ().
func StartBackgroundProcess(executable string, args []string, env []string) (*os.Process, error) {
	cmd := exec.Command(executable, args...)
	cmd.Env = env
	if env == nil {
		cmd.Env = os.Environ()
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", executable, err)
	}
	log.Debugf("[Process] Started %s %v (PID %d)", executable, args, cmd.Process.Pid)
	// Reap the child if it exits while we are still around.
	go cmd.Wait()
	return cmd.Process, nil
}

// StopProcess waits for isRunning to turn false and kills pid with SIGKILL
// if it does not within cfg.GracefulTimeout. gracefulStop, when set, is
// called first to ask the process to exit. The calling process is never
// killed.
func StopProcess(ctx context.Context, pid int, cfg ProcessConfig, gracefulStop func() error, isRunning func() bool) error {
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}

	if gracefulStop != nil {
		if err := gracefulStop(); err != nil {
			log.Debugf("[Process] Graceful stop of PID %d: %v", pid, err)
		}
	}

	stopped := func() bool { return !isRunning() }
	err := PollUntil(ctx, PollConfig{Timeout: cfg.GracefulTimeout, Interval: cfg.PollInterval}, stopped)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, context.DeadlineExceeded):
		return err
	case pid <= 0 || pid == os.Getpid():
		return fmt.Errorf("process (PID %d) did not stop in time", pid)
	}

	log.Warnf("[Process] PID %d still running after %s, killing", pid, cfg.GracefulTimeout)
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("failed to kill PID %d: %w", pid, err)
	}
	if err := PollUntil(context.Background(), PollConfig{Timeout: killGrace, Interval: cfg.PollInterval}, func() bool {
		return stopped() || !IsProcessRunning(pid)
	}); err != nil {
		return fmt.Errorf("failed to stop process (PID %d)", pid)
	}
	return nil
}

// IsProcessRunning reports whether pid exists, by sending it signal 0.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
