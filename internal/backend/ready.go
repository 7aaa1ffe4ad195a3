package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

const readyPollInterval = 100 * time.Millisecond

// errProcessExited marks a readiness failure that cannot recover because the
// supervised process is gone.
var errProcessExited = errors.New("process exited before becoming ready")

// waitUntil polls check until it succeeds, ctx is done, or timeout elapses.
// A backend whose supervised process exits early fails the wait immediately
// through the probe rather than burning the full timeout.
func waitUntil(ctx context.Context, label string, timeout time.Duration, check func() error) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		if lastErr = check(); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, errProcessExited) {
			return fmt.Errorf("%s: %w", label, lastErr)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s not ready after %s: %w", label, timeout, lastErr)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s readiness wait canceled: %w", label, ctx.Err())
		case <-time.After(readyPollInterval):
		}
	}
}

// tcpProbe returns a readiness check that succeeds once addr accepts
// connections.
func tcpProbe(addr string) func() error {
	return func() error {
		conn, err := net.DialTimeout("tcp", addr, readyPollInterval)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// unixSocketProbe returns a readiness check that succeeds once the unix
// socket at path accepts connections.
func unixSocketProbe(path string) func() error {
	return func() error {
		conn, err := net.DialTimeout("unix", path, readyPollInterval)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// fileProbe returns a readiness check that succeeds once path exists.
func fileProbe(path string) func() error {
	return func() error {
		if _, err := os.Stat(path); err != nil {
			return err
		}
		return nil
	}
}

// commandProbe returns a readiness check that succeeds once argv exits zero.
func commandProbe(argv ...string) func() error {
	return func() error {
		cmd := execCommand(argv[0], argv[1:]...)
		cmd.Stdout = nil
		cmd.Stderr = nil
		return cmd.Run()
	}
}

// processAlive wraps a probe so the wait aborts as soon as the supervised
// process exits instead of polling until the deadline.
func processAlive(p *process, probe func() error) func() error {
	return func() error {
		if p.exited() {
			return errProcessExited
		}
		return probe()
	}
}
