package backend

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Seams for tests. Production code always uses the real implementations.
var (
	execCommand  = exec.Command
	startProcess = func(cmd *exec.Cmd) error { return cmd.Start() }
)

// process is a spawned child plus the reaper that waits on it. The single
// Wait runs in its own goroutine from the moment the child starts; everyone
// else observes termination through the done channel. Signal-based liveness
// checks are useless here: an exited child stays a signalable zombie until
// it is reaped.
type process struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// spawn starts argv as a supervised child in its own process group so that
// terminate can reliably kill the whole tree (mysqld and Xvfb both fork).
func spawn(argv []string, extraEnv []string, dir string, stdout, stderr io.Writer) (*process, error) {
	cmd := execCommand(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := startProcess(cmd); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		// The exit status does not matter here: backends decide health
		// through readiness probes, and terminate only needs the reap.
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// exited reports whether the child has terminated.
func (p *process) exited() bool {
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

// terminate kills the process group of a spawned command and waits for the
// reaper to collect it. Calling it on an already-exited process is not an
// error.
func terminate(p *process) error {
	if p == nil || p.cmd.Process == nil {
		return nil
	}
	if p.exited() {
		return nil
	}
	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("failed to signal process group %d: %w", p.cmd.Process.Pid, err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(5 * time.Second):
	}

	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("failed to kill process group %d: %w", p.cmd.Process.Pid, err)
	}
	<-p.done
	return nil
}
