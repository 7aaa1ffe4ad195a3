package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mwrunner/pkg/logging"
)

// DefaultDisplay is the X display the virtual framebuffer claims when the
// environment offers none.
const DefaultDisplay = ":94"

// XvfbOptions configures a virtual display backend.
type XvfbOptions struct {
	// Display in X notation, e.g. ":94". Empty means DefaultDisplay.
	Display string
	// ReadyTimeout bounds the wait for the X socket to appear.
	ReadyTimeout time.Duration
}

// Xvfb supervises a virtual framebuffer X server so browser stages can run
// headless.
type Xvfb struct {
	lifecycle
	opts XvfbOptions
	proc *process
}

// NewXvfb returns an unstarted virtual display backend.
func NewXvfb(opts XvfbOptions) *Xvfb {
	if opts.Display == "" {
		opts.Display = DefaultDisplay
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	return &Xvfb{lifecycle: newLifecycle(), opts: opts}
}

func (x *Xvfb) Kind() Kind    { return KindDisplay }
func (x *Xvfb) Label() string { return "Xvfb" }

// Display returns the display identifier browser drivers must be pointed at.
func (x *Xvfb) Display() string { return x.opts.Display }

func (x *Xvfb) Start(ctx context.Context) error {
	if err := x.beginStart(x.Label()); err != nil {
		return err
	}

	proc, err := spawn([]string{
		"Xvfb", x.opts.Display,
		"-screen", "0", "1280x1024x24",
		"-ac",
		"-nolisten", "tcp",
	}, nil, "", nil, nil)
	if err != nil {
		x.failStart()
		return fmt.Errorf("xvfb: %w", err)
	}
	x.proc = proc

	// X puts a unix socket under /tmp/.X11-unix named after the display
	// number once it accepts clients.
	socket := "/tmp/.X11-unix/X" + strings.TrimPrefix(x.opts.Display, ":")
	probe := processAlive(proc, fileProbe(socket))
	if err := waitUntil(ctx, "Xvfb", x.opts.ReadyTimeout, probe); err != nil {
		if stopErr := terminate(proc); stopErr != nil {
			logging.Warn("backend.xvfb", "cleanup after failed start: %v", stopErr)
		}
		x.failStart()
		return fmt.Errorf("xvfb: %w", err)
	}

	logging.Info("backend.xvfb", "virtual display %s ready", x.opts.Display)
	return nil
}

func (x *Xvfb) Stop() error {
	if !x.beginStop() {
		return nil
	}
	if err := terminate(x.proc); err != nil {
		return fmt.Errorf("xvfb: %w", err)
	}
	return nil
}
