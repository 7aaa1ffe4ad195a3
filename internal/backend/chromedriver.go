package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mwrunner/pkg/logging"
)

// DefaultChromeDriverPort is chromedriver's standard listening port.
const DefaultChromeDriverPort = 4444

// ChromeDriverOptions configures a browser driver backend.
type ChromeDriverOptions struct {
	// Display is the X display the browser renders to. It must belong to an
	// already-running display (physical or Xvfb backend).
	Display string
	// Port for chromedriver to listen on. Zero means DefaultChromeDriverPort.
	Port int
	// LogDir receives chromedriver.log. Empty disables it.
	LogDir string
	// ReadyTimeout bounds the wait for the driver to accept connections.
	ReadyTimeout time.Duration
}

// chromeDriver supervises a chromedriver process bound to a display.
type chromeDriver struct {
	lifecycle
	opts ChromeDriverOptions
	proc *process
}

// NewChromeDriver returns an unstarted browser driver backend. The display
// must already be running when Start is called; the driver is released
// before the display, never after.
func NewChromeDriver(opts ChromeDriverOptions) Backend {
	if opts.Port == 0 {
		opts.Port = DefaultChromeDriverPort
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	return &chromeDriver{lifecycle: newLifecycle(), opts: opts}
}

func (c *chromeDriver) Kind() Kind    { return KindBrowserDriver }
func (c *chromeDriver) Label() string { return "chromedriver" }

func (c *chromeDriver) Start(ctx context.Context) error {
	if err := c.beginStart(c.Label()); err != nil {
		return err
	}
	if c.opts.Display == "" {
		c.failStart()
		return fmt.Errorf("chromedriver: no display configured")
	}

	var driverLog io.Writer
	if c.opts.LogDir != "" {
		f, err := os.Create(filepath.Join(c.opts.LogDir, "chromedriver.log"))
		if err != nil {
			c.failStart()
			return fmt.Errorf("chromedriver: failed to create log file: %w", err)
		}
		driverLog = f
		defer f.Close()
	}

	proc, err := spawn([]string{
		"chromedriver",
		fmt.Sprintf("--port=%d", c.opts.Port),
		"--url-base=/wd/hub",
	}, []string{"DISPLAY=" + c.opts.Display}, "", driverLog, driverLog)
	if err != nil {
		c.failStart()
		return fmt.Errorf("chromedriver: %w", err)
	}
	c.proc = proc

	addr := fmt.Sprintf("127.0.0.1:%d", c.opts.Port)
	probe := processAlive(proc, tcpProbe(addr))
	if err := waitUntil(ctx, "chromedriver", c.opts.ReadyTimeout, probe); err != nil {
		if stopErr := terminate(proc); stopErr != nil {
			logging.Warn("backend.chromedriver", "cleanup after failed start: %v", stopErr)
		}
		c.failStart()
		return fmt.Errorf("chromedriver: %w", err)
	}

	logging.Info("backend.chromedriver", "listening on %s (display %s)", addr, c.opts.Display)
	return nil
}

func (c *chromeDriver) Stop() error {
	if !c.beginStop() {
		return nil
	}
	if err := terminate(c.proc); err != nil {
		return fmt.Errorf("chromedriver: %w", err)
	}
	return nil
}
