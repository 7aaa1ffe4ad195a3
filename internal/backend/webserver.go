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

// DefaultHTTPPort is the fixed port the development web server binds for the
// whole run. It is deliberately not configurable per stage: every browser
// stage in a run shares the one server instance.
const DefaultHTTPPort = 9412

// WebServerOptions configures a development web server backend.
type WebServerOptions struct {
	// DocRoot is the MediaWiki installation path to serve.
	DocRoot string
	// Port to bind on 127.0.0.1. Zero means DefaultHTTPPort.
	Port int
	// LogDir receives the server's access/error log. Empty disables it.
	LogDir string
	// ReadyTimeout bounds the wait for the server to accept connections.
	ReadyTimeout time.Duration
}

// webServer supervises `php -S` serving the MediaWiki checkout.
type webServer struct {
	lifecycle
	opts WebServerOptions
	proc *process
}

// NewWebServer returns an unstarted development web server backend.
func NewWebServer(opts WebServerOptions) Backend {
	if opts.Port == 0 {
		opts.Port = DefaultHTTPPort
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	return &webServer{lifecycle: newLifecycle(), opts: opts}
}

func (w *webServer) Kind() Kind    { return KindHTTPServer }
func (w *webServer) Label() string { return "web server" }

// URL returns the base URL stages point their browsers at.
func (w *webServer) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", w.opts.Port)
}

func (w *webServer) Start(ctx context.Context) error {
	if err := w.beginStart(w.Label()); err != nil {
		return err
	}

	var serverLog io.Writer
	if w.opts.LogDir != "" {
		f, err := os.Create(filepath.Join(w.opts.LogDir, "php-server.log"))
		if err != nil {
			w.failStart()
			return fmt.Errorf("web server: failed to create log file: %w", err)
		}
		serverLog = f
		defer f.Close()
	}

	addr := fmt.Sprintf("127.0.0.1:%d", w.opts.Port)
	proc, err := spawn([]string{"php", "-S", addr}, nil, w.opts.DocRoot, serverLog, serverLog)
	if err != nil {
		w.failStart()
		return fmt.Errorf("web server: %w", err)
	}
	w.proc = proc

	probe := processAlive(proc, tcpProbe(addr))
	if err := waitUntil(ctx, "web server", w.opts.ReadyTimeout, probe); err != nil {
		if stopErr := terminate(proc); stopErr != nil {
			logging.Warn("backend.webserver", "cleanup after failed start: %v", stopErr)
		}
		w.failStart()
		return fmt.Errorf("web server: %w", err)
	}

	logging.Info("backend.webserver", "serving %s on %s", w.opts.DocRoot, w.URL())
	return nil
}

func (w *webServer) Stop() error {
	if !w.beginStop() {
		return nil
	}
	if err := terminate(w.proc); err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}
