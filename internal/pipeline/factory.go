package pipeline

import (
	"mwrunner/internal/backend"
	"mwrunner/internal/config"
)

// Display is a backend that exposes an X display identifier once running.
type Display interface {
	backend.Backend
	Display() string
}

// Factory constructs the backends a run may need. Construction never starts
// a process; the pipeline starts backends through scopes. The function
// fields exist so tests can substitute fakes.
type Factory struct {
	Database       func() (backend.Database, error)
	WebServer      func() backend.Backend
	VirtualDisplay func() Display
	BrowserDriver  func(display string) backend.Backend
}

// NewFactory wires the production backends for the given configuration.
// The database engine is validated here, synchronously, before anything
// else happens.
func NewFactory(cfg *config.RunConfig, defaults config.Defaults) (*Factory, error) {
	// Fail fast on an unsupported engine; NewDatabase re-checks but by then
	// a run would already have cloned repositories.
	if _, err := backend.ParseEngine(string(cfg.DBEngine)); err != nil {
		return nil, err
	}

	dbOpts := backend.DatabaseOptions{ReadyTimeout: defaults.BackendReadyTimeout}
	engine := cfg.DBEngine
	logDir := cfg.LogDir
	installPath := cfg.InstallPath()

	return &Factory{
		Database: func() (backend.Database, error) {
			return backend.NewDatabase(engine, dbOpts)
		},
		WebServer: func() backend.Backend {
			return backend.NewWebServer(backend.WebServerOptions{
				DocRoot:      installPath,
				Port:         defaults.HTTPPort,
				LogDir:       logDir,
				ReadyTimeout: defaults.BackendReadyTimeout,
			})
		},
		VirtualDisplay: func() Display {
			return backend.NewXvfb(backend.XvfbOptions{
				Display:      defaults.Display,
				ReadyTimeout: defaults.BackendReadyTimeout,
			})
		},
		BrowserDriver: func(display string) backend.Backend {
			return backend.NewChromeDriver(backend.ChromeDriverOptions{
				Display:      display,
				Port:         defaults.ChromeDriverPort,
				LogDir:       logDir,
				ReadyTimeout: defaults.BackendReadyTimeout,
			})
		},
	}, nil
}
