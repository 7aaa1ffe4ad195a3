package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mwrunner/pkg/logging"
)

// postgresBackend supervises a throwaway postgres server listening only on a
// unix socket inside its data directory.
type postgresBackend struct {
	lifecycle
	opts     DatabaseOptions
	dbname   string
	user     string
	password string

	datadir string
	proc    *process
}

func newPostgres(opts DatabaseOptions) *postgresBackend {
	dbname, user, password := generateCredentials()
	return &postgresBackend{
		lifecycle: newLifecycle(),
		opts:      opts,
		dbname:    dbname,
		user:      user,
		password:  password,
	}
}

func (p *postgresBackend) Kind() Kind       { return KindDatabase }
func (p *postgresBackend) Label() string    { return "postgres" }
func (p *postgresBackend) Engine() Engine   { return EnginePostgres }
func (p *postgresBackend) DBName() string   { return p.dbname }
func (p *postgresBackend) User() string     { return p.user }
func (p *postgresBackend) Password() string { return p.password }
func (p *postgresBackend) DataDir() string  { return p.datadir }

// Server is the socket directory; MediaWiki's postgres driver accepts a
// directory path as the server address.
func (p *postgresBackend) Server() string { return p.datadir }

func (p *postgresBackend) Start(ctx context.Context) error {
	if err := p.beginStart(p.Label()); err != nil {
		return err
	}

	datadir, err := os.MkdirTemp(p.opts.BaseDir, "mwrunner-postgres-")
	if err != nil {
		p.failStart()
		return fmt.Errorf("postgres: failed to create data directory: %w", err)
	}
	p.datadir = datadir

	if err := p.run(ctx); err != nil {
		if stopErr := terminate(p.proc); stopErr != nil {
			logging.Warn("backend.postgres", "cleanup after failed start: %v", stopErr)
		}
		p.releaseResources()
		p.failStart()
		return err
	}
	logging.Info("backend.postgres", "postgres ready in %s (db %s)", p.datadir, p.dbname)
	return nil
}

func (p *postgresBackend) run(ctx context.Context) error {
	initdb := execCommand("initdb",
		"--auth=trust",
		"--username="+p.user,
		"-D", p.datadir)
	if out, err := initdb.CombinedOutput(); err != nil {
		return fmt.Errorf("postgres: initdb failed: %w (output: %s)", err, out)
	}

	logFile, err := os.Create(filepath.Join(p.datadir, "postgres.log"))
	if err != nil {
		return fmt.Errorf("postgres: failed to create server log: %w", err)
	}
	defer logFile.Close()

	// -k makes postgres put its socket in the data directory; -c
	// listen_addresses='' disables TCP entirely.
	proc, err := spawn([]string{
		"postgres",
		"-D", p.datadir,
		"-k", p.datadir,
		"-c", "listen_addresses=",
	}, nil, "", logFile, logFile)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	p.proc = proc

	probe := processAlive(proc, commandProbe("pg_isready", "--host="+p.datadir, "--username="+p.user))
	if err := waitUntil(ctx, "postgres", p.opts.readyTimeout(), probe); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return p.provision()
}

func (p *postgresBackend) provision() error {
	createdb := execCommand("createdb",
		"--host="+p.datadir,
		"--username="+p.user,
		"--owner="+p.user,
		p.dbname)
	if out, err := createdb.CombinedOutput(); err != nil {
		return fmt.Errorf("postgres: failed to create database %s: %w (output: %s)", p.dbname, err, out)
	}
	return nil
}

func (p *postgresBackend) Stop() error {
	if !p.beginStop() {
		return nil
	}
	err := terminate(p.proc)
	p.releaseResources()
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func (p *postgresBackend) releaseResources() {
	if p.datadir != "" {
		if err := os.RemoveAll(p.datadir); err != nil {
			logging.Warn("backend.postgres", "failed to remove data directory %s: %v", p.datadir, err)
		}
	}
}

var _ Database = (*postgresBackend)(nil)
