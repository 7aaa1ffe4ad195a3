package backend

import (
	"context"
	"fmt"
	"os"

	"mwrunner/pkg/logging"
)

// sqliteBackend has no server process; the backend only owns the data
// directory MediaWiki writes its database files into.
type sqliteBackend struct {
	lifecycle
	opts    DatabaseOptions
	dbname  string
	datadir string
}

func newSQLite(opts DatabaseOptions) *sqliteBackend {
	dbname, _, _ := generateCredentials()
	return &sqliteBackend{
		lifecycle: newLifecycle(),
		opts:      opts,
		dbname:    dbname,
	}
}

func (s *sqliteBackend) Kind() Kind       { return KindDatabase }
func (s *sqliteBackend) Label() string    { return "sqlite" }
func (s *sqliteBackend) Engine() Engine   { return EngineSQLite }
func (s *sqliteBackend) DBName() string   { return s.dbname }
func (s *sqliteBackend) User() string     { return "" }
func (s *sqliteBackend) Password() string { return "" }
func (s *sqliteBackend) Server() string   { return "" }
func (s *sqliteBackend) DataDir() string  { return s.datadir }

func (s *sqliteBackend) Start(ctx context.Context) error {
	if err := s.beginStart(s.Label()); err != nil {
		return err
	}
	datadir, err := os.MkdirTemp(s.opts.BaseDir, "mwrunner-sqlite-")
	if err != nil {
		s.failStart()
		return fmt.Errorf("sqlite: failed to create data directory: %w", err)
	}
	s.datadir = datadir
	logging.Info("backend.sqlite", "data directory %s (db %s)", s.datadir, s.dbname)
	return nil
}

func (s *sqliteBackend) Stop() error {
	if !s.beginStop() {
		return nil
	}
	if s.datadir != "" {
		if err := os.RemoveAll(s.datadir); err != nil {
			return fmt.Errorf("sqlite: failed to remove data directory %s: %w", s.datadir, err)
		}
	}
	return nil
}

var _ Database = (*sqliteBackend)(nil)
