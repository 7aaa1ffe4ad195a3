package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mwrunner/pkg/logging"
)

// mysqlBackend supervises a throwaway mysqld bound to a unix socket inside a
// private data directory. Nothing listens on TCP, so concurrent runs on one
// host cannot collide.
type mysqlBackend struct {
	lifecycle
	opts     DatabaseOptions
	dbname   string
	user     string
	password string

	datadir string
	socket  string
	proc    *process
}

func newMySQL(opts DatabaseOptions) *mysqlBackend {
	dbname, user, password := generateCredentials()
	return &mysqlBackend{
		lifecycle: newLifecycle(),
		opts:      opts,
		dbname:    dbname,
		user:      user,
		password:  password,
	}
}

func (m *mysqlBackend) Kind() Kind       { return KindDatabase }
func (m *mysqlBackend) Label() string    { return "mysql" }
func (m *mysqlBackend) Engine() Engine   { return EngineMySQL }
func (m *mysqlBackend) DBName() string   { return m.dbname }
func (m *mysqlBackend) User() string     { return m.user }
func (m *mysqlBackend) Password() string { return m.password }
func (m *mysqlBackend) DataDir() string  { return m.datadir }

// Server points MediaWiki at the unix socket.
func (m *mysqlBackend) Server() string {
	return "localhost:" + m.socket
}

func (m *mysqlBackend) Start(ctx context.Context) error {
	if err := m.beginStart(m.Label()); err != nil {
		return err
	}

	datadir, err := os.MkdirTemp(m.opts.BaseDir, "mwrunner-mysql-")
	if err != nil {
		m.failStart()
		return fmt.Errorf("mysql: failed to create data directory: %w", err)
	}
	m.datadir = datadir
	m.socket = filepath.Join(datadir, "mysqld.sock")

	if err := m.run(ctx); err != nil {
		if stopErr := terminate(m.proc); stopErr != nil {
			logging.Warn("backend.mysql", "cleanup after failed start: %v", stopErr)
		}
		m.releaseResources()
		m.failStart()
		return err
	}
	logging.Info("backend.mysql", "mysqld ready on socket %s (db %s)", m.socket, m.dbname)
	return nil
}

func (m *mysqlBackend) run(ctx context.Context) error {
	install := execCommand("mysql_install_db", "--datadir="+m.datadir)
	if out, err := install.CombinedOutput(); err != nil {
		return fmt.Errorf("mysql: mysql_install_db failed: %w (output: %s)", err, out)
	}

	logFile, err := os.Create(filepath.Join(m.datadir, "mysqld.log"))
	if err != nil {
		return fmt.Errorf("mysql: failed to create server log: %w", err)
	}
	defer logFile.Close()

	proc, err := spawn([]string{
		"/usr/sbin/mysqld",
		"--datadir=" + m.datadir,
		"--socket=" + m.socket,
		"--skip-networking",
		"--log-error=" + filepath.Join(m.datadir, "error.log"),
	}, nil, "", logFile, logFile)
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	m.proc = proc

	probe := processAlive(proc, unixSocketProbe(m.socket))
	if err := waitUntil(ctx, "mysqld", m.opts.readyTimeout(), probe); err != nil {
		return fmt.Errorf("mysql: %w", err)
	}

	return m.provision()
}

// provision creates the test database and a user granted full access to it,
// matching what the MediaWiki installer expects to find.
func (m *mysqlBackend) provision() error {
	sql := fmt.Sprintf(
		"CREATE DATABASE `%s`;"+
			"CREATE USER '%s'@'localhost' IDENTIFIED BY '%s';"+
			"GRANT ALL ON `%s`.* TO '%s'@'localhost';",
		m.dbname, m.user, m.password, m.dbname, m.user)
	cmd := execCommand("mysql", "--user=root", "--socket="+m.socket, "-e", sql)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mysql: failed to provision database %s: %w (output: %s)", m.dbname, err, out)
	}
	return nil
}

func (m *mysqlBackend) Stop() error {
	if !m.beginStop() {
		return nil
	}
	err := terminate(m.proc)
	m.releaseResources()
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	return nil
}

func (m *mysqlBackend) releaseResources() {
	if m.datadir != "" {
		if err := os.RemoveAll(m.datadir); err != nil {
			logging.Warn("backend.mysql", "failed to remove data directory %s: %v", m.datadir, err)
		}
	}
}

var _ Database = (*mysqlBackend)(nil)
