package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine identifies a supported database engine.
type Engine string

const (
	EngineSQLite   Engine = "sqlite"
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgres"
)

// ErrUnsupportedEngine is returned for engine identifiers outside the closed
// set. Selection fails before any process is spawned.
var ErrUnsupportedEngine = errors.New("unsupported database engine")

// ParseEngine validates a user-supplied engine name.
func ParseEngine(name string) (Engine, error) {
	switch Engine(strings.ToLower(name)) {
	case EngineSQLite:
		return EngineSQLite, nil
	case EngineMySQL:
		return EngineMySQL, nil
	case EnginePostgres:
		return EnginePostgres, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: sqlite, mysql, postgres)", ErrUnsupportedEngine, name)
	}
}

// Database is a backend that additionally exposes the connection parameters
// the MediaWiki installer needs.
type Database interface {
	Backend
	Engine() Engine
	DBName() string
	User() string
	Password() string
	// Server returns the --dbserver value for client/server engines and the
	// empty string for sqlite.
	Server() string
	// DataDir returns the on-disk data directory (sqlite's --dbpath).
	DataDir() string
}

// DatabaseOptions carries construction parameters shared by all engines.
// Construction only prepares parameters; no process is started until
// Start is called on the returned backend.
type DatabaseOptions struct {
	// BaseDir is where data directories are created. Empty means the system
	// temp directory.
	BaseDir string
	// ReadyTimeout bounds how long Start waits for the engine to accept
	// connections. Zero means DefaultReadyTimeout.
	ReadyTimeout time.Duration
}

// DefaultReadyTimeout bounds backend readiness waits when the caller does not
// override it.
const DefaultReadyTimeout = 60 * time.Second

func (o DatabaseOptions) readyTimeout() time.Duration {
	if o.ReadyTimeout <= 0 {
		return DefaultReadyTimeout
	}
	return o.ReadyTimeout
}

// NewDatabase dispatches on the engine identifier and returns an unstarted
// database backend.
func NewDatabase(engine Engine, opts DatabaseOptions) (Database, error) {
	switch engine {
	case EngineSQLite:
		return newSQLite(opts), nil
	case EngineMySQL:
		return newMySQL(opts), nil
	case EnginePostgres:
		return newPostgres(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}
}

// generated credentials are unique per run so concurrent executors on one
// host never share a database.
func generateCredentials() (dbname, user, password string) {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return "testdb_" + suffix, "testuser_" + suffix, uuid.NewString()
}
