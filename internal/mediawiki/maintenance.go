// Package mediawiki wraps the MediaWiki maintenance scripts and the
// dependency plumbing around a checkout. Everything here is a thin
// subprocess wrapper; orchestration lives in the pipeline package.
package mediawiki

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"mwrunner/internal/backend"
	"mwrunner/internal/config"
	"mwrunner/pkg/logging"
)

// Fixed wiki identity for throwaway test installations.
const (
	siteName      = "TestWiki"
	adminUser     = "WikiAdmin"
	adminPassword = "testwikijenkinspass"
)

// For mocking in tests.
var runCommand = func(ctx context.Context, dir string, env []string, argv ...string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Installer drives installation and upgrade of a MediaWiki checkout.
type Installer struct {
	InstallPath    string
	LogDir         string
	PackagesSource config.PackagesSource
	// Dependencies is the resolved project list; the composer merge plugin
	// configuration is derived from its extensions.
	Dependencies []string
}

// Install runs the MediaWiki installer against a running database backend.
// The backend must already have passed its readiness check.
func (i *Installer) Install(ctx context.Context, db backend.Database) error {
	args := []string{
		"php", "maintenance/install.php",
		"--confpath", i.InstallPath,
		"--scriptpath=",
		"--dbtype=" + string(db.Engine()),
		"--dbname=" + db.DBName(),
	}
	switch db.Engine() {
	case backend.EngineSQLite:
		args = append(args, "--dbpath="+db.DataDir())
	case backend.EngineMySQL, backend.EnginePostgres:
		args = append(args,
			"--dbuser="+db.User(),
			"--dbpass="+db.Password(),
			"--dbserver="+db.Server(),
		)
	default:
		return fmt.Errorf("%w: %q", backend.ErrUnsupportedEngine, db.Engine())
	}
	args = append(args, "--pass", adminPassword, siteName, adminUser)

	logging.Info("mediawiki", "Installing MediaWiki (%s)", db.Engine())
	if err := runCommand(ctx, i.InstallPath, nil, args...); err != nil {
		return fmt.Errorf("mediawiki install failed: %w", err)
	}
	return nil
}

// Update runs update.php. Vendor-sourced runs skip the external dependency
// check: a library bump in core and vendor would otherwise deadlock on two
// patches that each require the other.
func (i *Installer) Update(ctx context.Context) error {
	args := []string{"php", "maintenance/update.php", "--quick"}
	if i.PackagesSource == config.PackagesVendor {
		logging.Info("mediawiki", "mediawiki/vendor used. Skipping external dependencies")
		args = append(args, "--skip-external-dependencies")
	}
	if err := runCommand(ctx, i.InstallPath, nil, args...); err != nil {
		return fmt.Errorf("update.php failed: %w", err)
	}
	return nil
}
