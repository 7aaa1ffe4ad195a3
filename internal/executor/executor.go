// Package executor shells out to the test frameworks a stage ultimately
// runs. Each method blocks until the underlying process exits and maps a
// non-zero exit into an error; stage selection and backend scoping are the
// pipeline's business.
package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"mwrunner/pkg/logging"
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

// Runner executes test stages against an installed MediaWiki.
type Runner struct {
	// InstallPath is the MediaWiki checkout stages run against.
	InstallPath string
	// LogDir receives one JUnit-style report per stage group that runs.
	LogDir string
	// HTTPPort is where the development web server listens for browser
	// stages.
	HTTPPort int
}

func (r *Runner) serverURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", r.HTTPPort)
}

// PHPUnitDatabaseless runs the PHPUnit suite minus the Database group.
func (r *Runner) PHPUnitDatabaseless(ctx context.Context) error {
	logging.Info("executor", "PHPUnit without Database group")
	return r.phpunit(ctx,
		"--exclude-group", "Database",
		"--log-junit", filepath.Join(r.LogDir, "junit-dbless.xml"))
}

// PHPUnitDatabase runs the Database group of the PHPUnit suite. It writes a
// separate report so the two groups are distinguishable in the artifacts.
func (r *Runner) PHPUnitDatabase(ctx context.Context) error {
	logging.Info("executor", "PHPUnit Database group")
	return r.phpunit(ctx,
		"--group", "Database",
		"--log-junit", filepath.Join(r.LogDir, "junit-db.xml"))
}

// PHPUnitTestsuite runs a named testsuite (extensions or skins).
func (r *Runner) PHPUnitTestsuite(ctx context.Context, testsuite string) error {
	logging.Info("executor", "PHPUnit %s testsuite", testsuite)
	return r.phpunit(ctx,
		"--testsuite", testsuite,
		"--log-junit", filepath.Join(r.LogDir, "junit-"+testsuite+".xml"))
}

func (r *Runner) phpunit(ctx context.Context, extra ...string) error {
	argv := append([]string{"php", "tests/phpunit/phpunit.php"}, extra...)
	if err := runCommand(ctx, r.InstallPath, nil, argv...); err != nil {
		return fmt.Errorf("phpunit failed: %w", err)
	}
	return nil
}

// ComposerTest runs the composer test entry point in the given directory.
func (r *Runner) ComposerTest(ctx context.Context, dir string) error {
	if err := runCommand(ctx, dir, nil, "composer", "test"); err != nil {
		return fmt.Errorf("composer test failed in %s: %w", dir, err)
	}
	return nil
}

// NPMTest runs the npm test entry point in the given directory.
func (r *Runner) NPMTest(ctx context.Context, dir string) error {
	if err := runCommand(ctx, dir, nil, "npm", "test"); err != nil {
		return fmt.Errorf("npm test failed in %s: %w", dir, err)
	}
	return nil
}

// ExtSkin runs the per-repository checks of an extension or skin checkout.
// Dependencies are installed first so the repository's own composer/npm
// scripts resolve.
func (r *Runner) ExtSkin(ctx context.Context, dir string, composer, npm bool) error {
	if composer {
		if err := runCommand(ctx, dir, nil, "composer", "install", "--no-progress", "--prefer-dist"); err != nil {
			return fmt.Errorf("composer install failed in %s: %w", dir, err)
		}
		if err := r.ComposerTest(ctx, dir); err != nil {
			return err
		}
	}
	if npm {
		if err := runCommand(ctx, dir, nil, "npm", "install"); err != nil {
			return fmt.Errorf("npm install failed in %s: %w", dir, err)
		}
		if err := r.NPMTest(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// QUnit runs the JavaScript test suite in a headless browser against the
// development web server.
func (r *Runner) QUnit(ctx context.Context) error {
	logging.Info("executor", "Running QUnit tests against %s", r.serverURL())
	env := []string{
		"MW_SERVER=" + r.serverURL(),
		"MW_SCRIPT_PATH=",
	}
	if err := runCommand(ctx, r.InstallPath, env, "grunt", "qunit"); err != nil {
		return fmt.Errorf("qunit failed: %w", err)
	}
	return nil
}

// Webdriver runs the browser-driven interaction tests. The caller
// guarantees the web server and a browser driver bound to display are
// already running.
func (r *Runner) Webdriver(ctx context.Context, display string) error {
	logging.Info("executor", "Running Webdriver tests (display %s)", display)
	env := []string{
		"MW_SERVER=" + r.serverURL(),
		"MW_SCRIPT_PATH=",
		"DISPLAY=" + display,
		"LOG_DIR=" + r.LogDir,
	}
	if err := runCommand(ctx, r.InstallPath, env, "npm", "run", "selenium-test"); err != nil {
		return fmt.Errorf("webdriver tests failed: %w", err)
	}
	return nil
}

// Commands runs the literal user-supplied commands relative to the
// MediaWiki installation path, aborting on the first failure.
func (r *Runner) Commands(ctx context.Context, commands []string) error {
	for _, command := range commands {
		logging.Info("executor", "Running user command: %s", command)
		if err := runCommand(ctx, r.InstallPath, nil, "sh", "-c", command); err != nil {
			return fmt.Errorf("user command %q failed: %w", command, err)
		}
	}
	return nil
}
