package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mwrunner/internal/config"
	"mwrunner/internal/projects"
	"mwrunner/internal/stage"
	"mwrunner/internal/zuul"
	"mwrunner/pkg/logging"
)

// For mocking in tests.
var statDir = os.Stat

// Driver ties the whole run together. It owns the only mutable backend
// state; stage executors get read access to the checkout and nothing else.
// Everything runs on one logical thread of control.
type Driver struct {
	cfg      *config.RunConfig
	selector stage.Selector
	cloner   zuul.Cloner
	install  Installer
	tests    TestRunner
	backends *Factory

	state RunState
}

// New assembles a driver from its collaborators.
func New(cfg *config.RunConfig, cloner zuul.Cloner, install Installer, tests TestRunner, backends *Factory) *Driver {
	return &Driver{
		cfg:      cfg,
		selector: stage.NewSelector(cfg.Run, cfg.Skip, cfg.Commands),
		cloner:   cloner,
		install:  install,
		tests:    tests,
		backends: backends,
		state:    StateConfiguring,
	}
}

// State reports where in its lifecycle the run is.
func (d *Driver) State() RunState { return d.state }

// ProjectList resolves the ordered list of repositories this run clones.
func (d *Driver) ProjectList() []string {
	return projects.Resolve(projects.Resolution{
		ProjectUnderTest:      d.cfg.Env.ZuulProject,
		IncludeVendor:         d.cfg.PackagesSource == config.PackagesVendor,
		SkinDependencies:      d.cfg.Env.SkinDependencies,
		ExtensionDependencies: d.cfg.Env.ExtDependencies,
		Explicit:              d.cfg.Projects,
	})
}

// Run executes the pipeline: checkout, installation, then the stage groups
// in their fixed total order. The first stage or backend failure aborts the
// remaining groups; backends acquired so far are released in reverse
// acquisition order before the failure is returned.
func (d *Driver) Run(ctx context.Context) error {
	if selected := d.selector.Selected(); len(selected) > 0 {
		names := make([]string, len(selected))
		for i, n := range selected {
			names[i] = string(n)
		}
		logging.Debug("pipeline", "Running stages: %s", strings.Join(names, ", "))
	}

	if err := d.checkout(ctx); err != nil {
		d.state = StateFailed
		return err
	}

	runScope := newScope("run")
	err := d.execute(ctx, runScope)

	d.state = StateTearingDown
	runScope.release()

	if err != nil {
		d.state = StateFailed
		return err
	}
	d.state = StateSucceeded
	return nil
}

func (d *Driver) checkout(ctx context.Context) error {
	d.state = StateCloning
	if d.cfg.SkipZuul {
		logging.Info("pipeline", "Skipping repository checkout")
		return nil
	}
	list := d.ProjectList()
	if err := d.cloner.Clone(ctx, list); err != nil {
		return err
	}
	return d.cloner.UpdateSubmodules(ctx)
}

// execute runs everything between checkout and teardown. Backends acquired
// into runScope live until overall pipeline teardown; group-scoped backends
// are managed locally.
func (d *Driver) execute(ctx context.Context, runScope *scope) error {
	project := d.cfg.Env.ZuulProject
	if d.cfg.Env.ZuulProjectAssumed {
		logging.Warn("pipeline", "ZUUL_PROJECT not set. Assuming %s", project)
	}

	// Extension/skin repositories get their own repository-level checks
	// before MediaWiki is even installed.
	if projects.IsExtOrSkin(project) {
		runComposer := d.selector.ShouldRun(stage.ComposerTest)
		runNPM := d.selector.ShouldRun(stage.NPMTest)
		if runComposer || runNPM {
			dir := filepath.Join(d.cfg.InstallPath(), zuul.RepoDir(project))
			if err := d.tests.ExtSkin(ctx, dir, runComposer, runNPM); err != nil {
				return err
			}
		}
	}

	if !d.cfg.SkipDeps && d.cfg.PackagesSource == config.PackagesComposer {
		if err := d.install.WriteComposerLocal(); err != nil {
			return err
		}
		if err := d.install.ComposerUpdate(ctx); err != nil {
			return err
		}
	}

	if err := d.installMediaWiki(ctx, runScope); err != nil {
		return err
	}

	if !d.cfg.SkipDeps {
		if d.cfg.PackagesSource == config.PackagesVendor {
			logging.Info("pipeline", "vendor.git used. Requiring composer dev dependencies")
			if err := d.install.FetchComposerDev(ctx); err != nil {
				return err
			}
		}
		if err := d.install.NPMInstall(ctx); err != nil {
			return err
		}
	}

	d.state = StateExecuting

	if d.selector.ShouldRun(stage.PHPUnit) {
		if err := d.phpunitDatabaseless(ctx, project); err != nil {
			return err
		}
	}

	if project == projects.Core {
		if d.selector.ShouldRun(stage.ComposerTest) {
			if err := d.tests.ComposerTest(ctx, d.cfg.InstallPath()); err != nil {
				return err
			}
		}
		if d.selector.ShouldRun(stage.NPMTest) {
			if err := d.tests.NPMTest(ctx, d.cfg.InstallPath()); err != nil {
				return err
			}
		}
	}

	if err := d.browserStages(ctx); err != nil {
		return err
	}

	if projects.IsCoreOrVendor(project) && d.selector.ShouldRun(stage.PHPUnit) {
		if err := d.tests.PHPUnitDatabase(ctx); err != nil {
			return err
		}
	}

	if len(d.cfg.Commands) > 0 {
		if err := d.userCommands(ctx); err != nil {
			return err
		}
	}

	return nil
}

// installMediaWiki acquires the database backend and installs the wiki. The
// database deliberately joins the run scope, not an install-local one: the
// Database-group PHPUnit stage later reuses the same running instance, so
// it is released only at overall teardown.
func (d *Driver) installMediaWiki(ctx context.Context, runScope *scope) error {
	d.state = StateInstalling

	db, err := d.backends.Database()
	if err != nil {
		return err
	}
	if err := runScope.acquire(ctx, db); err != nil {
		return err
	}

	if err := d.install.Install(ctx, db); err != nil {
		return err
	}
	if err := d.install.PostProcessLocalSettings(ctx); err != nil {
		return err
	}
	return d.install.Update(ctx)
}

// browserStages runs the qunit/selenium group. The web server is acquired
// once for the whole group and released when the group ends, success or
// not; the display and browser driver nest strictly inside that scope,
// released in reverse acquisition order.
func (d *Driver) browserStages(ctx context.Context) error {
	runQUnit := d.selector.ShouldRun(stage.QUnit)
	runSelenium := d.selector.ShouldRun(stage.Selenium) && d.hasSeleniumTests()
	if !runQUnit && !runSelenium {
		return nil
	}

	group := newScope("browser")
	defer group.release()

	if err := group.acquire(ctx, d.backends.WebServer()); err != nil {
		return err
	}

	if runQUnit {
		if err := d.tests.QUnit(ctx); err != nil {
			return err
		}
	}

	if runSelenium {
		display := d.cfg.Env.Display
		if display == "" {
			logging.Info("pipeline", "No DISPLAY, using Xvfb")
			xvfb := d.backends.VirtualDisplay()
			if err := group.acquire(ctx, xvfb); err != nil {
				return err
			}
			display = xvfb.Display()
		}

		if err := group.acquire(ctx, d.backends.BrowserDriver(display)); err != nil {
			return err
		}
		if err := d.tests.Webdriver(ctx, display); err != nil {
			return err
		}
	}

	return nil
}

// hasSeleniumTests reports whether the checkout ships browser-driven tests
// at all; old release branches predate them.
func (d *Driver) hasSeleniumTests() bool {
	_, err := statDir(filepath.Join(d.cfg.InstallPath(), "tests/selenium"))
	return err == nil
}

// userCommands runs the literal override commands inside their own web
// server scope so commands that drive a browser find a wiki to talk to.
func (d *Driver) userCommands(ctx context.Context) error {
	logging.Info("pipeline", "User commands")

	group := newScope("commands")
	defer group.release()

	if err := group.acquire(ctx, d.backends.WebServer()); err != nil {
		return err
	}
	return d.tests.Commands(ctx, d.cfg.Commands)
}

// phpunitDatabaseless picks the right databaseless PHPUnit variant for the
// project under test.
func (d *Driver) phpunitDatabaseless(ctx context.Context, project string) error {
	switch {
	case projects.IsCoreOrVendor(project):
		return d.tests.PHPUnitDatabaseless(ctx)
	case projects.IsExtension(project):
		return d.tests.PHPUnitTestsuite(ctx, "extensions")
	case projects.IsSkin(project):
		return d.tests.PHPUnitTestsuite(ctx, "skins")
	default:
		return fmt.Errorf("could not find a PHPUnit testsuite for %q", project)
	}
}
