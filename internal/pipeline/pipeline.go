// Package pipeline sequences a whole run: it resolves which stages execute,
// acquires service backends scoped to the stage groups that need them, and
// guarantees teardown in reverse acquisition order on every exit path.
package pipeline

import (
	"context"

	"mwrunner/internal/backend"
)

// RunState tracks where in its lifecycle a run currently is. Failed is
// reachable from every state after Installing; teardown always executes
// before a terminal state is reported.
type RunState string

const (
	StateConfiguring RunState = "Configuring"
	StateCloning     RunState = "Cloning"
	StateInstalling  RunState = "Installing"
	StateExecuting   RunState = "Executing"
	StateTearingDown RunState = "TearingDown"
	StateSucceeded   RunState = "Succeeded"
	StateFailed      RunState = "Failed"
)

// Installer prepares a MediaWiki checkout for testing. Implemented by the
// mediawiki package; faked in tests.
type Installer interface {
	Install(ctx context.Context, db backend.Database) error
	Update(ctx context.Context) error
	PostProcessLocalSettings(ctx context.Context) error
	WriteComposerLocal() error
	ComposerUpdate(ctx context.Context) error
	FetchComposerDev(ctx context.Context) error
	NPMInstall(ctx context.Context) error
}

// TestRunner executes the individual stages. Implemented by the executor
// package; faked in tests.
type TestRunner interface {
	PHPUnitDatabaseless(ctx context.Context) error
	PHPUnitDatabase(ctx context.Context) error
	PHPUnitTestsuite(ctx context.Context, testsuite string) error
	ComposerTest(ctx context.Context, dir string) error
	NPMTest(ctx context.Context, dir string) error
	ExtSkin(ctx context.Context, dir string, composer, npm bool) error
	QUnit(ctx context.Context) error
	Webdriver(ctx context.Context, display string) error
	Commands(ctx context.Context, commands []string) error
}
