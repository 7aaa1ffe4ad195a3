package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	env  []string
	argv []string
}

func capture(t *testing.T, failOn string) *[]call {
	t.Helper()
	var calls []call
	original := runCommand
	t.Cleanup(func() { runCommand = original })
	runCommand = func(_ context.Context, dir string, env []string, argv ...string) error {
		calls = append(calls, call{dir: dir, env: env, argv: argv})
		if failOn != "" && strings.Contains(strings.Join(argv, " "), failOn) {
			return errors.New("exit status 1")
		}
		return nil
	}
	return &calls
}

func newRunner() *Runner {
	return &Runner{InstallPath: "/workspace/src", LogDir: "/log", HTTPPort: 9412}
}

func TestPHPUnitGroupsWriteDistinctReports(t *testing.T) {
	calls := capture(t, "")
	r := newRunner()

	require.NoError(t, r.PHPUnitDatabaseless(context.Background()))
	require.NoError(t, r.PHPUnitDatabase(context.Background()))
	require.Len(t, *calls, 2)

	dbless := strings.Join((*calls)[0].argv, " ")
	db := strings.Join((*calls)[1].argv, " ")
	assert.Contains(t, dbless, "--exclude-group Database")
	assert.Contains(t, dbless, "/log/junit-dbless.xml")
	assert.Contains(t, db, "--group Database")
	assert.Contains(t, db, "/log/junit-db.xml")
}

func TestPHPUnitTestsuiteReportNamedAfterSuite(t *testing.T) {
	calls := capture(t, "")
	r := newRunner()

	require.NoError(t, r.PHPUnitTestsuite(context.Background(), "extensions"))
	joined := strings.Join((*calls)[0].argv, " ")
	assert.Contains(t, joined, "--testsuite extensions")
	assert.Contains(t, joined, "/log/junit-extensions.xml")
}

func TestQUnitTargetsDevServer(t *testing.T) {
	calls := capture(t, "")
	r := newRunner()

	require.NoError(t, r.QUnit(context.Background()))
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"grunt", "qunit"}, (*calls)[0].argv)
	assert.Contains(t, (*calls)[0].env, "MW_SERVER=http://127.0.0.1:9412")
}

func TestWebdriverExportsDisplay(t *testing.T) {
	calls := capture(t, "")
	r := newRunner()

	require.NoError(t, r.Webdriver(context.Background(), ":94"))
	require.Len(t, *calls, 1)
	assert.Contains(t, (*calls)[0].env, "DISPLAY=:94")
	assert.Contains(t, (*calls)[0].env, "MW_SERVER=http://127.0.0.1:9412")
}

func TestExtSkinRunsRequestedCheckers(t *testing.T) {
	calls := capture(t, "")
	r := newRunner()

	require.NoError(t, r.ExtSkin(context.Background(), "/src/extensions/Cite", true, true))
	var argvs []string
	for _, c := range *calls {
		assert.Equal(t, "/src/extensions/Cite", c.dir)
		argvs = append(argvs, strings.Join(c.argv, " "))
	}
	assert.Equal(t, []string{
		"composer install --no-progress --prefer-dist",
		"composer test",
		"npm install",
		"npm test",
	}, argvs)
}

func TestExtSkinComposerOnly(t *testing.T) {
	calls := capture(t, "")
	r := newRunner()

	require.NoError(t, r.ExtSkin(context.Background(), "/d", true, false))
	require.Len(t, *calls, 2)
}

func TestCommandsStopAtFirstFailure(t *testing.T) {
	calls := capture(t, "false-cmd")
	r := newRunner()

	err := r.Commands(context.Background(), []string{"true-cmd", "false-cmd", "never-cmd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `user command "false-cmd" failed`)
	assert.Len(t, *calls, 2)
}

func TestCommandsRunRelativeToInstallPath(t *testing.T) {
	calls := capture(t, "")
	r := newRunner()

	require.NoError(t, r.Commands(context.Background(), []string{"composer phpunit"}))
	require.Len(t, *calls, 1)
	assert.Equal(t, "/workspace/src", (*calls)[0].dir)
	assert.Equal(t, []string{"sh", "-c", "composer phpunit"}, (*calls)[0].argv)
}
