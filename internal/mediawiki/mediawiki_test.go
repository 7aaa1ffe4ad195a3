package mediawiki

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mwrunner/internal/backend"
	"mwrunner/internal/config"
)

type recordedCommand struct {
	dir  string
	argv []string
}

func captureCommands(t *testing.T) *[]recordedCommand {
	t.Helper()
	var commands []recordedCommand
	original := runCommand
	t.Cleanup(func() { runCommand = original })
	runCommand = func(_ context.Context, dir string, _ []string, argv ...string) error {
		commands = append(commands, recordedCommand{dir: dir, argv: argv})
		return nil
	}
	return &commands
}

func argvStrings(cmds []recordedCommand) []string {
	var out []string
	for _, c := range cmds {
		out = append(out, strings.Join(c.argv, " "))
	}
	return out
}

func TestInstallArgsForServerEngines(t *testing.T) {
	commands := captureCommands(t)
	inst := &Installer{InstallPath: "/workspace/src"}

	db, err := backend.NewDatabase(backend.EngineMySQL, backend.DatabaseOptions{})
	require.NoError(t, err)
	require.NoError(t, inst.Install(context.Background(), db))

	require.Len(t, *commands, 1)
	argv := (*commands)[0].argv
	joined := strings.Join(argv, " ")
	assert.Equal(t, "php", argv[0])
	assert.Equal(t, "maintenance/install.php", argv[1])
	assert.Contains(t, joined, "--dbtype=mysql")
	assert.Contains(t, joined, "--dbname="+db.DBName())
	assert.Contains(t, joined, "--dbuser="+db.User())
	assert.Contains(t, joined, "--dbpass="+db.Password())
	assert.NotContains(t, joined, "--dbpath=")
}

func TestInstallArgsForSQLite(t *testing.T) {
	commands := captureCommands(t)
	inst := &Installer{InstallPath: "/workspace/src"}

	db, err := backend.NewDatabase(backend.EngineSQLite, backend.DatabaseOptions{BaseDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, db.Start(context.Background()))
	defer db.Stop()

	require.NoError(t, inst.Install(context.Background(), db))
	joined := strings.Join((*commands)[0].argv, " ")
	assert.Contains(t, joined, "--dbtype=sqlite")
	assert.Contains(t, joined, "--dbpath="+db.DataDir())
	assert.NotContains(t, joined, "--dbuser=")
}

func TestUpdateSkipsExternalDependenciesForVendor(t *testing.T) {
	commands := captureCommands(t)

	inst := &Installer{InstallPath: "/src", PackagesSource: config.PackagesVendor}
	require.NoError(t, inst.Update(context.Background()))

	inst = &Installer{InstallPath: "/src", PackagesSource: config.PackagesComposer}
	require.NoError(t, inst.Update(context.Background()))

	argvs := argvStrings(*commands)
	assert.Contains(t, argvs[0], "--skip-external-dependencies")
	assert.NotContains(t, argvs[1], "--skip-external-dependencies")
}

func TestWriteComposerLocalListsExtensionManifests(t *testing.T) {
	dir := t.TempDir()
	inst := &Installer{
		InstallPath: dir,
		Dependencies: []string{
			"mediawiki/core",
			"mediawiki/skins/Vector",
			"mediawiki/extensions/Cite",
			"mediawiki/extensions/Scribunto",
		},
	}
	require.NoError(t, inst.WriteComposerLocal())

	data, err := os.ReadFile(filepath.Join(dir, "composer.local.json"))
	require.NoError(t, err)

	var manifest struct {
		Extra struct {
			MergePlugin struct {
				Include []string `json:"include"`
			} `json:"merge-plugin"`
		} `json:"extra"`
	}
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, []string{
		"extensions/Cite/composer.json",
		"extensions/Scribunto/composer.json",
	}, manifest.Extra.MergePlugin.Include)
}

func TestPostProcessLocalSettingsPrependsAndArchives(t *testing.T) {
	commands := captureCommands(t)
	installDir := t.TempDir()
	logDir := t.TempDir()

	installed := "<?php\n$wgSitename = 'TestWiki';\n"
	localSettings := filepath.Join(installDir, "LocalSettings.php")
	require.NoError(t, os.WriteFile(localSettings, []byte(installed), 0o644))

	inst := &Installer{InstallPath: installDir, LogDir: logDir}
	require.NoError(t, inst.PostProcessLocalSettings(context.Background()))

	combined, err := os.ReadFile(localSettings)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(combined), extraSettings))
	assert.True(t, strings.HasSuffix(string(combined), installed))

	// Linted with php -l and archived with the artifacts.
	require.Len(t, *commands, 1)
	assert.Equal(t, []string{"php", "-l", localSettings}, (*commands)[0].argv)
	assert.FileExists(t, filepath.Join(logDir, "LocalSettings.php"))
}

func TestCopyLogFailsOnMissingSource(t *testing.T) {
	inst := &Installer{LogDir: t.TempDir()}
	err := inst.CopyLog(filepath.Join(t.TempDir(), "nope.txt"), "nope.txt")
	assert.Error(t, err)
}

func TestFetchComposerDevRequiresDevPackages(t *testing.T) {
	commands := captureCommands(t)
	installDir := t.TempDir()
	logDir := t.TempDir()
	vendorDir := filepath.Join(installDir, "vendor")
	require.NoError(t, os.MkdirAll(filepath.Join(vendorDir, "composer"), 0o755))

	core := `{"require-dev": {"phpunit/phpunit": "^9.5"}}`
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "composer.json"), []byte(core), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vendorDir, "composer.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vendorDir, "composer/autoload_files.php"), []byte("<?php"), 0o644))

	inst := &Installer{InstallPath: installDir, LogDir: logDir}
	require.NoError(t, inst.FetchComposerDev(context.Background()))

	argvs := argvStrings(*commands)
	require.Len(t, argvs, 3)
	assert.Contains(t, argvs[0], "composer require --dev")
	assert.Contains(t, argvs[0], "phpunit/phpunit=^9.5")
	assert.Contains(t, argvs[1], "composer config extra.merge-plugin.include")
	assert.Contains(t, argvs[2], "composer dump-autoload --optimize")
	assert.Equal(t, vendorDir, (*commands)[0].dir)

	assert.FileExists(t, filepath.Join(logDir, "composer.core.json.txt"))
	assert.FileExists(t, filepath.Join(logDir, "composer.vendor.json.txt"))
	assert.FileExists(t, filepath.Join(logDir, "composer.autoload_files.php.txt"))
}

func TestNPMInstallPrunesFirst(t *testing.T) {
	commands := captureCommands(t)
	inst := &Installer{InstallPath: "/src"}
	require.NoError(t, inst.NPMInstall(context.Background()))

	argvs := argvStrings(*commands)
	assert.Equal(t, []string{"npm prune", "npm install"}, argvs)
}
