package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	original := osLookupEnv
	t.Cleanup(func() { osLookupEnv = original })
	osLookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestCaptureEnvironmentDefaults(t *testing.T) {
	withEnv(t, map[string]string{})

	env := CaptureEnvironment()
	assert.Equal(t, "1", env.ExecutorNumber)
	assert.Equal(t, "mediawiki/core", env.ZuulProject)
	assert.True(t, env.ZuulProjectAssumed)
	assert.Empty(t, env.SkinDependencies)
	assert.Empty(t, env.ExtDependencies)
	assert.Empty(t, env.Display)
}

func TestCaptureEnvironmentReadsEverythingOnce(t *testing.T) {
	withEnv(t, map[string]string{
		"EXECUTOR_NUMBER":   "7",
		"ZUUL_PROJECT":      "mediawiki/extensions/Cite",
		"SKIN_DEPENDENCIES": `mediawiki/skins/MonoBook\nmediawiki/skins/Timeless`,
		"EXT_DEPENDENCIES":  `mediawiki/extensions/Scribunto`,
		"DISPLAY":           ":0",
	})

	env := CaptureEnvironment()
	assert.Equal(t, "7", env.ExecutorNumber)
	assert.Equal(t, "mediawiki/extensions/Cite", env.ZuulProject)
	assert.False(t, env.ZuulProjectAssumed)
	assert.Equal(t, []string{"mediawiki/skins/MonoBook", "mediawiki/skins/Timeless"}, env.SkinDependencies)
	assert.Equal(t, []string{"mediawiki/extensions/Scribunto"}, env.ExtDependencies)
	assert.Equal(t, ":0", env.Display)
}

func TestSplitDependencyListHandlesBlanksAndEmpty(t *testing.T) {
	assert.Nil(t, splitDependencyList(""))
	assert.Equal(t, []string{"a", "b"}, splitDependencyList(`a\n\nb`))
}

func TestFinalizeResolvesPathsAndCreatesLogDir(t *testing.T) {
	ws := t.TempDir()
	cfg := &RunConfig{Workspace: ws, LogDir: "log"}

	require.NoError(t, cfg.Finalize())
	assert.True(t, filepath.IsAbs(cfg.Workspace))
	assert.Equal(t, filepath.Join(ws, "log"), cfg.LogDir)
	assert.DirExists(t, cfg.LogDir)
	assert.Equal(t, filepath.Join(ws, "src"), cfg.InstallPath())
}

func TestFinalizeKeepsAbsoluteLogDir(t *testing.T) {
	ws := t.TempDir()
	logDir := filepath.Join(t.TempDir(), "artifacts")
	cfg := &RunConfig{Workspace: ws, LogDir: logDir}

	require.NoError(t, cfg.Finalize())
	assert.Equal(t, logDir, cfg.LogDir)
	assert.DirExists(t, logDir)
}

func mockDockerEnv(t *testing.T, inDocker bool) {
	t.Helper()
	original := dockerEnvFile
	t.Cleanup(func() { dockerEnvFile = original })
	if inDocker {
		path := filepath.Join(t.TempDir(), "dockerenv")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		dockerEnvFile = path
		return
	}
	dockerEnvFile = filepath.Join(t.TempDir(), "missing")
}

func captureSetenv(t *testing.T) map[string]string {
	t.Helper()
	set := make(map[string]string)
	original := osSetenv
	t.Cleanup(func() { osSetenv = original })
	osSetenv = func(key, value string) error {
		set[key] = value
		return nil
	}
	return set
}

func TestExportEnvironmentSetsChildVariables(t *testing.T) {
	withEnv(t, map[string]string{})
	mockDockerEnv(t, false)
	set := captureSetenv(t)

	cfg := &RunConfig{
		Workspace: "/workspace",
		LogDir:    "/log",
		Env:       Environment{ExecutorNumber: "3"},
	}
	require.NoError(t, cfg.ExportEnvironment())

	assert.Equal(t, "3", set["EXECUTOR_NUMBER"])
	assert.Equal(t, "/workspace", set["WORKSPACE"])
	assert.Equal(t, filepath.Join("/workspace", "src"), set["MW_INSTALL_PATH"])
	assert.Equal(t, "/log", set["MW_LOG_DIR"])
	assert.Equal(t, "/log", set["LOG_DIR"])
	assert.Equal(t, "/tmp", set["TMPDIR"])
}

func TestExportEnvironmentKeepsSchedulerWorkspace(t *testing.T) {
	withEnv(t, map[string]string{"WORKSPACE": "/ci/workspace"})
	mockDockerEnv(t, false)
	set := captureSetenv(t)

	cfg := &RunConfig{Workspace: "/workspace", LogDir: "/log"}
	require.NoError(t, cfg.ExportEnvironment())

	_, overridden := set["WORKSPACE"]
	assert.False(t, overridden, "a scheduler-exported WORKSPACE must survive")
	assert.Equal(t, filepath.Join("/workspace", "src"), set["MW_INSTALL_PATH"])
}

func TestExportEnvironmentOverridesWorkspaceInContainer(t *testing.T) {
	withEnv(t, map[string]string{"WORKSPACE": "/ci/workspace"})
	mockDockerEnv(t, true)
	set := captureSetenv(t)

	cfg := &RunConfig{Workspace: "/workspace", LogDir: "/log"}
	require.NoError(t, cfg.ExportEnvironment())

	assert.Equal(t, "/workspace", set["WORKSPACE"])
}

func TestParsePackagesSource(t *testing.T) {
	src, err := ParsePackagesSource("vendor")
	require.NoError(t, err)
	assert.Equal(t, PackagesVendor, src)

	src, err = ParsePackagesSource("composer")
	require.NoError(t, err)
	assert.Equal(t, PackagesComposer, src)

	_, err = ParsePackagesSource("pip")
	assert.Error(t, err)
}
