// Package config assembles the immutable run configuration from CLI flags,
// a one-time environment capture, and layered defaults files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mwrunner/pkg/logging"
)

// For mocking in tests.
var (
	osLookupEnv   = os.LookupEnv
	osSetenv      = os.Setenv
	osGetwd       = os.Getwd
	dockerEnvFile = "/.dockerenv"
)

// dependency lists arrive joined with a literal backslash-n sequence, not a
// newline; that is what the CI scheduler emits.
const dependencyDelimiter = `\n`

// InDocker reports whether the runner executes inside a container, which
// switches the path defaults from cwd-relative to the conventional mount
// points.
func InDocker() bool {
	_, err := os.Stat(dockerEnvFile)
	return err == nil
}

// DefaultGitCache returns the default zuul-cloner cache directory.
func DefaultGitCache() string {
	if InDocker() {
		return "/srv/git"
	}
	return "ref"
}

// DefaultWorkspace returns the default base path to work from.
func DefaultWorkspace() string {
	if InDocker() {
		return "/workspace"
	}
	wd, err := osGetwd()
	if err != nil {
		return "."
	}
	return wd
}

// DefaultLogDir returns the default artifact directory.
func DefaultLogDir() string {
	if InDocker() {
		return "/log"
	}
	return "log"
}

// CaptureEnvironment reads the consumed environment variables exactly once.
func CaptureEnvironment() Environment {
	env := Environment{ExecutorNumber: "1"}

	if v, ok := osLookupEnv("EXECUTOR_NUMBER"); ok && v != "" {
		env.ExecutorNumber = v
	}
	if v, ok := osLookupEnv("ZUUL_PROJECT"); ok && v != "" {
		env.ZuulProject = v
	} else {
		env.ZuulProject = "mediawiki/core"
		env.ZuulProjectAssumed = true
	}
	if v, ok := osLookupEnv("SKIN_DEPENDENCIES"); ok {
		env.SkinDependencies = splitDependencyList(v)
	}
	if v, ok := osLookupEnv("EXT_DEPENDENCIES"); ok {
		env.ExtDependencies = splitDependencyList(v)
	}
	if v, ok := osLookupEnv("DISPLAY"); ok {
		env.Display = v
	}
	return env
}

func splitDependencyList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(v, dependencyDelimiter) {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// Finalize makes the path fields absolute, creates the log directory, and
// freezes the configuration.
func (c *RunConfig) Finalize() error {
	ws, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace path %q: %w", c.Workspace, err)
	}
	c.Workspace = ws

	if !filepath.IsAbs(c.LogDir) {
		c.LogDir = filepath.Join(c.Workspace, c.LogDir)
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", c.LogDir, err)
	}
	return nil
}

// ExportEnvironment sets the variables child processes (maintenance
// scripts, test frameworks) rely on. Some tooling detects CI purely by
// WORKSPACE being set.
func (c *RunConfig) ExportEnvironment() error {
	vars := map[string]string{
		"EXECUTOR_NUMBER": c.Env.ExecutorNumber,
		"MW_INSTALL_PATH": c.InstallPath(),
		"MW_LOG_DIR":      c.LogDir,
		"LOG_DIR":         c.LogDir,
		"TMPDIR":          "/tmp",
	}
	// In a container the mount point is authoritative; outside, a WORKSPACE
	// the CI scheduler already exported wins.
	if _, ok := osLookupEnv("WORKSPACE"); !ok || InDocker() {
		vars["WORKSPACE"] = c.Workspace
	}
	for k, v := range vars {
		if err := osSetenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	logging.Debug("config", "environment exported for %s", c.InstallPath())
	return nil
}
