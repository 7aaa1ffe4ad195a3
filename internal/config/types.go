package config

import (
	"fmt"
	"path/filepath"

	"mwrunner/internal/backend"
)

// PackagesSource selects where PHP dependencies are installed from.
type PackagesSource string

const (
	PackagesVendor   PackagesSource = "vendor"
	PackagesComposer PackagesSource = "composer"
)

// ParsePackagesSource validates a user-supplied packages source.
func ParsePackagesSource(name string) (PackagesSource, error) {
	switch PackagesSource(name) {
	case PackagesVendor:
		return PackagesVendor, nil
	case PackagesComposer:
		return PackagesComposer, nil
	default:
		return "", fmt.Errorf("unsupported packages source %q (supported: composer, vendor)", name)
	}
}

// RunConfig is the immutable snapshot of user intent for one invocation.
// It is assembled once, from flags and a single environment capture, and
// passed to every component at construction; nothing reads ambient state
// after that.
type RunConfig struct {
	PackagesSource PackagesSource
	SkipZuul       bool
	SkipDeps       bool
	DBEngine       backend.Engine

	GitCache  string
	Workspace string
	// LogDir is absolute after Finalize.
	LogDir string

	// Projects are extra repositories requested on the command line.
	Projects []string

	// Stage selection inputs; see the stage package for semantics.
	Run      []string
	Skip     []string
	Commands []string

	Env Environment
}

// Environment is the one-time capture of the CI environment variables the
// run consumes.
type Environment struct {
	// ExecutorNumber is the CI-assigned executor slot, "1" when absent.
	ExecutorNumber string
	// ZuulProject is the project under test. When the variable is absent it
	// defaults to mediawiki/core and ZuulProjectAssumed is set so the caller
	// can warn.
	ZuulProject        string
	ZuulProjectAssumed bool
	// SkinDependencies and ExtDependencies are the environment-declared
	// extra projects to clone.
	SkinDependencies []string
	ExtDependencies  []string
	// Display is the X display offered by the environment, empty when
	// headless.
	Display string
}

// InstallPath is the MediaWiki installation directory inside the workspace.
func (c *RunConfig) InstallPath() string {
	return filepath.Join(c.Workspace, "src")
}
