// Package zuul wraps the checkout tooling that materializes the project
// list into the workspace. The runner treats it as an external collaborator:
// it shells out and propagates failure, nothing more.
package zuul

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"mwrunner/pkg/logging"
)

// gitBaseURL is where the repositories in the project list live.
const gitBaseURL = "https://gerrit.wikimedia.org/r/p"

// For mocking in tests.
var runCommand = func(ctx context.Context, dir string, argv ...string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Cloner materializes repositories into a workspace.
type Cloner interface {
	Clone(ctx context.Context, projects []string) error
	UpdateSubmodules(ctx context.Context) error
}

// CommandCloner drives zuul-cloner, which reuses the CI-prepared git cache
// and checks out the change under test where applicable.
type CommandCloner struct {
	// Workspace is the directory the checkout lands in (the future
	// MediaWiki installation path).
	Workspace string
	// CacheDir points at bare repositories used to speed up cloning.
	CacheDir string
}

// Clone checks out every project in order. The project list must have the
// primary project first; zuul-cloner creates later entries inside its tree.
func (c *CommandCloner) Clone(ctx context.Context, projects []string) error {
	if len(projects) == 0 {
		return nil
	}
	logging.Info("zuul", "Cloning %s", strings.Join(projects, ", "))

	argv := []string{
		"zuul-cloner",
		"--color",
		"--verbose",
		"--workspace", c.Workspace,
	}
	if c.CacheDir != "" {
		argv = append(argv, "--cache-dir", c.CacheDir)
	}
	argv = append(argv, gitBaseURL)
	argv = append(argv, projects...)

	if err := runCommand(ctx, "", argv...); err != nil {
		return fmt.Errorf("zuul-cloner failed: %w", err)
	}
	return nil
}

// UpdateSubmodules refreshes git submodules of cloned extensions and skins.
// It deliberately does not touch the core checkout: processing core
// submodules on deployment branches drags in the whole production tree.
func (c *CommandCloner) UpdateSubmodules(ctx context.Context) error {
	logging.Info("zuul", "Updating git submodules of extensions and skins")

	script := strings.Join([]string{
		"git submodule foreach git clean -xdff -q",
		"git submodule update --init --recursive",
		"git submodule status",
	}, "\n")

	argv := []string{
		"find", "extensions", "skins",
		"-maxdepth", "2",
		"-name", ".gitmodules",
		"-print",
		"-execdir", "bash", "-xe", "-c", script,
		";",
	}
	if err := runCommand(ctx, c.Workspace, argv...); err != nil {
		return fmt.Errorf("submodule update failed: %w", err)
	}
	return nil
}

// RepoDir maps a project identifier to its checkout directory relative to
// the workspace.
func RepoDir(project string) string {
	switch {
	case project == "mediawiki/core":
		return "."
	case project == "mediawiki/vendor":
		return "vendor"
	case strings.HasPrefix(project, "mediawiki/extensions/"):
		return "extensions/" + strings.TrimPrefix(project, "mediawiki/extensions/")
	case strings.HasPrefix(project, "mediawiki/skins/"):
		return "skins/" + strings.TrimPrefix(project, "mediawiki/skins/")
	default:
		return project
	}
}
