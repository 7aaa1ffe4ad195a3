package zuul

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureCommands(t *testing.T) *[][]string {
	t.Helper()
	var commands [][]string
	original := runCommand
	t.Cleanup(func() { runCommand = original })
	runCommand = func(_ context.Context, dir string, argv ...string) error {
		commands = append(commands, append([]string{dir}, argv...))
		return nil
	}
	return &commands
}

func TestCloneBuildsZuulClonerInvocation(t *testing.T) {
	commands := captureCommands(t)
	c := &CommandCloner{Workspace: "/workspace/src", CacheDir: "/srv/git"}

	err := c.Clone(context.Background(), []string{"mediawiki/core", "mediawiki/skins/Vector"})
	require.NoError(t, err)
	require.Len(t, *commands, 1)

	argv := (*commands)[0]
	assert.Equal(t, "zuul-cloner", argv[1])
	assert.Contains(t, argv, "--workspace")
	assert.Contains(t, argv, "/workspace/src")
	assert.Contains(t, argv, "--cache-dir")
	assert.Contains(t, argv, "/srv/git")
	assert.Equal(t, "mediawiki/skins/Vector", argv[len(argv)-1])
}

func TestCloneNothingToDo(t *testing.T) {
	commands := captureCommands(t)
	c := &CommandCloner{Workspace: "/workspace/src"}

	require.NoError(t, c.Clone(context.Background(), nil))
	assert.Empty(t, *commands)
}

func TestUpdateSubmodulesRunsInWorkspace(t *testing.T) {
	commands := captureCommands(t)
	c := &CommandCloner{Workspace: "/workspace/src"}

	require.NoError(t, c.UpdateSubmodules(context.Background()))
	require.Len(t, *commands, 1)
	assert.Equal(t, "/workspace/src", (*commands)[0][0])
	assert.Equal(t, "find", (*commands)[0][1])
}

func TestRepoDir(t *testing.T) {
	assert.Equal(t, ".", RepoDir("mediawiki/core"))
	assert.Equal(t, "vendor", RepoDir("mediawiki/vendor"))
	assert.Equal(t, "extensions/Cite", RepoDir("mediawiki/extensions/Cite"))
	assert.Equal(t, "skins/Vector", RepoDir("mediawiki/skins/Vector"))
	assert.Equal(t, "some/other/repo", RepoDir("some/other/repo"))
}
