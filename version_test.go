package extbuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionResolverTrimsTrailingWhitespace(t *testing.T) {
	root, layout := testProject(t)
	runner := toolchain(t, root, layout, "v3.2.1\n")
	r := &VersionResolver{Layout: layout, Root: root, Runner: runner, MakeProgram: "make"}

	v, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VersionString("v3.2.1"), v)

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, Command{Name: "make", Dir: root}, calls[0])
	assert.Equal(t, Command{Name: absPath(root, "version"), Dir: root}, calls[1])
}

func TestVersionResolverDeterministic(t *testing.T) {
	root, layout := testProject(t)
	r := &VersionResolver{Layout: layout, Root: root, Runner: toolchain(t, root, layout, "3.2.0 \r\n"), MakeProgram: "make"}

	first, err := r.Resolve(context.Background())
	require.NoError(t, err)
	second, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "3.2.0", first.String())
}

func TestVersionResolverTarget(t *testing.T) {
	layout := DefaultLayout()
	layout.VersionTarget = "version"
	r := &VersionResolver{Layout: layout, Root: "/src/class", MakeProgram: "make"}

	assert.Equal(t, []string{"version"}, r.BuildCommand().Args)
	assert.Equal(t, "/src/class/version", r.HelperCommand().Name)
}

func TestVersionResolverHelperFails(t *testing.T) {
	root, layout := testProject(t)
	helper := absPath(root, layout.VersionHelper)
	runner := &fakeRunner{script: func(cmd Command) (*ProcessResult, error) {
		if cmd.Name == helper {
			return &ProcessResult{ExitCode: 127, Output: []byte("version: not found\n")}, nil
		}
		return &ProcessResult{}, nil
	}}
	r := &VersionResolver{Layout: layout, Root: root, Runner: runner, MakeProgram: "make"}

	v, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Empty(t, v)
	assert.ErrorIs(t, err, ErrVersionTool)
	assert.Contains(t, err.Error(), "version: not found")
}

func TestVersionResolverBuildFailsBeforeHelperRuns(t *testing.T) {
	root, layout := testProject(t)
	runner := &fakeRunner{script: func(Command) (*ProcessResult, error) {
		return &ProcessResult{ExitCode: 2, Output: []byte("no rule to make target\n")}, nil
	}}
	r := &VersionResolver{Layout: layout, Root: root, Runner: runner, MakeProgram: "make"}

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionTool)
	assert.Len(t, runner.Calls(), 1)
}

func TestVersionResolverEmptyOutput(t *testing.T) {
	root, layout := testProject(t)
	r := &VersionResolver{Layout: layout, Root: root, Runner: toolchain(t, root, layout, " \n"), MakeProgram: "make"}

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyVersion)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StateVersionResolved, se.Stage)
}

func TestVersionResolverTrimsAllTrailingSpace(t *testing.T) {
	root, layout := testProject(t)
	r := &VersionResolver{Layout: layout, Root: root, Runner: toolchain(t, root, layout, "v3.2.1\v\f \n"), MakeProgram: "make"}

	v, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VersionString("v3.2.1"), v)
}
