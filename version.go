package extbuild

import (
	"context"
	"strings"
	"unicode"
)

// VersionResolver builds the version helper from the project tree and runs
// it, capturing what it prints as the package version.
//
// There is no fallback version: if the helper cannot be built, exits
// non-zero or prints nothing, Resolve fails and the run must abort.
type VersionResolver struct {
	Layout      Layout
	Root        string
	Runner      ProcessRunner
	MakeProgram string
}

// BuildCommand is the make invocation that produces the helper at the
// project root.
func (r *VersionResolver) BuildCommand() Command {
	nb := NativeBuilder{MakeProgram: r.MakeProgram}
	cmd := Command{Name: nb.makeProgram(), Dir: r.Root}
	if r.Layout.VersionTarget != "" {
		cmd.Args = []string{r.Layout.VersionTarget}
	}
	return cmd
}

// HelperCommand runs the built helper with no arguments.
func (r *VersionResolver) HelperCommand() Command {
	return Command{
		Name: resolveExecutable(r.Root, r.Layout.VersionHelper),
		Dir:  r.Root,
	}
}

// Resolve builds and runs the helper. The helper's stdout, with trailing
// whitespace trimmed, is the version.
func (r *VersionResolver) Resolve(ctx context.Context) (VersionString, error) {
	runner := r.Runner
	if runner == nil {
		runner = &ExecRunner{}
	}

	build := r.BuildCommand()
	res, err := runner.Run(ctx, build)
	if err != nil || res.ExitCode != 0 {
		return "", stageFailure(StateVersionResolved, ErrVersionTool, build, res, err)
	}

	helper := r.HelperCommand()
	res, err = runner.Run(ctx, helper)
	if err != nil || res.ExitCode != 0 {
		return "", stageFailure(StateVersionResolved, ErrVersionTool, helper, res, err)
	}

	version := strings.TrimRightFunc(string(res.Stdout), unicode.IsSpace)
	if version == "" {
		return "", stageFailure(StateVersionResolved, ErrEmptyVersion, helper, res, nil)
	}
	return VersionString(version), nil
}

// resolveExecutable makes the helper path absolute so it is never looked up
// in PATH and does not depend on the command's working directory.
func resolveExecutable(root, name string) string {
	return absPath(root, name)
}
