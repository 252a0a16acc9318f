package extbuild

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Build tool constants
const (
	platformWindows = "windows"
	nmakeProgram    = "nmake"
	makeProgram     = "make"
)

// BuildVariable is one NAME=value assignment passed to the build tool.
type BuildVariable struct {
	Name  string
	Value string
}

func (v BuildVariable) String() string {
	return v.Name + "=" + v.Value
}

// NativeBuilder compiles the native static archive by running make against
// the native source tree.
//
// The invocation is always
//
//	make <archive-target> [INSTALL=dir] [WORK=dir] [PARALLEL=flag]
//
// run in the native tree, where the variable names come from
// Layout.Variables. Nothing is retried: toolchain failures are not transient.
type NativeBuilder struct {
	Layout Layout
	Root   string        // project root; the native tree is Root/Layout.NativeDir
	Runner ProcessRunner // defaults to ExecRunner

	// MakeProgram overrides the build tool; "" selects MAKE or the platform default.
	MakeProgram string
}

// Name returns the builder name
func (b *NativeBuilder) Name() string {
	return "Make"
}

// RequiredTools returns the tools needed to build the archive
func (b *NativeBuilder) RequiredTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:         b.makeProgram(),
			Alternatives: []string{makeProgram, "gmake", nmakeProgram},
			Purpose:      "build tool",
		},
		{
			Name:         "cc",
			Alternatives: []string{"gcc", "clang", "cl"},
			Purpose:      "C compiler",
		},
	}
}

// CheckTools verifies that make and a compiler are available
func (b *NativeBuilder) CheckTools() error {
	return CheckRequiredTools(b.RequiredTools())
}

// NativeDir is the absolute path of the native tree.
func (b *NativeBuilder) NativeDir() string {
	return absPath(b.Root, b.Layout.NativeDir)
}

// ArchiveDir is where the archive lands: the install override when set,
// otherwise the native tree itself.
func (b *NativeBuilder) ArchiveDir(cfg BuildConfiguration) string {
	if cfg.InstallDir != "" {
		return absPath(b.Root, cfg.InstallDir)
	}
	return b.NativeDir()
}

// Variables returns the build variables for cfg, in a fixed order.
//
// The parallel variable follows the tri-state flag: forced values are passed
// verbatim, the default state passes the native tree's default flag, and the
// disabled state omits the variable. With no default flag known the default
// state also omits it, leaving the choice to the native build rules.
func (b *NativeBuilder) Variables(cfg BuildConfiguration) []BuildVariable {
	var vars []BuildVariable

	if cfg.InstallDir != "" && b.Layout.Variables.Install != "" {
		vars = append(vars, BuildVariable{b.Layout.Variables.Install, absPath(b.Root, cfg.InstallDir)})
	}
	if cfg.WorkDir != "" && b.Layout.Variables.Work != "" {
		vars = append(vars, BuildVariable{b.Layout.Variables.Work, absPath(b.Root, cfg.WorkDir)})
	}
	if cfg.ParallelFlag.Enabled() && b.Layout.Variables.Parallel != "" {
		if flag := cfg.ParallelFlag.Effective(b.Layout.DefaultParallelFlag); flag != "" {
			vars = append(vars, BuildVariable{b.Layout.Variables.Parallel, flag})
		}
	}

	return vars
}

// Command returns the build tool invocation for cfg without running it.
func (b *NativeBuilder) Command(cfg BuildConfiguration) Command {
	args := []string{b.Layout.ArchiveTarget}
	for _, v := range b.Variables(cfg) {
		args = append(args, v.String())
	}
	return Command{
		Name: b.makeProgram(),
		Args: args,
		Dir:  b.NativeDir(),
	}
}

// Build runs the build tool and returns the archive it produced.
//
// A non-zero exit, a tool that cannot be started, or an archive missing after
// a successful exit all yield a *StageError carrying the tool output verbatim.
func (b *NativeBuilder) Build(ctx context.Context, cfg BuildConfiguration) (*BuildArtifact, error) {
	cmd := b.Command(cfg)

	res, err := b.runner().Run(ctx, cmd)
	if err != nil {
		return nil, stageFailure(StateNativeArtifactBuilt, ErrNativeBuild, cmd, res, err)
	}
	if res.ExitCode != 0 {
		return nil, stageFailure(StateNativeArtifactBuilt, ErrNativeBuild, cmd, res, nil)
	}

	dir := b.ArchiveDir(cfg)
	path := filepath.Join(dir, b.Layout.ArchiveTarget)
	info, statErr := os.Stat(path)
	if statErr != nil || !info.Mode().IsRegular() {
		if statErr == nil {
			statErr = fmt.Errorf("%s is not a regular file", path)
		} else if errors.Is(statErr, os.ErrNotExist) {
			statErr = fmt.Errorf("expected %s", path)
		}
		return nil, stageFailure(StateNativeArtifactBuilt, ErrArtifactMissing, cmd, res, statErr)
	}

	return &BuildArtifact{
		Path:    path,
		Dir:     dir,
		Library: b.Layout.LibraryName(),
	}, nil
}

func (b *NativeBuilder) runner() ProcessRunner {
	if b.Runner == nil {
		return &ExecRunner{}
	}
	return b.Runner
}

// makeProgram returns the appropriate make program for the platform
func (b *NativeBuilder) makeProgram() string {
	if b.MakeProgram != "" {
		return b.MakeProgram
	}

	// Check environment variable first
	if makeEnv := os.Getenv("MAKE"); makeEnv != "" {
		return makeEnv
	}

	// Platform-specific defaults
	switch runtime.GOOS {
	case platformWindows:
		return nmakeProgram
	default:
		return makeProgram
	}
}
