package extbuild

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner records every command and answers from a script.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []Command
	script func(Command) (*ProcessResult, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (*ProcessResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.script == nil {
		return &ProcessResult{}, nil
	}
	return f.script(cmd)
}

func (f *fakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// archiveCalls returns the native build invocations.
func (f *fakeRunner) archiveCalls(layout Layout) []Command {
	var out []Command
	for _, c := range f.Calls() {
		if len(c.Args) > 0 && c.Args[0] == layout.ArchiveTarget {
			out = append(out, c)
		}
	}
	return out
}

// testProject lays out a minimal native tree: the archive directory and a
// data directory holding two tables plus one file that must not match.
func testProject(t *testing.T) (string, Layout) {
	t.Helper()

	root := t.TempDir()
	layout := DefaultLayout()
	layout.ArrayIncludeDir = "/opt/numpy/include"
	layout.ArrayIncludeCommand = nil

	bbn := filepath.Join(root, layout.NativeDir, "bbn")
	require.NoError(t, os.MkdirAll(bbn, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, layout.NativeDir, "include"), 0o755))
	for _, name := range []string{"sBBN.dat", "sBBN_2017.dat", "README"} {
		require.NoError(t, os.WriteFile(filepath.Join(bbn, name), []byte(name), 0o644))
	}

	return root, layout
}

// toolchain scripts a well-behaved make: the helper prints version, the
// archive target writes the archive into MDIR or the native tree.
func toolchain(t *testing.T, root string, layout Layout, version string) *fakeRunner {
	t.Helper()

	helper := absPath(root, layout.VersionHelper)
	return &fakeRunner{script: func(cmd Command) (*ProcessResult, error) {
		switch {
		case cmd.Name == helper:
			return &ProcessResult{Stdout: []byte(version), Output: []byte(version)}, nil
		case len(cmd.Args) > 0 && cmd.Args[0] == layout.ArchiveTarget:
			dir := cmd.Dir
			for _, arg := range cmd.Args[1:] {
				if v, ok := strings.CutPrefix(arg, layout.Variables.Install+"="); ok {
					dir = v
				}
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(filepath.Join(dir, layout.ArchiveTarget), []byte("!<arch>\n"), 0o644); err != nil {
				return nil, err
			}
			return &ProcessResult{Output: []byte("ar rcs libclass.a\n")}, nil
		default:
			return &ProcessResult{}, nil
		}
	}}
}

func hasArg(cmd Command, prefix string) bool {
	for _, a := range cmd.Args {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}
