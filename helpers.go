package extbuild

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel causes carried by StageError. Match them with errors.Is.
var (
	ErrVersionTool     = errors.New("version helper failed")
	ErrEmptyVersion    = errors.New("version helper printed no version")
	ErrNativeBuild     = errors.New("native build failed")
	ErrArtifactMissing = errors.New("static archive not found after build")
	ErrToolsMissing    = errors.New("required build tools missing")
	ErrHandOff         = errors.New("packaging hand-off failed")
)

// StageError is a fatal pipeline failure. It records the stage that failed,
// the command involved and the tool's captured output verbatim.
//
// # Format
//
// With output:
//
//	native build failed: make libclass.a OMPFLAG=-fopenmp: exit status 2
//
//	Build output:
//	gcc: error: unrecognized command-line option '-fopenmp'
//
// Without output only the first line is produced.
type StageError struct {
	Stage    State   // stage that was being entered when the failure occurred
	Command  Command // zero when the failure is not tied to a process
	ExitCode int     // tool exit status, -1 if it never ran, 0 if not a process failure
	Output   string  // captured tool output, verbatim
	Err      error   // classification sentinel or underlying error
}

func (e *StageError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Command.Name != "" {
		fmt.Fprintf(&b, ": %s", e.Command)
		if e.ExitCode > 0 {
			fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
		}
	}
	if e.Output != "" {
		fmt.Fprintf(&b, "\n\nBuild output:\n%s", e.Output)
	}
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }

// ExitStatus lets sh.ExitStatus and the CLI derive a process exit code.
// It is never 0 for a failed stage.
func (e *StageError) ExitStatus() int {
	if e.ExitCode > 0 {
		return e.ExitCode
	}
	return 1
}

// stageFailure builds a StageError for a process that ran (or tried to).
// When cause is non-nil it is joined with the sentinel so both match.
func stageFailure(stage State, sentinel error, cmd Command, res *ProcessResult, cause error) *StageError {
	e := &StageError{Stage: stage, Command: cmd, Err: sentinel}
	if res != nil {
		e.ExitCode = res.ExitCode
		e.Output = string(res.Output)
	}
	if cause != nil {
		e.Err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return e
}

// uniqueStrings drops empty and repeated values, keeping first occurrences.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	var result []string

	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result
}

// copyFile copies srcPath to destPath, creating parent directories and
// keeping the source mode.
func copyFile(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return mkErr
	}

	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// resolvePath joins rel onto root unless rel is already absolute.
func resolvePath(root, rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, rel)
}

// absPath is resolvePath made absolute, for values handed to a tool that
// runs in a different working directory.
func absPath(root, rel string) string {
	path := resolvePath(root, rel)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
