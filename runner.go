package extbuild

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/magefile/mage/sh"
)

// Command describes one external process invocation.
type Command struct {
	Name string            // program to run, looked up in PATH when not a path
	Args []string          // arguments, build variables included as NAME=value
	Dir  string            // working directory, "" = current directory
	Env  map[string]string // extra environment on top of the process environment
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// ProcessResult is the outcome of a process that actually ran.
type ProcessResult struct {
	ExitCode int    // exit status, -1 if the process never started
	Stdout   []byte // standard output only
	Output   []byte // stdout and stderr interleaved in arrival order
}

// ProcessRunner runs external processes synchronously.
//
// It is the single seam between the pipeline and the host toolchain, so
// every stage can be exercised without make or a compiler installed.
//
// # Contract
//
// A process that starts and exits with a non-zero status is NOT an error:
// Run returns a ProcessResult carrying the exit code and the captured output,
// and the caller decides how to classify it. An error is returned only when
// the process could not be run at all (missing binary, bad working
// directory, context canceled before start); the result then has
// ExitCode -1 and whatever output was captured.
//
// # Example Implementation
//
//	type scriptedRunner struct{ out string }
//
//	func (r *scriptedRunner) Run(ctx context.Context, cmd Command) (*ProcessResult, error) {
//	    return &ProcessResult{Stdout: []byte(r.out), Output: []byte(r.out)}, nil
//	}
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the version helper and the
// native build may run at the same time.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (*ProcessResult, error)
}

// ExecRunner runs commands with os/exec, inheriting the process environment.
type ExecRunner struct {
	// Stream, when set, receives a copy of the combined output as it arrives.
	Stream io.Writer
}

// Run executes the command and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*ProcessResult, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	// Set environment variables
	cmd.Env = os.Environ()
	for key, value := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var stdout bytes.Buffer
	combined := &lockedBuffer{tee: r.Stream}
	cmd.Stdout = io.MultiWriter(&stdout, combined)
	cmd.Stderr = combined

	err := cmd.Run()
	result := &ProcessResult{
		ExitCode: sh.ExitStatus(err),
		Stdout:   stdout.Bytes(),
		Output:   combined.Bytes(),
	}

	if err != nil && !sh.CmdRan(err) {
		result.ExitCode = -1
		return result, fmt.Errorf("run %s: %w", c.Name, err)
	}
	return result, nil
}

// lockedBuffer serializes writes from the stdout and stderr copiers and
// mirrors them to tee in the same order.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	tee io.Writer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tee != nil {
		// a failing stream must not fail the build
		_, _ = b.tee.Write(p)
	}
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
