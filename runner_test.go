package extbuild

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireShell(t)

	var stream bytes.Buffer
	r := &ExecRunner{Stream: &stream}
	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", `echo "$GREETING"; echo oops >&2`},
		Env:  map[string]string{"GREETING": "v3.2.1"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "v3.2.1\n", string(res.Stdout))
	assert.Contains(t, string(res.Output), "v3.2.1\n")
	assert.Contains(t, string(res.Output), "oops\n")
	assert.Equal(t, string(res.Output), stream.String())
}

func TestExecRunnerNonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)

	res, err := (&ExecRunner{}).Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo broken >&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "broken\n", string(res.Output))
	assert.Empty(t, res.Stdout)
}

func TestExecRunnerWorkingDirectory(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	res, err := (&ExecRunner{}).Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd -P"}, Dir: dir})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Stdout)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	res, err := (&ExecRunner{}).Run(context.Background(), Command{Name: "extbuild-no-such-tool"})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, err.Error(), "run extbuild-no-such-tool")
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "make", Command{Name: "make"}.String())
	assert.Equal(t, "make libclass.a OMPFLAG=-fopenmp", Command{Name: "make", Args: []string{"libclass.a", "OMPFLAG=-fopenmp"}}.String())
}
