package extbuild

import (
	"context"
	"fmt"
	"strings"
)

// EnvArrayInclude overrides the numeric-array runtime header directory.
const EnvArrayInclude = "NUMPY_INCLUDE"

// ResolveArrayInclude determines the numeric-array runtime's include
// directory: the explicit option, then NUMPY_INCLUDE, then the trimmed
// stdout of the layout's probe command. An empty probe command resolves to "".
func ResolveArrayInclude(ctx context.Context, runner ProcessRunner, layout Layout, explicit Optional, env LookupEnv) (string, error) {
	if v, ok := explicit.Get(); ok {
		return v, nil
	}
	if env != nil {
		if v, ok := env(EnvArrayInclude); ok {
			return v, nil
		}
	}
	if len(layout.ArrayIncludeCommand) == 0 {
		return "", nil
	}
	if runner == nil {
		runner = &ExecRunner{}
	}

	cmd := Command{Name: layout.ArrayIncludeCommand[0], Args: layout.ArrayIncludeCommand[1:]}
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("probe array runtime include dir: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("probe array runtime include dir: %s: exit status %d\n%s", cmd, res.ExitCode, res.Output)
	}

	dir := strings.TrimSpace(string(res.Stdout))
	if dir == "" {
		return "", fmt.Errorf("probe array runtime include dir: %s printed nothing", cmd)
	}
	return dir, nil
}
