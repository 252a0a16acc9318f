package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	extbuild "github.com/contriboss/extbuild-go"
	"github.com/contriboss/extbuild-go/internal/logx"
	"github.com/contriboss/extbuild-go/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], &App{Stdout: os.Stdout, Stderr: os.Stderr})
	stop()
	os.Exit(code)
}

// run parses args, executes the selected command with app and returns the
// process exit code. Stage failures keep the failing tool's exit status.
func run(ctx context.Context, args []string, app *App) int {
	var cli CLI
	exitCode := -1

	parser, err := kong.New(&cli,
		kong.Name("extbuild"),
		kong.Description("Build a native extension against a make-built static library."),
		kong.Vars{"version": version.String()},
		kong.Writers(app.Stdout, app.Stderr),
		kong.Exit(func(code int) { exitCode = code }),
	)
	if err != nil {
		logx.Log.Error().Err(err).Msg("CLI definition")
		return 2
	}

	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		// --help or --version
		return exitCode
	}
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	app.Context = ctx
	app.CLI = &cli
	if err := kctx.Run(app); err != nil {
		logx.Log.Error().Msg(err.Error())
		// kong wraps the command's error; keep the tool's exit status
		var se *extbuild.StageError
		if errors.As(err, &se) {
			return se.ExitStatus()
		}
		return 1
	}
	return 0
}
