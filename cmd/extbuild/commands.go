package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	extbuild "github.com/contriboss/extbuild-go"
	"github.com/contriboss/extbuild-go/internal/logx"
)

// App carries what every command needs at run time.
type App struct {
	Context context.Context
	CLI     *CLI
	Stdout  io.Writer
	Stderr  io.Writer

	// Runner overrides the process runner; tests inject a fake.
	Runner extbuild.ProcessRunner
	// Env overrides the process environment; tests inject a map.
	Env extbuild.LookupEnv
}

// CLI definition & global flags.
type CLI struct {
	Root     string           `help:"Project root containing the native tree" default:"." type:"path"`
	Manifest string           `help:"Project manifest (default: <root>/extbuild.yaml when present)" type:"path"`
	LogLevel string           `name:"log-level" help:"Log level (trace|debug|info|warn|error|none)" env:"EXTBUILD_LOG_LEVEL" default:"info"`
	EnvFile  []string         `name:"env-file" help:"Extra .env files layered under the process environment"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build          BuildCmd          `cmd:"" help:"Build the native archive and hand the extension to packaging"`
	ProjectVersion ProjectVersionCmd `cmd:"" name:"project-version" help:"Build and run the version helper, print the version"`
	Config         ConfigCmd         `cmd:"" help:"Print the resolved configuration and build variables"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	logx.Configure(c.LogLevel)
	return nil
}

// OptionalFlag is a string flag that remembers whether it was given, so
// --ompflag= (explicitly empty) differs from leaving the flag out.
type OptionalFlag struct {
	extbuild.Optional
}

// Decode implements kong.MapperValue.
func (o *OptionalFlag) Decode(ctx *kong.DecodeContext) error {
	var value string
	if err := ctx.Scan.PopValueInto("value", &value); err != nil {
		return err
	}
	o.Optional = extbuild.Some(value)
	return nil
}

// OptionFlags is the option surface shared by build and config.
type OptionFlags struct {
	OMPFlag    OptionalFlag `name:"ompflag" placeholder:"FLAG" help:"OpenMP compiler flag; empty disables OpenMP (env OMPFLAG)"`
	OMPLib     OptionalFlag `name:"omplib" placeholder:"LIB" help:"OpenMP runtime library to link (env OMPLIB)"`
	InstallDir OptionalFlag `name:"install-dir" placeholder:"DIR" help:"Output directory for the archive (env EXTBUILD_INSTALL_DIR)"`
	WorkDir    OptionalFlag `name:"work-dir" placeholder:"DIR" help:"Intermediate object directory (env EXTBUILD_WORK_DIR)"`
	Make       string       `name:"make" help:"Build tool program (default: $MAKE or make)"`
}

// Options converts the flags to library options.
func (f *OptionFlags) Options() extbuild.Options {
	return extbuild.Options{
		ParallelFlag: f.OMPFlag.Optional,
		ParallelLib:  f.OMPLib.Optional,
		InstallDir:   f.InstallDir.Optional,
		WorkDir:      f.WorkDir.Optional,
	}
}

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	OptionFlags `embed:""`

	Out               string       `short:"o" help:"Package manifest output (.yaml, .yml, .json, or - for stdout)" default:"-"`
	StageDir          string       `name:"stage-dir" help:"Copy data files into this directory" type:"path"`
	NumpyInclude      OptionalFlag `name:"numpy-include" placeholder:"DIR" help:"Array runtime include dir (env NUMPY_INCLUDE; default: probe)"`
	MetricsFile       string       `name:"metrics-file" help:"Write stage metrics in Prometheus text format" type:"path"`
	ConcurrentHelpers bool         `name:"concurrent-helpers" help:"Run the version helper and the native build concurrently"`
	NoPreflight       bool         `name:"no-preflight" help:"Skip the make/compiler availability check"`
}

func (b *BuildCmd) Run(app *App) error {
	root, layout, env, err := app.project()
	if err != nil {
		return err
	}

	include, err := extbuild.ResolveArrayInclude(app.Context, app.runner(), layout, b.NumpyInclude.Optional, env)
	if err != nil {
		return err
	}
	layout.ArrayIncludeDir = include

	p := extbuild.NewPipeline(layout, root)
	p.Runner = app.runner()
	p.Logger = logx.Log
	p.MakeProgram = b.Make
	p.Preflight = !b.NoPreflight
	p.ConcurrentHelpers = b.ConcurrentHelpers
	p.Packager = &extbuild.ManifestPackager{
		Path:     b.Out,
		Root:     root,
		StageDir: b.StageDir,
		Stdout:   app.Stdout,
	}
	if b.MetricsFile != "" {
		p.Metrics = extbuild.NewMetrics()
	}

	outcome, runErr := p.Run(app.Context, b.Options(), env)
	if err := p.Metrics.WriteTextfile(b.MetricsFile); err != nil {
		p.Logger.Warn().Err(err).Str("path", b.MetricsFile).Msg("write metrics")
	}
	if runErr != nil {
		return runErr
	}

	p.Logger.Info().
		Str("run_id", outcome.RunID).
		Str("version", outcome.Version.String()).
		Str("manifest", b.Out).
		Msg("done")
	return nil
}

// ProjectVersionCmd implements the 'project-version' command.
type ProjectVersionCmd struct {
	Make string `name:"make" help:"Build tool program (default: $MAKE or make)"`
}

func (v *ProjectVersionCmd) Run(app *App) error {
	root, layout, _, err := app.project()
	if err != nil {
		return err
	}

	resolver := &extbuild.VersionResolver{
		Layout:      layout,
		Root:        root,
		Runner:      app.runner(),
		MakeProgram: v.Make,
	}
	ver, err := resolver.Resolve(app.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.Stdout, ver)
	return err
}

// ConfigCmd implements the 'config' command.
type ConfigCmd struct {
	OptionFlags `embed:""`
}

type configView struct {
	ParallelFlag string            `yaml:"ompflag"`
	ParallelLib  string            `yaml:"omplib"`
	InstallDir   string            `yaml:"install_dir,omitempty"`
	WorkDir      string            `yaml:"work_dir,omitempty"`
	Variables    map[string]string `yaml:"variables"`
	Command      string            `yaml:"command"`
	Dir          string            `yaml:"dir"`
}

func (c *ConfigCmd) Run(app *App) error {
	root, layout, env, err := app.project()
	if err != nil {
		return err
	}

	cfg := extbuild.ResolveOptions(c.Options(), env)
	builder := &extbuild.NativeBuilder{Layout: layout, Root: root, MakeProgram: c.Make}
	cmd := builder.Command(cfg)

	view := configView{
		ParallelFlag: cfg.ParallelFlag.String(),
		ParallelLib:  cfg.ParallelLib,
		InstallDir:   cfg.InstallDir,
		WorkDir:      cfg.WorkDir,
		Variables:    map[string]string{},
		Command:      cmd.String(),
		Dir:          cmd.Dir,
	}
	for _, v := range builder.Variables(cfg) {
		view.Variables[v.Name] = v.Value
	}

	enc := yaml.NewEncoder(app.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return err
	}
	return enc.Close()
}

// project resolves the root, loads the layout and builds the environment
// lookup: process environment first, then .env files.
func (a *App) project() (string, extbuild.Layout, extbuild.LookupEnv, error) {
	root, err := filepath.Abs(a.CLI.Root)
	if err != nil {
		return "", extbuild.Layout{}, nil, fmt.Errorf("resolve root: %w", err)
	}

	var layout extbuild.Layout
	if a.CLI.Manifest != "" {
		layout, err = extbuild.LoadLayout(a.CLI.Manifest)
	} else {
		layout, err = extbuild.LoadLayoutFrom(root)
	}
	if err != nil {
		return "", extbuild.Layout{}, nil, err
	}

	dotenv, err := loadDotEnv(root, a.CLI.EnvFile)
	if err != nil {
		return "", extbuild.Layout{}, nil, err
	}

	process := a.Env
	if process == nil {
		process = extbuild.OSEnv
	}
	return root, layout, extbuild.LayeredEnv(process, extbuild.MapEnv(dotenv)), nil
}

// loadDotEnv reads <root>/.env when present plus every explicit file.
// Explicit files must exist; later files override earlier ones.
func loadDotEnv(root string, explicit []string) (map[string]string, error) {
	var files []string
	if def := filepath.Join(root, ".env"); fileExists(def) {
		files = append(files, def)
	}
	for _, f := range explicit {
		if !fileExists(f) {
			return nil, fmt.Errorf("env file %s: %w", f, os.ErrNotExist)
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, nil
	}

	values, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return values, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (a *App) runner() extbuild.ProcessRunner {
	if a.Runner != nil {
		return a.Runner
	}
	return &extbuild.ExecRunner{Stream: logWriter{}}
}

// logWriter forwards tool output to the debug log.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logx.Log.Debug().Str("stream", "tool").Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
