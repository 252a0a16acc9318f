package extbuild

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// State is a step of the build pipeline.
type State int

const (
	StateInit State = iota
	StateOptionsResolved
	StateVersionResolved
	StateNativeArtifactBuilt
	StateDescriptorAssembled
	StateHandedOff
	StateAborted
)

var stateNames = map[State]string{
	StateInit:                "init",
	StateOptionsResolved:     "options_resolved",
	StateVersionResolved:     "version_resolved",
	StateNativeArtifactBuilt: "native_artifact_built",
	StateDescriptorAssembled: "descriptor_assembled",
	StateHandedOff:           "handed_off",
	StateAborted:             "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateHandedOff || s == StateAborted
}

// Outcome is everything a pipeline run produced, up to the state it reached.
type Outcome struct {
	RunID      string
	State      State
	Trace      []State // every state entered, in order, Init first
	Config     BuildConfiguration
	Version    VersionString
	Artifact   *BuildArtifact
	Descriptor *ExtensionDescriptor
	Data       []DataFiles
	Err        error // the failure that moved the run to StateAborted
}

// Pipeline drives one build invocation:
//
//	Init → OptionsResolved → VersionResolved → NativeArtifactBuilt
//	     → DescriptorAssembled → HandedOff
//
// Any failure moves the run straight to Aborted; no stage is retried.
// A Pipeline is configured once and may be Run any number of times, but runs
// against the same native tree must not overlap.
type Pipeline struct {
	Layout   Layout
	Root     string
	Runner   ProcessRunner
	Packager Packager // nil skips the hand-off; the run still ends HandedOff
	Logger   zerolog.Logger
	Metrics  *Metrics // nil disables metrics

	MakeProgram string

	// Preflight checks for make and a C compiler before the native build.
	Preflight bool

	// ConcurrentHelpers runs the version helper and the native build at the
	// same time. They share no inputs; the first failure cancels the other.
	ConcurrentHelpers bool
}

// NewPipeline returns a pipeline using the host toolchain, preflight
// enabled and logging disabled.
func NewPipeline(layout Layout, root string) *Pipeline {
	return &Pipeline{
		Layout:    layout,
		Root:      root,
		Runner:    &ExecRunner{},
		Logger:    zerolog.Nop(),
		Preflight: true,
	}
}

// NativeBuilder returns the builder the pipeline uses for the archive.
func (p *Pipeline) NativeBuilder() *NativeBuilder {
	return &NativeBuilder{
		Layout:      p.Layout,
		Root:        p.Root,
		Runner:      p.Runner,
		MakeProgram: p.MakeProgram,
	}
}

// VersionResolver returns the resolver the pipeline uses for the version.
func (p *Pipeline) VersionResolver() *VersionResolver {
	return &VersionResolver{
		Layout:      p.Layout,
		Root:        p.Root,
		Runner:      p.Runner,
		MakeProgram: p.MakeProgram,
	}
}

// run tracks one invocation's transitions.
type run struct {
	out     *Outcome
	log     zerolog.Logger
	metrics *Metrics
	mark    time.Time
}

func (r *run) advance(s State) {
	elapsed := time.Since(r.mark)
	r.mark = time.Now()
	r.out.State = s
	r.out.Trace = append(r.out.Trace, s)
	r.metrics.ObserveStage(s, elapsed)
	r.log.Debug().
		Str("stage", s.String()).
		Dur("elapsed", elapsed).
		Msg("stage complete")
}

func (r *run) abort(err error) (*Outcome, error) {
	r.out.State = StateAborted
	r.out.Trace = append(r.out.Trace, StateAborted)
	r.out.Err = err
	r.metrics.ObserveRun(StateAborted)

	ev := r.log.Error().Err(err)
	var se *StageError
	if errors.As(err, &se) {
		ev = ev.Str("stage", se.Stage.String()).Int("exit_code", se.ExitCode)
	}
	ev.Msg("build aborted")
	return r.out, err
}

// Run executes the pipeline. On failure the returned Outcome is in
// StateAborted and the error is the stage's *StageError, unchanged.
func (p *Pipeline) Run(ctx context.Context, opts Options, env LookupEnv) (*Outcome, error) {
	id := uuid.NewString()
	r := &run{
		out:     &Outcome{RunID: id, State: StateInit, Trace: []State{StateInit}},
		log:     p.Logger.With().Str("run_id", id).Logger(),
		metrics: p.Metrics,
		mark:    time.Now(),
	}

	// Step 1: options
	cfg := ResolveOptions(opts, env)
	r.out.Config = cfg
	r.log.Info().
		Str("ompflag", cfg.ParallelFlag.String()).
		Str("omplib", cfg.ParallelLib).
		Str("install_dir", cfg.InstallDir).
		Str("work_dir", cfg.WorkDir).
		Msg("options resolved")
	r.advance(StateOptionsResolved)

	// Step 2 and 3: version helper and native archive
	var err error
	if p.ConcurrentHelpers {
		err = p.runHelpersConcurrently(ctx, r, cfg)
	} else {
		err = p.runHelpersSequentially(ctx, r, cfg)
	}
	if err != nil {
		return r.abort(err)
	}

	// Step 4: descriptor
	desc := AssembleExtension(p.Layout, p.Root, cfg, *r.out.Artifact)
	r.out.Descriptor = &desc
	r.log.Info().
		Strs("extra_compile_args", desc.ExtraCompileArgs).
		Strs("extra_link_args", desc.ExtraLinkArgs).
		Msg("descriptor assembled")
	r.advance(StateDescriptorAssembled)

	// Step 5: hand-off
	if err := p.handOff(ctx, r); err != nil {
		return r.abort(err)
	}
	r.advance(StateHandedOff)
	r.metrics.ObserveRun(StateHandedOff)
	r.log.Info().Str("version", r.out.Version.String()).Msg("build handed off")

	return r.out, nil
}

func (p *Pipeline) runHelpersSequentially(ctx context.Context, r *run, cfg BuildConfiguration) error {
	version, err := p.VersionResolver().Resolve(ctx)
	if err != nil {
		return err
	}
	r.out.Version = version
	r.log.Info().Str("version", version.String()).Msg("version resolved")
	r.advance(StateVersionResolved)

	artifact, err := p.buildNative(ctx, cfg)
	if err != nil {
		return err
	}
	r.out.Artifact = artifact
	r.log.Info().Str("archive", artifact.Path).Msg("native archive built")
	r.advance(StateNativeArtifactBuilt)
	return nil
}

func (p *Pipeline) runHelpersConcurrently(ctx context.Context, r *run, cfg BuildConfiguration) error {
	var (
		version  VersionString
		artifact *BuildArtifact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := p.VersionResolver().Resolve(gctx)
		version = v
		return err
	})
	g.Go(func() error {
		a, err := p.buildNative(gctx, cfg)
		artifact = a
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	r.out.Version = version
	r.log.Info().Str("version", version.String()).Msg("version resolved")
	r.advance(StateVersionResolved)
	r.out.Artifact = artifact
	r.log.Info().Str("archive", artifact.Path).Msg("native archive built")
	r.advance(StateNativeArtifactBuilt)
	return nil
}

func (p *Pipeline) buildNative(ctx context.Context, cfg BuildConfiguration) (*BuildArtifact, error) {
	builder := p.NativeBuilder()
	if p.Preflight {
		if err := builder.CheckTools(); err != nil {
			return nil, &StageError{
				Stage: StateNativeArtifactBuilt,
				Err:   fmt.Errorf("%w: %w", ErrToolsMissing, err),
			}
		}
	}
	return builder.Build(ctx, cfg)
}

func (p *Pipeline) handOff(ctx context.Context, r *run) error {
	var data []DataFiles
	if !p.Layout.Data.IsZero() {
		df, err := p.Layout.Data.Resolve(p.Root, p.Layout.NativeDir)
		if err != nil {
			return &StageError{Stage: StateHandedOff, Err: fmt.Errorf("%w: %w", ErrHandOff, err)}
		}
		data = append(data, df)
	}
	r.out.Data = data

	if p.Packager == nil {
		return nil
	}

	pkg := &Package{
		Name:        p.Layout.Name,
		Version:     r.out.Version,
		Description: p.Layout.Description,
		URL:         p.Layout.URL,
		Extension:   *r.out.Descriptor,
		Data:        data,
	}
	if err := p.Packager.Package(ctx, pkg); err != nil {
		return &StageError{Stage: StateHandedOff, Err: fmt.Errorf("%w: %w", ErrHandOff, err)}
	}
	return nil
}
