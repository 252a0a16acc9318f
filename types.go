package extbuild

import "fmt"

// FlagMode is the state of the parallelization compiler flag.
//
// The three states must never collapse into a boolean:
//   - FlagDefault: nothing was configured, the native tree's default applies
//   - FlagDisabled: explicitly configured as empty, parallelization is off
//   - FlagForced: explicitly configured with a literal compiler flag
type FlagMode int

const (
	FlagDefault FlagMode = iota
	FlagDisabled
	FlagForced
)

// String returns the lowercase mode name used in logs.
func (m FlagMode) String() string {
	switch m {
	case FlagDefault:
		return "default"
	case FlagDisabled:
		return "disabled"
	case FlagForced:
		return "forced"
	default:
		return fmt.Sprintf("FlagMode(%d)", int(m))
	}
}

// ParallelFlag is the tri-state parallelization (OpenMP) compiler flag.
//
// The zero value is FlagDefault.
type ParallelFlag struct {
	mode  FlagMode
	value string
}

// DefaultFlag defers to the native tree's own default flag.
func DefaultFlag() ParallelFlag {
	return ParallelFlag{mode: FlagDefault}
}

// DisabledFlag turns parallelization off entirely.
func DisabledFlag() ParallelFlag {
	return ParallelFlag{mode: FlagDisabled}
}

// ForcedFlag forces a literal compiler flag. An empty value is the
// disabled state, so ForcedFlag("") == DisabledFlag().
func ForcedFlag(value string) ParallelFlag {
	if value == "" {
		return DisabledFlag()
	}
	return ParallelFlag{mode: FlagForced, value: value}
}

// Mode reports which of the three states the flag is in.
func (f ParallelFlag) Mode() FlagMode { return f.mode }

// Value returns the forced flag, or "" for the other modes.
func (f ParallelFlag) Value() string { return f.value }

// Enabled reports whether parallelization args are added at all.
func (f ParallelFlag) Enabled() bool { return f.mode != FlagDisabled }

// Effective returns the flag to use when enabled: the forced value, or
// fallback when the flag is in its default state. Disabled yields "".
func (f ParallelFlag) Effective(fallback string) string {
	switch f.mode {
	case FlagForced:
		return f.value
	case FlagDefault:
		return fallback
	default:
		return ""
	}
}

func (f ParallelFlag) String() string {
	if f.mode == FlagForced {
		return fmt.Sprintf("forced(%s)", f.value)
	}
	return f.mode.String()
}

// BuildConfiguration is the normalized result of option resolution.
//
// It is constructed once per run and treated as read-only afterwards.
type BuildConfiguration struct {
	ParallelFlag ParallelFlag // tri-state compiler flag
	ParallelLib  string       // link-time parallelization library name
	InstallDir   string       // output directory override, "" = native tree
	WorkDir      string       // intermediate object directory override, "" = native default
}

// ExtensionDescriptor describes the single compiled extension module handed
// to the packaging pipeline.
//
// Ordered fields keep their declaration order; IncludeDirs and LibraryDirs are
// sets and are de-duplicated while keeping first occurrence order, so the same
// configuration always yields a field-for-field identical descriptor.
type ExtensionDescriptor struct {
	Name             string   `json:"name" yaml:"name"`
	Sources          []string `json:"sources" yaml:"sources"`
	IncludeDirs      []string `json:"include_dirs" yaml:"include_dirs"`
	Libraries        []string `json:"libraries" yaml:"libraries"`
	LibraryDirs      []string `json:"library_dirs" yaml:"library_dirs"`
	ExtraCompileArgs []string `json:"extra_compile_args" yaml:"extra_compile_args"`
	ExtraLinkArgs    []string `json:"extra_link_args" yaml:"extra_link_args"`
}

// VersionString is the version reported by the version helper, resolved once
// per run and immutable afterwards.
type VersionString string

func (v VersionString) String() string { return string(v) }

// BuildArtifact locates the static archive produced by the native build.
type BuildArtifact struct {
	Path    string // full path to the archive
	Dir     string // directory holding the archive, used as a library search dir
	Library string // link name of the archive (libclass.a -> class)
}
