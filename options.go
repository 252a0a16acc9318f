package extbuild

import (
	"os"
	"runtime"
)

// Environment variables consulted by ResolveOptions.
const (
	EnvParallelFlag = "OMPFLAG"
	EnvParallelLib  = "OMPLIB"
	EnvInstallDir   = "EXTBUILD_INSTALL_DIR"
	EnvWorkDir      = "EXTBUILD_WORK_DIR"
)

// Optional is a string option that remembers whether it was given at all.
// An explicitly empty value is distinct from an absent one.
type Optional struct {
	value string
	set   bool
}

// Some returns an Optional holding value, which may be empty.
func Some(value string) Optional {
	return Optional{value: value, set: true}
}

// None returns an absent Optional.
func None() Optional {
	return Optional{}
}

// Get returns the value and whether it was set.
func (o Optional) Get() (string, bool) { return o.value, o.set }

// IsSet reports whether the option was given.
func (o Optional) IsSet() bool { return o.set }

// Options are the command-line style options of a build invocation.
type Options struct {
	ParallelFlag Optional // --ompflag
	ParallelLib  Optional // --omplib
	InstallDir   Optional
	WorkDir      Optional
}

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// OSEnv is the process environment.
var OSEnv LookupEnv = os.LookupEnv

// MapEnv wraps a map as a LookupEnv.
func MapEnv(values map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// LayeredEnv consults each lookup in order and returns the first hit.
// Nil lookups are skipped.
func LayeredEnv(lookups ...LookupEnv) LookupEnv {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if v, ok := lookup(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

// DefaultParallelLib is the platform's standard OpenMP runtime library.
func DefaultParallelLib() string {
	if runtime.GOOS == "darwin" {
		return "omp"
	}
	return "gomp"
}

// ResolveOptions merges explicit options with environment overrides.
//
// Precedence per field: explicit option, then environment variable, then the
// built-in default. An environment variable that is present but empty counts
// as an explicit empty value. Resolution never fails and is pure apart from
// the lookups it is given; unknown variables are never consulted.
func ResolveOptions(opts Options, env LookupEnv) BuildConfiguration {
	if env == nil {
		env = MapEnv(nil)
	}

	pick := func(opt Optional, key string) (string, bool) {
		if v, ok := opt.Get(); ok {
			return v, true
		}
		return env(key)
	}

	cfg := BuildConfiguration{
		ParallelFlag: DefaultFlag(),
		ParallelLib:  DefaultParallelLib(),
	}

	if v, ok := pick(opts.ParallelFlag, EnvParallelFlag); ok {
		cfg.ParallelFlag = ForcedFlag(v)
	}
	if v, ok := pick(opts.ParallelLib, EnvParallelLib); ok && v != "" {
		cfg.ParallelLib = v
	}
	if v, ok := pick(opts.InstallDir, EnvInstallDir); ok {
		cfg.InstallDir = v
	}
	if v, ok := pick(opts.WorkDir, EnvWorkDir); ok {
		cfg.WorkDir = v
	}

	return cfg
}
