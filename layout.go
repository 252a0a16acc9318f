package extbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultManifestName is the project manifest looked up in the project root.
const DefaultManifestName = "extbuild.yaml"

// Variables names the build variables passed to the external build tool.
type Variables struct {
	Install  string `yaml:"install"`
	Work     string `yaml:"work"`
	Parallel string `yaml:"parallel"`
}

// DataMapping declares one auxiliary package path staged alongside the
// compiled extension. Dir is relative to the native source tree.
type DataMapping struct {
	Package string `yaml:"package" json:"package"`
	Dir     string `yaml:"dir" json:"dir"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Layout holds the fixed, non-configurable parts of a project: where the
// native tree lives, what it builds, and what the extension is made of.
//
// Paths are relative to the project root unless noted otherwise.
type Layout struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`

	NativeDir     string   `yaml:"native_dir"`
	ArchiveTarget string   `yaml:"archive_target"`
	Sources       []string `yaml:"sources"`
	IncludeDirs   []string `yaml:"include_dirs"`
	MathLibrary   string   `yaml:"math_library"`

	// ArrayIncludeDir is the numeric-array runtime header directory. It is
	// usually resolved at run time, see ResolveArrayInclude.
	ArrayIncludeDir     string   `yaml:"array_include_dir"`
	ArrayIncludeCommand []string `yaml:"array_include_command"`

	Variables           Variables `yaml:"variables"`
	DefaultParallelFlag string    `yaml:"default_parallel_flag"`

	VersionTarget string `yaml:"version_target"`
	VersionHelper string `yaml:"version_helper"`

	Data DataMapping `yaml:"data"`
}

// DefaultLayout returns the layout of the reference project: the CLASS
// Boltzmann solver wrapped as the classy extension.
func DefaultLayout() Layout {
	return Layout{
		Name:          "classy",
		Description:   "Python interface to the Cosmological Boltzmann code CLASS",
		URL:           "http://www.class-code.net",
		NativeDir:     "class_public",
		ArchiveTarget: "libclass.a",
		Sources:       []string{"class_public/python/classy.pyx"},
		IncludeDirs:   []string{"class_public/include"},
		MathLibrary:   "m",
		ArrayIncludeCommand: []string{
			"python3", "-c", "import numpy; print(numpy.get_include())",
		},
		Variables: Variables{
			Install:  "MDIR",
			Work:     "WRKDIR",
			Parallel: "OMPFLAG",
		},
		DefaultParallelFlag: "-fopenmp",
		VersionHelper:       "version",
		Data: DataMapping{
			Package: "bbn",
			Dir:     "bbn",
			Pattern: "*.dat",
		},
	}
}

// LoadLayout reads a YAML manifest on top of DefaultLayout. Fields absent
// from the manifest keep their default values; unknown fields are rejected.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()

	data, err := os.ReadFile(path)
	if err != nil {
		return layout, fmt.Errorf("read manifest %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&layout); err != nil && !errors.Is(err, io.EOF) {
		return layout, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if err := layout.Validate(); err != nil {
		return layout, fmt.Errorf("manifest %s: %w", path, err)
	}
	return layout, nil
}

// LoadLayoutFrom loads <root>/extbuild.yaml when present and falls back to
// DefaultLayout otherwise.
func LoadLayoutFrom(root string) (Layout, error) {
	path := filepath.Join(root, DefaultManifestName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultLayout(), nil
	}
	return LoadLayout(path)
}

// Validate checks the fields every run depends on.
func (l Layout) Validate() error {
	var missing []string
	if l.Name == "" {
		missing = append(missing, "name")
	}
	if l.NativeDir == "" {
		missing = append(missing, "native_dir")
	}
	if l.ArchiveTarget == "" {
		missing = append(missing, "archive_target")
	}
	if len(l.Sources) == 0 {
		missing = append(missing, "sources")
	}
	if l.VersionHelper == "" {
		missing = append(missing, "version_helper")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LibraryName derives the link name from the archive target:
// libclass.a -> class.
func (l Layout) LibraryName() string {
	name := filepath.Base(l.ArchiveTarget)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.TrimPrefix(name, "lib")
}
