package extbuild

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package is what the pipeline hands to the packaging step: the declared
// package metadata, the single extension module and its data files.
type Package struct {
	Name        string              `json:"name" yaml:"name"`
	Version     VersionString       `json:"version" yaml:"version"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string              `json:"url,omitempty" yaml:"url,omitempty"`
	Extension   ExtensionDescriptor `json:"extension" yaml:"extension"`
	Data        []DataFiles         `json:"data,omitempty" yaml:"data,omitempty"`
}

// Packager receives the finished package declaration. The descriptor is not
// mutated after it is handed over.
type Packager interface {
	Package(ctx context.Context, pkg *Package) error
}

// PackagerFunc adapts a function to Packager.
type PackagerFunc func(ctx context.Context, pkg *Package) error

func (f PackagerFunc) Package(ctx context.Context, pkg *Package) error { return f(ctx, pkg) }

// ManifestEncoder serializes a Package in one manifest format.
type ManifestEncoder interface {
	// Name is the format name used in logs and errors, e.g. "YAML".
	Name() string

	// CanEncode reports whether the encoder handles the given output path.
	CanEncode(path string) bool

	Encode(w io.Writer, pkg *Package) error
}

// YAMLEncoder writes .yaml and .yml manifests.
type YAMLEncoder struct{}

func (YAMLEncoder) Name() string { return "YAML" }

func (YAMLEncoder) CanEncode(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func (YAMLEncoder) Encode(w io.Writer, pkg *Package) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(pkg); err != nil {
		return err
	}
	return enc.Close()
}

// JSONEncoder writes .json manifests.
type JSONEncoder struct{}

func (JSONEncoder) Name() string { return "JSON" }

func (JSONEncoder) CanEncode(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func (JSONEncoder) Encode(w io.Writer, pkg *Package) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pkg)
}

// EncoderFactory selects a ManifestEncoder by output path.
//
// Encoders are checked in registration order and the first one whose
// CanEncode returns true wins. Register all encoders before concurrent use.
type EncoderFactory struct {
	encoders []ManifestEncoder
}

// NewEncoderFactory creates a factory with YAML and JSON registered.
func NewEncoderFactory() *EncoderFactory {
	factory := &EncoderFactory{}
	factory.Register(YAMLEncoder{})
	factory.Register(JSONEncoder{})
	return factory
}

// Register adds an encoder to the factory.
func (f *EncoderFactory) Register(encoder ManifestEncoder) {
	f.encoders = append(f.encoders, encoder)
}

// EncoderFor returns the encoder for path. "-" (stdout) and "" use the
// first registered encoder.
func (f *EncoderFactory) EncoderFor(path string) (ManifestEncoder, error) {
	if len(f.encoders) == 0 {
		return nil, fmt.Errorf("no manifest encoders registered")
	}
	if path == "" || path == "-" {
		return f.encoders[0], nil
	}

	for _, encoder := range f.encoders {
		if encoder.CanEncode(path) {
			return encoder, nil
		}
	}

	return nil, fmt.Errorf("no manifest encoder for %s", filepath.Base(path))
}

// ListEncoders returns a copy of the registered encoders.
func (f *EncoderFactory) ListEncoders() []ManifestEncoder {
	return append([]ManifestEncoder{}, f.encoders...)
}

// ManifestPackager writes the package manifest for the packaging tool and,
// when StageDir is set, stages data files next to it.
type ManifestPackager struct {
	Path     string    // output file, "-" for Stdout
	Root     string    // project root, to locate data files
	StageDir string    // optional data staging directory
	Encoders *EncoderFactory
	Stdout   io.Writer // defaults to os.Stdout

	// Staged lists the data files copied by the last Package call, relative
	// to StageDir.
	Staged []string
}

// Package writes the manifest and stages data files.
func (m *ManifestPackager) Package(_ context.Context, pkg *Package) error {
	encoders := m.Encoders
	if encoders == nil {
		encoders = NewEncoderFactory()
	}
	encoder, err := encoders.EncoderFor(m.Path)
	if err != nil {
		return err
	}

	if m.StageDir != "" {
		staged, err := StageDataFiles(m.Root, m.StageDir, pkg.Data)
		if err != nil {
			return err
		}
		m.Staged = staged
	}

	if m.Path == "" || m.Path == "-" {
		out := m.Stdout
		if out == nil {
			out = os.Stdout
		}
		return encoder.Encode(out, pkg)
	}

	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(m.Path)
	if err != nil {
		return err
	}
	if err := encoder.Encode(f, pkg); err != nil {
		f.Close()
		return fmt.Errorf("encode %s manifest: %w", encoder.Name(), err)
	}
	return f.Close()
}
