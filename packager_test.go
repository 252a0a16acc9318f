package extbuild

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testPackage() *Package {
	return &Package{
		Name:    "classy",
		Version: "v3.2.1",
		Extension: ExtensionDescriptor{
			Name:             "classy",
			Sources:          []string{"class_public/python/classy.pyx"},
			IncludeDirs:      []string{"class_public/include"},
			Libraries:        []string{"class", "m"},
			LibraryDirs:      []string{"class_public"},
			ExtraCompileArgs: []string{"-fopenmp"},
			ExtraLinkArgs:    []string{"-lgomp"},
		},
		Data: []DataFiles{{Package: "bbn", Files: []string{"class_public/bbn/sBBN.dat"}}},
	}
}

func TestEncoderFactory(t *testing.T) {
	factory := NewEncoderFactory()
	require.Len(t, factory.ListEncoders(), 2)

	tests := []struct {
		path string
		want string
	}{
		{"dist/classy.yaml", "YAML"},
		{"dist/classy.YML", "YAML"},
		{"dist/classy.json", "JSON"},
		{"-", "YAML"},
		{"", "YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			enc, err := factory.EncoderFor(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, enc.Name())
		})
	}

	_, err := factory.EncoderFor("dist/classy.toml")
	assert.EqualError(t, err, "no manifest encoder for classy.toml")

	_, err = (&EncoderFactory{}).EncoderFor("-")
	assert.Error(t, err)
}

func TestManifestPackagerStdout(t *testing.T) {
	var out bytes.Buffer
	m := &ManifestPackager{Path: "-", Stdout: &out}

	require.NoError(t, m.Package(context.Background(), testPackage()))

	var decoded Package
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, *testPackage(), decoded)
	assert.Contains(t, out.String(), "extra_link_args:")
}

func TestManifestPackagerJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist", "classy.json")
	m := &ManifestPackager{Path: path}

	require.NoError(t, m.Package(context.Background(), testPackage()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, "v3.2.1", decoded["version"])
	assert.Contains(t, string(content), `"extra_compile_args": [`)
}

func TestManifestPackagerStagesData(t *testing.T) {
	root, layout := testProject(t)
	df, err := layout.Data.Resolve(root, layout.NativeDir)
	require.NoError(t, err)

	stage := t.TempDir()
	m := &ManifestPackager{Path: "-", Root: root, StageDir: stage, Stdout: &bytes.Buffer{}}
	pkg := testPackage()
	pkg.Data = []DataFiles{df}

	require.NoError(t, m.Package(context.Background(), pkg))
	assert.Equal(t, []string{"bbn/sBBN.dat", "bbn/sBBN_2017.dat"}, m.Staged)
	assert.FileExists(t, filepath.Join(stage, "bbn", "sBBN_2017.dat"))
}

func TestManifestPackagerUnknownFormat(t *testing.T) {
	m := &ManifestPackager{Path: filepath.Join(t.TempDir(), "classy.ini")}
	assert.Error(t, m.Package(context.Background(), testPackage()))
}
