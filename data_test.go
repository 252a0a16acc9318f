package extbuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataMappingResolve(t *testing.T) {
	root, layout := testProject(t)

	df, err := layout.Data.Resolve(root, layout.NativeDir)
	require.NoError(t, err)

	assert.Equal(t, "bbn", df.Package)
	assert.Equal(t, []string{
		"class_public/bbn/sBBN.dat",
		"class_public/bbn/sBBN_2017.dat",
	}, df.Files)
}

func TestDataMappingMissingDirectory(t *testing.T) {
	m := DataMapping{Package: "bbn", Dir: "nope", Pattern: "*.dat"}

	df, err := m.Resolve(t.TempDir(), "class_public")
	require.NoError(t, err)
	assert.Empty(t, df.Files)
}

func TestDataMappingZero(t *testing.T) {
	assert.True(t, DataMapping{}.IsZero())
	assert.False(t, DefaultLayout().Data.IsZero())
	assert.Equal(t, "/src/class_public/bbn", DefaultLayout().Data.Source("/src", "class_public"))
}

func TestStageDataFiles(t *testing.T) {
	root, layout := testProject(t)
	df, err := layout.Data.Resolve(root, layout.NativeDir)
	require.NoError(t, err)

	dest := t.TempDir()
	staged, err := StageDataFiles(root, dest, []DataFiles{df})
	require.NoError(t, err)

	assert.Equal(t, []string{"bbn/sBBN.dat", "bbn/sBBN_2017.dat"}, staged)
	content, err := os.ReadFile(filepath.Join(dest, "bbn", "sBBN.dat"))
	require.NoError(t, err)
	assert.Equal(t, "sBBN.dat", string(content))
}

func TestStageDataFilesMissingSource(t *testing.T) {
	_, err := StageDataFiles(t.TempDir(), t.TempDir(), []DataFiles{{Package: "bbn", Files: []string{"gone.dat"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage gone.dat")
}
