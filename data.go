package extbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DataFiles is a DataMapping resolved against a project tree.
type DataFiles struct {
	Package string   `json:"package" yaml:"package"`
	Files   []string `json:"files" yaml:"files"` // paths relative to the project root
}

// Source returns the physical directory the mapping points at.
func (m DataMapping) Source(root, nativeDir string) string {
	return resolvePath(resolvePath(root, nativeDir), m.Dir)
}

// IsZero reports whether no data mapping is declared.
func (m DataMapping) IsZero() bool {
	return m.Package == "" && m.Dir == ""
}

// Resolve lists the files matching the mapping's pattern, sorted and
// relative to root. A missing directory yields no files.
func (m DataMapping) Resolve(root, nativeDir string) (DataFiles, error) {
	out := DataFiles{Package: m.Package}
	if m.IsZero() {
		return out, nil
	}

	pattern := m.Pattern
	if pattern == "" {
		pattern = "*"
	}

	matches, err := filepath.Glob(filepath.Join(m.Source(root, nativeDir), pattern))
	if err != nil {
		return out, fmt.Errorf("failed to glob pattern %s for %s: %w", pattern, m.Package, err)
	}
	sort.Strings(matches)

	for _, match := range matches {
		if info, err := os.Stat(match); err != nil || !info.Mode().IsRegular() {
			continue
		}
		rel := match
		if root != "" {
			if r, err := filepath.Rel(root, match); err == nil {
				rel = r
			}
		}
		out.Files = append(out.Files, filepath.ToSlash(rel))
	}

	return out, nil
}

// StageDataFiles copies resolved data files into destDir/<package path>/ and
// returns the staged paths relative to destDir.
func StageDataFiles(root, destDir string, data []DataFiles) ([]string, error) {
	var staged []string

	for _, df := range data {
		pkgDir := filepath.FromSlash(df.Package)
		for _, rel := range df.Files {
			src := resolvePath(root, filepath.FromSlash(rel))
			dest := filepath.Join(destDir, pkgDir, filepath.Base(src))

			if err := copyFile(src, dest); err != nil {
				return staged, fmt.Errorf("stage %s: %w", rel, err)
			}
			staged = append(staged, filepath.ToSlash(filepath.Join(pkgDir, filepath.Base(src))))
		}
	}

	return staged, nil
}
