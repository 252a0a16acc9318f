package extbuild

import "strings"

// AssembleExtension builds the extension descriptor from the layout, the
// resolved configuration and the archive the native build produced.
//
// It is pure: identical inputs always give a field-for-field identical
// descriptor. Parallelization args are added unless the flag is disabled:
// the compile flag is the forced value or the layout's default flag, and
// the link arg names the resolved parallelization library. A default state
// without a default flag adds neither.
func AssembleExtension(layout Layout, root string, cfg BuildConfiguration, artifact BuildArtifact) ExtensionDescriptor {
	sources := make([]string, 0, len(layout.Sources))
	for _, src := range layout.Sources {
		sources = append(sources, resolvePath(root, src))
	}

	includes := []string{resolvePath(root, layout.ArrayIncludeDir)}
	for _, dir := range layout.IncludeDirs {
		includes = append(includes, resolvePath(root, dir))
	}

	library := artifact.Library
	if library == "" {
		library = layout.LibraryName()
	}
	libraries := uniqueStrings([]string{library, layout.MathLibrary})

	desc := ExtensionDescriptor{
		Name:             layout.Name,
		Sources:          sources,
		IncludeDirs:      uniqueStrings(includes),
		Libraries:        libraries,
		LibraryDirs:      uniqueStrings([]string{artifact.Dir}),
		ExtraCompileArgs: []string{},
		ExtraLinkArgs:    []string{},
	}

	// no flag means no parallel runtime to link either
	if flag := cfg.ParallelFlag.Effective(layout.DefaultParallelFlag); flag != "" {
		desc.ExtraCompileArgs = append(desc.ExtraCompileArgs, flag)
		if cfg.ParallelLib != "" {
			desc.ExtraLinkArgs = append(desc.ExtraLinkArgs, linkArg(cfg.ParallelLib))
		}
	}

	return desc
}

// linkArg renders a library name as a linker argument: gomp -> -lgomp.
// Values that already look like flags are passed through.
func linkArg(lib string) string {
	if strings.HasPrefix(lib, "-") {
		return lib
	}
	return "-l" + lib
}
