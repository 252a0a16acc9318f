// Package extbuild drives the build of a native language extension that
// links against a static library produced by an external make-based tree.
//
// One build invocation runs a fixed pipeline:
//
//	Init → OptionsResolved → VersionResolved → NativeArtifactBuilt
//	     → DescriptorAssembled → HandedOff
//
// and stops in Aborted at the first failure. There are no retries; native
// toolchain failures are not transient.
//
// # Basic Usage
//
//	layout, err := extbuild.LoadLayoutFrom(root)
//	if err != nil {
//	    return err
//	}
//
//	p := extbuild.NewPipeline(layout, root)
//	p.Packager = &extbuild.ManifestPackager{Path: "dist/classy.yaml", Root: root}
//
//	opts := extbuild.Options{ParallelFlag: extbuild.Some("")} // disable OpenMP
//	outcome, err := p.Run(ctx, opts, extbuild.OSEnv)
//
// # Components
//
//	ResolveOptions      explicit options > environment > defaults
//	VersionResolver     make + ./version, stdout is the package version
//	NativeBuilder       make libclass.a MDIR=... WRKDIR=... OMPFLAG=...
//	AssembleExtension   sources, include/library dirs, OpenMP args
//	DataMapping         auxiliary data files staged next to the extension
//
// All external processes go through a ProcessRunner, so every stage can be
// tested without a toolchain installed.
//
// # The OpenMP flag
//
// The compiler flag is tri-state (see ParallelFlag): unset defers to the
// native tree's default flag, an explicit empty value disables OpenMP in
// both the native build and the extension, and any other value is forced
// everywhere.
package extbuild
