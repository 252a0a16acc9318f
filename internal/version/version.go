package version

// Version is the extbuild release. Set at build time:
// go build -ldflags "-X github.com/contriboss/extbuild-go/internal/version.Version=v0.3.0".
var Version = "dev"

// GitCommit is the source revision, set the same way.
var GitCommit = "unknown"

// String renders the version line printed by --version.
func String() string {
	return "extbuild " + Version + " (" + GitCommit + ")"
}
