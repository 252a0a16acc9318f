package version

import "testing"

func TestVersionDefaults(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if GitCommit == "" {
		t.Error("GitCommit should be initialized")
	}
}

func TestString(t *testing.T) {
	got := String()
	want := "extbuild " + Version + " (" + GitCommit + ")"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
