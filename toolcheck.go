package extbuild

import (
	"fmt"
	"os/exec"
	"strings"
)

// ToolChecker is implemented by stages that shell out to host tools and can
// verify them up front, so a missing compiler fails before any process runs.
//
// # Consumer Usage
//
//	if checker, ok := stage.(ToolChecker); ok {
//	    if err := checker.CheckTools(); err != nil {
//	        return fmt.Errorf("build tools missing: %w", err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools lists the host tools the stage invokes.
	RequiredTools() []ToolRequirement

	// CheckTools returns nil when every non-optional requirement is on PATH.
	CheckTools() error
}

// ToolRequirement describes one host tool dependency.
//
// Alternatives cover platform differences (gmake on the BSDs, nmake with
// MSVC, clang on macOS): any one of Name or Alternatives satisfies it.
//
//	ToolRequirement{
//	    Name:         "cc",
//	    Alternatives: []string{"gcc", "clang"},
//	    Purpose:      "C compiler",
//	}
type ToolRequirement struct {
	Name         string
	Alternatives []string
	Optional     bool
	Purpose      string
}

// CheckToolAvailable returns an error when tool is not on PATH.
func CheckToolAvailable(tool string) error {
	_, err := exec.LookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies every requirement and reports all missing
// required tools in one error.
//
// Single missing tool:
//
//	make (build tool) not found in PATH
//
// Multiple missing tools:
//
//	missing required tools: make (build tool), cc (C compiler)
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil

		if !found {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(alt) == nil {
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}
