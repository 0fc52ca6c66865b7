package locate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/runner"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// VersionCheck is the outcome of comparing a tool's reported version with
// its manifest minimum.
type VersionCheck struct {
	Tool      string
	Found     *semver.Version
	Minimum   *semver.Version
	Satisfied bool
}

// ParseVersion extracts the first dotted version from tool output, e.g.
// "git version 2.43.0.windows.1" -> 2.43.0, "Python 3.12.1" -> 3.12.1.
func ParseVersion(output string) (*semver.Version, error) {
	match := versionPattern.FindString(output)
	if match == "" {
		return nil, fmt.Errorf("no version number in %q", output)
	}
	return semver.NewVersion(match)
}

// CheckVersion runs the tool with spec.VersionArgs and compares the result
// with spec.MinVersion. A spec without MinVersion is always satisfied and
// the tool is not run.
func CheckVersion(ctx context.Context, r runner.Runner, ref ToolReference, spec manifest.ToolSpec) (VersionCheck, error) {
	check := VersionCheck{Tool: spec.Name, Satisfied: true}
	if spec.MinVersion == "" {
		return check, nil
	}

	minimum, err := semver.NewVersion(spec.MinVersion)
	if err != nil {
		return check, fmt.Errorf("invalid minimum version for %s: %w", spec.Name, err)
	}
	check.Minimum = minimum

	args := spec.VersionArgs
	if len(args) == 0 {
		args = []string{"--version"}
	}
	out, err := r.Run(ctx, "", ref.Path, args...)
	if err != nil {
		return check, fmt.Errorf("failed to query %s version: %w", spec.Name, err)
	}

	found, err := ParseVersion(string(out))
	if err != nil {
		return check, fmt.Errorf("failed to parse %s version: %w", spec.Name, err)
	}
	check.Found = found
	check.Satisfied = !found.LessThan(minimum)
	return check, nil
}
