// Package locate finds the prerequisite executables the installer drives.
//
// Each tool is looked up on the process search path first, then at a fixed
// list of fallback install locations. Whether a tool came from the search
// path decides whether the generated env script has to add its directory.
package locate

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
)

// ToolReference is a resolved prerequisite.
type ToolReference struct {
	Name         string
	Path         string // absolute path; empty when not found
	OnSearchPath bool
}

// Found reports whether the tool was resolved.
func (r ToolReference) Found() bool {
	return r.Path != ""
}

// Dir returns the directory containing the executable. Both '/' and '\'
// are treated as separators since fallback locations are Windows paths.
func (r ToolReference) Dir() string {
	i := strings.LastIndexAny(r.Path, `/\`)
	switch {
	case i < 0:
		return "."
	case i == 0:
		return r.Path[:1]
	default:
		return r.Path[:i]
	}
}

// Tools is the ordered result of Locate.
type Tools []ToolReference

// Get returns the reference for name.
func (ts Tools) Get(name string) (ToolReference, bool) {
	for _, t := range ts {
		if t.Name == name {
			return t, true
		}
	}
	return ToolReference{}, false
}

// Path returns the resolved path for name, or "" when unknown.
func (ts Tools) Path(name string) string {
	t, _ := ts.Get(name)
	return t.Path
}

// MissingPrerequisiteError lists every required tool that could not be found.
type MissingPrerequisiteError struct {
	Missing []manifest.ToolSpec
}

func (e *MissingPrerequisiteError) Error() string {
	names := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		names[i] = t.Name
	}
	return fmt.Sprintf("missing prerequisite: %s not found", strings.Join(names, ", "))
}

// Locator resolves ToolSpecs. The zero value searches the real PATH and
// file system.
type Locator struct {
	// LookPath resolves an executable on the search path. Default: exec.LookPath.
	LookPath func(file string) (string, error)

	// Exists reports whether a fallback location holds a file. Default: os.Stat.
	Exists func(path string) bool

	Logger log.Logger
}

// Locate resolves every spec. It returns the references for all tools,
// found or not, and a *MissingPrerequisiteError when any is missing.
func (l *Locator) Locate(specs []manifest.ToolSpec) (Tools, error) {
	logger := log.OrDefault(l.Logger)

	var tools Tools
	var missing []manifest.ToolSpec
	for _, spec := range specs {
		ref := l.locateOne(spec)
		tools = append(tools, ref)
		if !ref.Found() {
			logger.Error("prerequisite not found", "tool", spec.Name, "hint", spec.Hint)
			missing = append(missing, spec)
			continue
		}
		logger.Info("found prerequisite", "tool", spec.Name, "path", ref.Path, "on_search_path", ref.OnSearchPath)
	}

	if len(missing) > 0 {
		return tools, &MissingPrerequisiteError{Missing: missing}
	}
	return tools, nil
}

func (l *Locator) locateOne(spec manifest.ToolSpec) ToolReference {
	ref := ToolReference{Name: spec.Name}

	executable := spec.Executable
	if executable == "" {
		executable = spec.Name
	}
	if p, err := l.lookPath(executable); err == nil && p != "" {
		ref.Path = p
		ref.OnSearchPath = true
		return ref
	}

	for _, candidate := range spec.Fallbacks {
		if l.exists(candidate) {
			ref.Path = candidate
			return ref
		}
	}
	return ref
}

func (l *Locator) lookPath(file string) (string, error) {
	if l.LookPath != nil {
		return l.LookPath(file)
	}
	return exec.LookPath(file)
}

func (l *Locator) exists(path string) bool {
	if l.Exists != nil {
		return l.Exists(path)
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
