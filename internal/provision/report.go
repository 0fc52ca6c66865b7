package provision

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/hu-ti-dev/installers/internal/fetch"
	"github.com/hu-ti-dev/installers/internal/locate"
	"github.com/hu-ti-dev/installers/internal/makefile"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/project"
	"github.com/hu-ti-dev/installers/internal/repos"
)

// ToolchainResult is the outcome for one toolchain. Spec carries the
// InstallRoot when the toolchain was installed.
type ToolchainResult struct {
	Spec  manifest.ToolchainSpec
	Fetch fetch.Result
	Err   error
}

// Report collects the outcome of every step of a run.
type Report struct {
	WorkDir string

	Tools    locate.Tools
	Versions []locate.VersionCheck

	Repositories []repos.Result
	Toolchains   []ToolchainResult

	Makefile    makefile.Result
	MakefileErr error

	EnvScript    string
	EnvScriptErr error

	Projects    []project.Result
	ProjectsErr error
}

// Failures counts the recorded per-item failures.
func (r *Report) Failures() int {
	n := 0
	for _, repo := range r.Repositories {
		if repo.Status == repos.StatusFailed {
			n++
		}
	}
	for _, tc := range r.Toolchains {
		if tc.Err != nil {
			n++
		}
	}
	for _, p := range r.Projects {
		if !p.OK() {
			n++
		}
	}
	for _, err := range []error{r.MakefileErr, r.EnvScriptErr, r.ProjectsErr} {
		if err != nil {
			n++
		}
	}
	return n
}

// WriteTools prints the prerequisite lookup results.
func WriteTools(w io.Writer, tools locate.Tools) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range tools {
		switch {
		case !t.Found():
			fmt.Fprintf(tw, "  %s\tnot found\t\n", t.Name)
		case t.OnSearchPath:
			fmt.Fprintf(tw, "  %s\t%s\t(PATH)\n", t.Name, t.Path)
		default:
			fmt.Fprintf(tw, "  %s\t%s\t\n", t.Name, t.Path)
		}
	}
	_ = tw.Flush()
}

// WriteSummary prints a human-readable summary of the run.
func (r *Report) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "Prerequisites:")
	WriteTools(w, r.Tools)

	if len(r.Repositories) > 0 {
		fmt.Fprintln(w, "\nRepositories:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, repo := range r.Repositories {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", repo.Spec.Dir(), repo.Status, errText(repo.Err))
		}
		_ = tw.Flush()
	}

	if len(r.Toolchains) > 0 {
		fmt.Fprintln(w, "\nToolchains:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, tc := range r.Toolchains {
			switch {
			case tc.Err != nil:
				fmt.Fprintf(tw, "  %s\tfailed\t%s\n", tc.Spec.Label(), errText(tc.Err))
			case !tc.Spec.Installed():
				fmt.Fprintf(tw, "  %s\tskipped\tunrecognized archive format\n", tc.Spec.Label())
			default:
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", tc.Spec.Label(), tc.Spec.InstallRoot, humanize.IBytes(uint64(tc.Fetch.Size)))
			}
		}
		_ = tw.Flush()
	}

	fmt.Fprintln(w, "\nGenerated files:")
	if r.MakefileErr != nil {
		fmt.Fprintf(w, "  build configuration: %s\n", errText(r.MakefileErr))
	} else if r.Makefile.Lines > 0 {
		fmt.Fprintf(w, "  build configuration: %d toolchain declarations updated\n", len(r.Makefile.Rewritten))
	}
	if r.EnvScriptErr != nil {
		fmt.Fprintf(w, "  environment script: %s\n", errText(r.EnvScriptErr))
	} else if r.EnvScript != "" {
		fmt.Fprintf(w, "  environment script: %s\n", r.EnvScript)
	}
	if r.ProjectsErr != nil {
		fmt.Fprintf(w, "  projects: %s\n", errText(r.ProjectsErr))
	}
	for _, p := range r.Projects {
		switch {
		case p.Err != nil:
			fmt.Fprintf(w, "  %s: %s\n", p.Dir, errText(p.Err))
		case p.GeneratorErr != nil:
			fmt.Fprintf(w, "  %s (generator failed: %s)\n", p.Written, errText(p.GeneratorErr))
		default:
			fmt.Fprintf(w, "  %s\n", p.Written)
		}
	}

	if n := r.Failures(); n > 0 {
		fmt.Fprintf(w, "\n%d step(s) failed; see the install log for details.\n", n)
	}
}

// errText returns the first line of err's message.
func errText(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}
