// Package provision runs the installation steps in order and collects
// their outcomes into a Report.
//
// Prerequisite lookup gates everything: when a required tool is missing
// the run stops before touching the work directory. Every later step
// records its own failures and the run carries on, so one bad download
// does not prevent the rest of the environment from being set up.
package provision

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hu-ti-dev/installers/internal/archive"
	"github.com/hu-ti-dev/installers/internal/envscript"
	"github.com/hu-ti-dev/installers/internal/fetch"
	"github.com/hu-ti-dev/installers/internal/gitutil"
	"github.com/hu-ti-dev/installers/internal/locate"
	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/makefile"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/project"
	"github.com/hu-ti-dev/installers/internal/repos"
	"github.com/hu-ti-dev/installers/internal/runner"
)

// Tool names the pipeline resolves from the manifest's tool list.
const (
	ToolGit      = "git"
	ToolSevenZip = "7z"
)

// Options configures a Pipeline. Zero values fall back to the real
// system: os/exec, PATH lookup and the shared HTTP client.
type Options struct {
	WorkDir  string
	Manifest *manifest.Manifest

	Runner runner.Runner
	Client *http.Client

	// LookPath and Exists override tool lookup.
	LookPath func(file string) (string, error)
	Exists   func(path string) bool

	// Progress receives progress bars and spinners. Nil disables them.
	Progress io.Writer

	Logger log.Logger
}

// Pipeline provisions one work directory.
type Pipeline struct {
	opts   Options
	logger log.Logger
}

// New returns a Pipeline for opts.
func New(opts Options) *Pipeline {
	if opts.Runner == nil {
		opts.Runner = runner.ExecRunner{}
	}
	return &Pipeline{opts: opts, logger: log.OrDefault(opts.Logger)}
}

// Check locates the prerequisite tools and compares their versions with
// the manifest minimums. Version problems are logged as warnings only.
func (p *Pipeline) Check(ctx context.Context) (locate.Tools, []locate.VersionCheck, error) {
	p.logger.Info("verifying prerequisites")
	l := &locate.Locator{LookPath: p.opts.LookPath, Exists: p.opts.Exists, Logger: p.logger}
	tools, err := l.Locate(p.opts.Manifest.Tools)
	if err != nil {
		return tools, nil, err
	}

	var checks []locate.VersionCheck
	for _, spec := range p.opts.Manifest.Tools {
		if spec.MinVersion == "" {
			continue
		}
		ref, _ := tools.Get(spec.Name)
		check, err := locate.CheckVersion(ctx, p.opts.Runner, ref, spec)
		if err != nil {
			p.logger.Warn("could not determine tool version", "tool", spec.Name, "error", err)
			continue
		}
		if !check.Satisfied {
			p.logger.Warn("tool is older than recommended", "tool", spec.Name,
				"found", check.Found.String(), "minimum", check.Minimum.String())
		}
		checks = append(checks, check)
	}
	return tools, checks, nil
}

// Run executes every step. The returned error is non-nil only when a
// prerequisite is missing or ctx is cancelled; all other failures are
// recorded in the Report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	m := p.opts.Manifest
	report := &Report{WorkDir: p.opts.WorkDir}

	p.logger.Info("starting installation", "workdir", p.opts.WorkDir)

	tools, checks, err := p.Check(ctx)
	report.Tools = tools
	report.Versions = checks
	if err != nil {
		return report, err
	}

	p.logger.Info("cloning repositories")
	git := gitutil.New(p.opts.Runner, toolPath(tools, ToolGit))
	syncer := &repos.Syncer{Git: git, Logger: p.logger}
	report.Repositories, err = syncer.Sync(ctx, p.opts.WorkDir, m.Repositories)
	if err != nil {
		return report, err
	}

	p.logger.Info("downloading and unpacking toolchains")
	report.Toolchains, err = p.installToolchains(ctx, tools, m.Toolchains)
	if err != nil {
		return report, err
	}
	installed := make([]manifest.ToolchainSpec, len(report.Toolchains))
	for i, tc := range report.Toolchains {
		installed[i] = tc.Spec
	}

	if m.Makefile.Template != "" {
		p.logger.Info("building " + m.Makefile.Output)
		rw := &makefile.Rewriter{Options: m.Makefile, Logger: p.logger}
		report.Makefile, report.MakefileErr = rw.RewriteFile(p.opts.WorkDir, installed)
		if report.MakefileErr != nil {
			p.logger.Warn("failed to build configuration", "error", report.MakefileErr)
		}
	}

	p.logger.Info("creating " + m.EnvScript.Output)
	report.EnvScript, report.EnvScriptErr = envscript.Write(p.opts.WorkDir, tools, m.EnvScript, p.logger)
	if report.EnvScriptErr != nil {
		p.logger.Warn("failed to write environment script", "error", report.EnvScriptErr)
	}

	if len(m.Projects.Dirs) > 0 {
		p.logger.Info("preparing example projects")
		tp := &project.Templater{
			Runner:  p.opts.Runner,
			Tool:    toolPath(tools, m.Projects.Generator.Tool),
			Options: m.Projects,
			Logger:  p.logger,
		}
		report.Projects, report.ProjectsErr = tp.Generate(ctx, p.opts.WorkDir)
		if errors.Is(report.ProjectsErr, context.Canceled) {
			return report, report.ProjectsErr
		}
		if report.ProjectsErr != nil {
			p.logger.Warn("failed to prepare projects", "error", report.ProjectsErr)
		}
	}

	p.logger.Info("installation complete", "failures", report.Failures())
	return report, nil
}

// RenderEnv locates the tools and writes the environment script to w
// without touching the work directory.
func (p *Pipeline) RenderEnv(ctx context.Context, w io.Writer) error {
	tools, _, err := p.Check(ctx)
	if err != nil {
		return err
	}
	return envscript.Render(w, p.opts.WorkDir, tools, p.opts.Manifest.EnvScript)
}

func (p *Pipeline) installToolchains(ctx context.Context, tools locate.Tools, specs []manifest.ToolchainSpec) ([]ToolchainResult, error) {
	fetcher := &fetch.Fetcher{Client: p.opts.Client, Progress: p.opts.Progress, Logger: p.logger}
	installer := &archive.Installer{
		Runner:   p.opts.Runner,
		SevenZip: toolPath(tools, ToolSevenZip),
		Progress: p.opts.Progress,
		Logger:   p.logger,
	}

	results := make([]ToolchainResult, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := ToolchainResult{Spec: spec}
		res.Fetch, res.Err = fetcher.Fetch(ctx, p.opts.WorkDir, spec)
		if res.Err != nil {
			p.logger.Warn("download failed, toolchain not installed", "toolchain", spec.Name, "error", res.Err)
			results = append(results, res)
			continue
		}

		updated, err := installer.Install(ctx, p.opts.WorkDir, spec)
		if err != nil {
			res.Err = err
			p.logger.Warn("unpacking failed", "toolchain", spec.Name, "error", err)
			results = append(results, res)
			continue
		}
		res.Spec = archive.ResolveVariant(p.opts.WorkDir, updated)
		if res.Spec.InstallRoot != updated.InstallRoot {
			p.logger.Info("selected toolchain variant", "toolchain", spec.Name, "root", res.Spec.InstallRoot)
		}
		results = append(results, res)
	}

	return results, ctx.Err()
}

// toolPath returns the resolved path of name, or name itself so the
// runner can still try the search path.
func toolPath(tools locate.Tools, name string) string {
	if p := tools.Path(name); p != "" {
		return p
	}
	return name
}
