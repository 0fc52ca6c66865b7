// Package project prepares the example project folders: it runs the
// build-metadata generator in each one and writes its CMakeLists.txt from
// the shared template.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/runner"
)

// Result records what happened in one project directory.
type Result struct {
	Dir string

	// GeneratorErr is set when the metadata generator failed. The build
	// file is still written in that case.
	GeneratorErr error

	// Err is set when the build file could not be written.
	Err error

	Written string // path of the written build file
}

// OK reports whether both steps succeeded.
func (r Result) OK() bool {
	return r.GeneratorErr == nil && r.Err == nil
}

// Templater generates per-project build files.
type Templater struct {
	Runner runner.Runner

	// Tool is the resolved path of the generator's interpreter.
	Tool string

	Options manifest.ProjectOptions
	Logger  log.Logger
}

// Generate processes every project directory in order. The template is
// read once; failing to read it is the only error returned besides
// cancellation. Per-project failures are recorded in the results.
func (tp *Templater) Generate(ctx context.Context, workDir string) ([]Result, error) {
	logger := log.OrDefault(tp.Logger)

	templatePath := filepath.Join(workDir, filepath.FromSlash(tp.Options.Template))
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read project template: %w", err)
	}
	template := string(data)

	results := make([]Result, 0, len(tp.Options.Dirs))
	for _, name := range tp.Options.Dirs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, tp.generateOne(ctx, logger.With("project", name), workDir, name, template))
	}
	return results, nil
}

func (tp *Templater) generateOne(ctx context.Context, logger log.Logger, workDir, name, template string) Result {
	dir := filepath.Join(workDir, filepath.FromSlash(name))
	res := Result{Dir: dir}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		res.Err = fmt.Errorf("project directory %s does not exist", name)
		logger.Warn("project directory missing", "dir", dir)
		return res
	}

	if tp.Options.Generator.Script != "" {
		args := append([]string{tp.Options.Generator.Script}, tp.Options.Generator.Args...)
		logger.Info("running project generator", "script", tp.Options.Generator.Script)
		out, err := tp.Runner.Run(ctx, dir, tp.Tool, args...)
		for _, line := range runner.Lines(decode(out)) {
			logger.Info("generator", "output", line)
		}
		if err != nil {
			res.GeneratorErr = err
			logger.Warn("project generator failed", "error", err)
		}
	}

	content := strings.ReplaceAll(template, tp.Options.Placeholder, filepath.Base(dir))
	out := filepath.Join(dir, tp.Options.Output)
	if err := os.WriteFile(out, []byte(content), 0644); err != nil {
		res.Err = fmt.Errorf("failed to write %s: %w", out, err)
		logger.Warn("failed to write build file", "error", err)
		return res
	}
	res.Written = out
	logger.Info("wrote build file", "file", out)
	return res
}

// decode returns output as UTF-8, reading it as Latin-1 when it is not
// valid UTF-8 already (the generator prints in the console code page).
func decode(out []byte) []byte {
	if utf8.Valid(out) {
		return out
	}
	var b strings.Builder
	b.Grow(len(out) * 2)
	for _, c := range out {
		b.WriteRune(rune(c))
	}
	return []byte(b.String())
}
