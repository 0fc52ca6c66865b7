// Package repos clones the course repositories into the work directory.
package repos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/runner"
)

// Git is the subset of the git client RepositorySync needs.
type Git interface {
	Clone(ctx context.Context, dir, repo, path string) ([]byte, error)
	CheckoutBranch(ctx context.Context, dir, branch string) ([]byte, error)
}

// Status is the outcome for one repository.
type Status int

const (
	StatusCloned Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCloned:
		return "cloned"
	case StatusSkipped:
		return "present"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result records what Sync did for one repository.
type Result struct {
	Spec   manifest.RepositorySpec
	Dir    string // absolute local directory
	Status Status
	Err    error
}

// Syncer clones missing repositories.
type Syncer struct {
	Git    Git
	Logger log.Logger
}

// Sync makes sure every repository has a local directory under workDir.
// A directory that already exists is left alone, whatever its state. Clone
// and checkout failures are recorded in the result and do not stop the
// remaining repositories; only context cancellation is returned as an error.
func (s *Syncer) Sync(ctx context.Context, workDir string, specs []manifest.RepositorySpec) ([]Result, error) {
	logger := log.OrDefault(s.Logger)

	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := s.syncOne(ctx, logger, workDir, spec)
		results = append(results, res)
	}
	return results, nil
}

func (s *Syncer) syncOne(ctx context.Context, logger log.Logger, workDir string, spec manifest.RepositorySpec) Result {
	name := spec.Dir()
	res := Result{Spec: spec, Dir: filepath.Join(workDir, name)}
	logger = logger.With("repository", name)

	if _, err := os.Stat(res.Dir); err == nil {
		logger.Info("repository already present, skipping clone", "dir", res.Dir)
		res.Status = StatusSkipped
		return res
	}

	logger.Info("cloning repository", "url", spec.URL)
	out, err := s.Git.Clone(ctx, workDir, spec.URL, name)
	logOutput(logger, out)
	if err != nil {
		logger.Warn("clone failed", "error", err)
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to clone %s: %w", spec.URL, err)
		return res
	}

	if spec.Branch != "" {
		logger.Info("checking out branch", "branch", spec.Branch)
		out, err := s.Git.CheckoutBranch(ctx, res.Dir, spec.Branch)
		logOutput(logger, out)
		if err != nil {
			logger.Warn("checkout failed", "branch", spec.Branch, "error", err)
			res.Status = StatusFailed
			res.Err = fmt.Errorf("failed to check out %s in %s: %w", spec.Branch, name, err)
			return res
		}
	}

	res.Status = StatusCloned
	return res
}

func logOutput(logger log.Logger, out []byte) {
	for _, line := range runner.Lines(out) {
		logger.Debug("git", "output", line)
	}
}
