// Package gitutil wraps the git client used to fetch course repositories.
package gitutil

import (
	"context"

	"github.com/hu-ti-dev/installers/internal/runner"
)

// Git runs git subcommands through a Runner.
type Git struct {
	program string
	r       runner.Runner
}

// New returns a Git that invokes the executable at program.
func New(r runner.Runner, program string) *Git {
	return &Git{program: program, r: r}
}

// Clone clones repo into path, relative to dir.
func (g *Git) Clone(ctx context.Context, dir, repo, path string) ([]byte, error) {
	return g.r.Run(ctx, dir, g.program, "clone", repo, path)
}

// CheckoutBranch checks out branch in the repository at dir.
func (g *Git) CheckoutBranch(ctx context.Context, dir, branch string) ([]byte, error) {
	return g.r.Run(ctx, dir, g.program, "checkout", branch)
}
