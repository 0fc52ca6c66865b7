package repos

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/runner"
)

type call struct {
	op   string
	dir  string
	args []string
}

// fakeGit creates the clone directory like the real client would.
type fakeGit struct {
	calls    []call
	failURLs map[string]bool
}

func (g *fakeGit) Clone(_ context.Context, dir, repo, path string) ([]byte, error) {
	g.calls = append(g.calls, call{op: "clone", dir: dir, args: []string{repo, path}})
	if g.failURLs[repo] {
		return []byte("fatal: repository not found\n"), &runner.SubprocessError{Program: "git", ExitCode: 128}
	}
	if err := os.MkdirAll(filepath.Join(dir, path), 0755); err != nil {
		return nil, err
	}
	return []byte("Cloning into '" + path + "'...\n"), nil
}

func (g *fakeGit) CheckoutBranch(_ context.Context, dir, branch string) ([]byte, error) {
	g.calls = append(g.calls, call{op: "checkout", dir: dir, args: []string{branch}})
	return nil, nil
}

var specs = []manifest.RepositorySpec{
	{URL: "https://github.com/wovo/bmptk.git"},
	{URL: "https://github.com/catchorg/Catch2.git", Branch: "v2.x"},
}

func TestSync_ClonesAndChecksOutBranch(t *testing.T) {
	work := t.TempDir()
	git := &fakeGit{}
	s := &Syncer{Git: git}

	results, err := s.Sync(context.Background(), work, specs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, StatusCloned, results[0].Status)
	assert.Equal(t, StatusCloned, results[1].Status)
	assert.Equal(t, []call{
		{op: "clone", dir: work, args: []string{"https://github.com/wovo/bmptk.git", "bmptk"}},
		{op: "clone", dir: work, args: []string{"https://github.com/catchorg/Catch2.git", "Catch2"}},
		{op: "checkout", dir: filepath.Join(work, "Catch2"), args: []string{"v2.x"}},
	}, git.calls)
}

func TestSync_SecondRunDoesNotClone(t *testing.T) {
	work := t.TempDir()
	git := &fakeGit{}
	s := &Syncer{Git: git}

	_, err := s.Sync(context.Background(), work, specs)
	require.NoError(t, err)
	git.calls = nil

	results, err := s.Sync(context.Background(), work, specs)
	require.NoError(t, err)
	assert.Empty(t, git.calls)
	for _, r := range results {
		assert.Equal(t, StatusSkipped, r.Status)
	}
}

func TestSync_CloneFailureIsRecorded(t *testing.T) {
	work := t.TempDir()
	git := &fakeGit{failURLs: map[string]bool{"https://github.com/wovo/bmptk.git": true}}
	s := &Syncer{Git: git}

	results, err := s.Sync(context.Background(), work, specs)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, results[0].Status)
	var serr *runner.SubprocessError
	assert.True(t, errors.As(results[0].Err, &serr))
	assert.Equal(t, 128, serr.ExitCode)

	assert.Equal(t, StatusCloned, results[1].Status, "later repositories still cloned")
}

func TestSync_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	git := &fakeGit{}
	results, err := (&Syncer{Git: git}).Sync(ctx, t.TempDir(), specs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, git.calls)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "cloned", StatusCloned.String())
	assert.Equal(t, "present", StatusSkipped.String())
	assert.Equal(t, "failed", StatusFailed.String())
}
