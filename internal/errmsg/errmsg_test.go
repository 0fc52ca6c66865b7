package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/hu-ti-dev/installers/internal/fetch"
	"github.com/hu-ti-dev/installers/internal/locate"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/runner"
)

func assertContains(t *testing.T, result string, checks ...string) {
	t.Helper()
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected result to contain %q, got:\n%s", check, result)
		}
	}
}

func TestFormat_NilError(t *testing.T) {
	if result := Format(nil); result != "" {
		t.Errorf("expected empty string for nil error, got %q", result)
	}
}

func TestFormat_GenericError(t *testing.T) {
	err := errors.New("something went wrong")
	if result := Format(err); result != "something went wrong" {
		t.Errorf("expected original error message, got %q", result)
	}
}

func TestFormat_MissingPrerequisite(t *testing.T) {
	err := &locate.MissingPrerequisiteError{Missing: []manifest.ToolSpec{
		{Name: "python", Hint: "install Python 3 from https://www.python.org/downloads/ and tick 'Add to PATH'"},
		{Name: "git"},
	}}

	result := Format(fmt.Errorf("checking prerequisites: %w", err))
	assertContains(t, result,
		"missing prerequisite: python, git not found",
		"Suggestions:",
		"python: install Python 3",
		"git: install git and make sure it is on PATH",
		"new command prompt",
	)
}

func TestFormat_SizeMismatch(t *testing.T) {
	err := &fetch.SizeMismatchError{
		Name:     "SFML.zip",
		URL:      "https://www.sfml-dev.org/files/SFML.zip",
		Expected: 2 << 20,
		Actual:   1 << 20,
	}

	assertContains(t, Format(err),
		"SFML.zip",
		"Possible causes:",
		"1.0 MiB of 2.0 MiB",
		"https://www.sfml-dev.org/files/SFML.zip",
	)
}

func TestFormat_SubprocessError(t *testing.T) {
	tests := []struct {
		name   string
		err    *runner.SubprocessError
		checks []string
	}{
		{
			name:   "non-zero exit",
			err:    &runner.SubprocessError{Program: "git", Args: []string{"clone", "x"}, Dir: `C:\course`, ExitCode: 128},
			checks: []string{"git reported an error (exit status 128)", `C:\course`, "Install.log"},
		},
		{
			name:   "could not start",
			err:    &runner.SubprocessError{Program: "7z", ExitCode: -1, Err: errors.New("file does not exist")},
			checks: []string{"7z could not be started", "Install.log"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, Format(tt.err), tt.checks...)
		})
	}
}

func TestFormat_NetworkError(t *testing.T) {
	err := errors.New("dial tcp: lookup github.com: no such host")
	assertContains(t, Format(err),
		"no such host",
		"Possible causes:",
		"Network connectivity issue",
		"Check your internet connection",
	)
}

func TestFormat_PermissionError(t *testing.T) {
	err := errors.New(`rename SFML-2.5.1 SFML-2.5.1-32: Access is denied.`)
	assertContains(t, Format(err),
		"Access is denied",
		"not writable",
		"--workdir",
	)
}

// mockNetError implements net.Error for testing
type mockNetError struct {
	msg       string
	timeout   bool
	temporary bool
}

func (e mockNetError) Error() string   { return e.msg }
func (e mockNetError) Timeout() bool   { return e.timeout }
func (e mockNetError) Temporary() bool { return e.temporary }

var _ net.Error = mockNetError{}

func TestFormat_NetError_Timeout(t *testing.T) {
	err := mockNetError{msg: "i/o timeout", timeout: true}
	assertContains(t, Format(err),
		"i/o timeout",
		"Request timed out",
		"HU_INSTALL_API_TIMEOUT",
	)
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"dial tcp: connection refused", true},
		{"connection reset by peer", true},
		{"no such host", true},
		{"i/o timeout", true},
		{"file not found", false},
		{"permission denied", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isNetworkError(tt.msg); got != tt.expected {
				t.Errorf("isNetworkError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}

func TestIsPermissionError(t *testing.T) {
	tests := []struct {
		msg      string
		expected bool
	}{
		{"permission denied", true},
		{"Access is denied.", true},
		{"operation not permitted", true},
		{"file not found", false},
		{"connection refused", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := isPermissionError(tt.msg); got != tt.expected {
				t.Errorf("isPermissionError(%q) = %v, want %v", tt.msg, got, tt.expected)
			}
		})
	}
}
