// Package errmsg formats installer errors for the console with likely
// causes and what to do about them.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hu-ti-dev/installers/internal/fetch"
	"github.com/hu-ti-dev/installers/internal/locate"
	"github.com/hu-ti-dev/installers/internal/runner"
)

// Format returns err's message followed by possible causes and suggestions
// when the error is recognized, or the plain message otherwise.
func Format(err error) string {
	if err == nil {
		return ""
	}

	var missing *locate.MissingPrerequisiteError
	if errors.As(err, &missing) {
		return formatMissingPrerequisite(missing)
	}

	var mismatch *fetch.SizeMismatchError
	if errors.As(err, &mismatch) {
		return formatSizeMismatch(err, mismatch)
	}

	var subErr *runner.SubprocessError
	if errors.As(err, &subErr) {
		return formatSubprocessError(err, subErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(err, netErr)
	}

	errMsg := err.Error()
	if isNetworkError(errMsg) {
		return formatGenericNetworkError(errMsg)
	}
	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg)
	}
	return errMsg
}

func formatMissingPrerequisite(err *locate.MissingPrerequisiteError) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nSuggestions:\n")
	for _, tool := range err.Missing {
		hint := tool.Hint
		if hint == "" {
			hint = fmt.Sprintf("install %s and make sure it is on PATH", tool.Name)
		}
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", tool.Name, hint))
	}
	sb.WriteString("  - Open a new command prompt after installing so PATH is refreshed\n")
	return sb.String()
}

func formatSizeMismatch(err error, mismatch *fetch.SizeMismatchError) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString(fmt.Sprintf("  - The connection dropped after %s of %s\n",
		humanize.IBytes(uint64(mismatch.Actual)), humanize.IBytes(uint64(mismatch.Expected))))
	sb.WriteString("  - A proxy altered or truncated the response\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Run the installer again; completed downloads are kept\n")
	sb.WriteString(fmt.Sprintf("  - Download %s manually into the work directory\n", mismatch.URL))
	return sb.String()
}

func formatSubprocessError(err error, subErr *runner.SubprocessError) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	if subErr.ExitCode < 0 {
		sb.WriteString(fmt.Sprintf("  - %s could not be started\n", subErr.Program))
	} else {
		sb.WriteString(fmt.Sprintf("  - %s reported an error (exit status %d)\n", subErr.Program, subErr.ExitCode))
	}
	if subErr.Dir != "" {
		sb.WriteString(fmt.Sprintf("  - The directory %s is incomplete or locked\n", subErr.Dir))
	}

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - See Install.log for the full output\n")
	sb.WriteString("  - Remove the affected directory and run the installer again\n")
	return sb.String()
}

func formatNetworkError(err error, netErr net.Error) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	if netErr.Timeout() {
		sb.WriteString("  - Request timed out\n")
		sb.WriteString("  - Slow or unstable network connection\n")
	} else {
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - DNS resolution failure\n")
	}
	sb.WriteString("  - Firewall or proxy blocking the connection\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	if netErr.Timeout() {
		sb.WriteString("  - Raise HU_INSTALL_API_TIMEOUT for slow connections\n")
	}
	sb.WriteString("  - Try again in a few minutes\n")
	return sb.String()
}

func formatGenericNetworkError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Network connectivity issue\n")
	sb.WriteString("  - Download server temporarily unavailable\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Try again in a few minutes\n")
	return sb.String()
}

func formatPermissionError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - The work directory is not writable\n")
	sb.WriteString("  - A file is open in another program (editor, explorer, virus scanner)\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Close programs using the course directory and retry\n")
	sb.WriteString("  - Choose a work directory in your user profile with --workdir\n")
	return sb.String()
}

func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "i/o timeout")
}

func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access is denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
