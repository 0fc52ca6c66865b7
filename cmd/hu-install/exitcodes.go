package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/hu-ti-dev/installers/internal/locate"
)

// Exit codes for different error types.
const (
	// ExitSuccess indicates successful execution, including runs where
	// individual toolchains or repositories failed
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or flags
	ExitUsage = 2

	// ExitMissingPrerequisite indicates a required tool was not found
	ExitMissingPrerequisite = 3
)

// usageError marks command-line mistakes.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// noArgs is cobra.NoArgs reporting stray arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func exitCodeFor(err error) int {
	var missing *locate.MissingPrerequisiteError
	var usage usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &missing):
		return ExitMissingPrerequisite
	case errors.As(err, &usage):
		return ExitUsage
	default:
		return ExitGeneral
	}
}

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}
