package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hu-ti-dev/installers/internal/errmsg"
)

// Environment variables mirroring the verbosity flags.
const (
	envQuiet   = "HU_INSTALL_QUIET"
	envVerbose = "HU_INSTALL_VERBOSE"
	envDebug   = "HU_INSTALL_DEBUG"
)

// printInfo prints an informational message unless quiet mode is enabled
func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Println(a...)
	}
}

// printInfof prints a formatted informational message unless quiet mode is enabled
func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

// printError prints an error to stderr with suggestions if available.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", errmsg.Format(err))
}

// determineLogLevel picks the console level. Flags win over environment
// variables; among flags debug beats verbose beats quiet.
func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	case isTruthy(os.Getenv(envDebug)):
		return slog.LevelDebug
	case isTruthy(os.Getenv(envVerbose)):
		return slog.LevelInfo
	case isTruthy(os.Getenv(envQuiet)):
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
