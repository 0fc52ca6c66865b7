// Package runner executes the external collaborators (git, 7z, python)
// with an explicit working directory and a checked exit status.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner runs a program to completion and returns its combined
// stdout/stderr. A non-zero exit status is reported as *SubprocessError;
// the output is returned in both cases.
type Runner interface {
	Run(ctx context.Context, dir, program string, args ...string) ([]byte, error)
}

// SubprocessError reports a program that could not be started or exited
// with a non-zero status.
type SubprocessError struct {
	Program  string
	Args     []string
	Dir      string
	ExitCode int // -1 when the program could not be started
	Output   string
	Err      error
}

func (e *SubprocessError) Error() string {
	cmdline := strings.TrimSpace(e.Program + " " + strings.Join(e.Args, " "))
	if e.ExitCode < 0 {
		return fmt.Sprintf("'%s' could not be run: %v", cmdline, e.Err)
	}
	msg := fmt.Sprintf("'%s' failed with exit status %d", cmdline, e.ExitCode)
	if out := lastLines(e.Output, 5); out != "" {
		msg += ":\n" + out
	}
	return msg
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	// Env, when non-nil, replaces the child environment.
	Env []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir, program string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return out.Bytes(), nil
	}

	serr := &SubprocessError{
		Program:  program,
		Args:     args,
		Dir:      dir,
		ExitCode: -1,
		Output:   out.String(),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		serr.ExitCode = exitErr.ExitCode()
	}
	return out.Bytes(), serr
}

// Lines splits captured output into trimmed, non-empty lines. Carriage
// returns from Windows tools are dropped.
func Lines(output []byte) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(string(output), "\r", ""), "\n") {
		if line = strings.TrimRight(line, " \t"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func lastLines(s string, n int) string {
	lines := Lines([]byte(s))
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
