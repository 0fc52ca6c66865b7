package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/hu-ti-dev/installers/internal/locate"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/runner"
)

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"Yes", true},
		{"on", true},
		{"ON", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"off", false},
		{"random", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := isTruthy(tt.input); got != tt.want {
				t.Errorf("isTruthy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetermineLogLevel(t *testing.T) {
	origQuiet, origVerbose, origDebug := quietFlag, verboseFlag, debugFlag
	defer func() {
		quietFlag, verboseFlag, debugFlag = origQuiet, origVerbose, origDebug
	}()

	tests := []struct {
		name       string
		quietF     bool
		verboseF   bool
		debugF     bool
		envQuiet   string
		envVerbose string
		envDebug   string
		want       slog.Level
	}{
		{name: "default is WARN", want: slog.LevelWarn},
		{name: "debug flag", debugF: true, want: slog.LevelDebug},
		{name: "verbose flag", verboseF: true, want: slog.LevelInfo},
		{name: "quiet flag", quietF: true, want: slog.LevelError},
		{name: "debug env var", envDebug: "1", want: slog.LevelDebug},
		{name: "verbose env var", envVerbose: "true", want: slog.LevelInfo},
		{name: "quiet env var", envQuiet: "yes", want: slog.LevelError},
		{name: "flag takes precedence over env var", quietF: true, envDebug: "1", want: slog.LevelError},
		{name: "debug flag overrides verbose flag", debugF: true, verboseF: true, want: slog.LevelDebug},
		{name: "verbose flag overrides quiet flag", verboseF: true, quietF: true, want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quietFlag, verboseFlag, debugFlag = tt.quietF, tt.verboseF, tt.debugF
			t.Setenv(envQuiet, tt.envQuiet)
			t.Setenv(envVerbose, tt.envVerbose)
			t.Setenv(envDebug, tt.envDebug)

			if got := determineLogLevel(); got != tt.want {
				t.Errorf("determineLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	missing := &locate.MissingPrerequisiteError{Missing: []manifest.ToolSpec{{Name: "git"}}}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"missing prerequisite", missing, ExitMissingPrerequisite},
		{"wrapped missing prerequisite", fmt.Errorf("check: %w", missing), ExitMissingPrerequisite},
		{"usage", usageError{errors.New("unknown flag: --nope")}, ExitUsage},
		{"subprocess", &runner.SubprocessError{Program: "git", ExitCode: 128}, ExitGeneral},
		{"generic", errors.New("boom"), ExitGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewSession_FlagsOverrideConfig(t *testing.T) {
	origWork, origLog, origManifest := workDirFlag, logFileFlag, manifestFlag
	defer func() {
		workDirFlag, logFileFlag, manifestFlag = origWork, origLog, origManifest
	}()

	work := t.TempDir()
	workDirFlag = filepath.Join(work, "course")
	logFileFlag = ""
	manifestFlag = ""
	t.Setenv("HU_INSTALL_WORKDIR", "")
	t.Setenv("HU_INSTALL_LOG_FILE", "")
	t.Setenv("HU_INSTALL_MANIFEST", "")

	s, err := newSession(true)
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	defer s.Close()

	if s.cfg.WorkDir != workDirFlag {
		t.Errorf("WorkDir = %q, want %q", s.cfg.WorkDir, workDirFlag)
	}
	wantLog := filepath.Join(workDirFlag, "Install.log")
	if s.cfg.LogFile != wantLog {
		t.Errorf("LogFile = %q, want %q", s.cfg.LogFile, wantLog)
	}
	if _, err := os.Stat(wantLog); err != nil {
		t.Errorf("log file not created: %v", err)
	}
	if len(s.manifest.Toolchains) == 0 {
		t.Error("built-in manifest has no toolchains")
	}
	if got, want := s.envScriptPath(), filepath.Join(workDirFlag, "set_env.bat"); got != want {
		t.Errorf("envScriptPath() = %q, want %q", got, want)
	}
}

func TestNoArgs_StrayArgumentIsUsageError(t *testing.T) {
	for _, cmd := range []*cobra.Command{rootCmd, runCmd, checkCmd, envCmd, versionCmd} {
		t.Run(cmd.Name(), func(t *testing.T) {
			err := cmd.Args(cmd, []string{"foo"})
			if err == nil {
				t.Fatal("expected an error for a stray argument")
			}
			if got := exitCodeFor(err); got != ExitUsage {
				t.Errorf("exitCodeFor() = %d, want %d", got, ExitUsage)
			}
		})
	}

	if err := noArgs(rootCmd, nil); err != nil {
		t.Errorf("noArgs() without arguments = %v", err)
	}
}

func TestNewSession_InvalidManifest(t *testing.T) {
	origWork, origManifest := workDirFlag, manifestFlag
	defer func() { workDirFlag, manifestFlag = origWork, origManifest }()

	work := t.TempDir()
	bad := filepath.Join(work, "bad.yaml")
	if err := os.WriteFile(bad, []byte("toolchains:\n  - name: GCC\n  - name: GCC-ARM\n"), 0644); err != nil {
		t.Fatal(err)
	}
	workDirFlag = work
	manifestFlag = bad

	if _, err := newSession(false); err == nil {
		t.Error("expected an error for an invalid manifest")
	}
}
