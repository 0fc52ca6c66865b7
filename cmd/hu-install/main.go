// Command hu-install prepares a Windows development environment for the
// HU embedded-systems courses: it checks the prerequisite tools, clones the
// course repositories, downloads and unpacks the toolchains, and generates
// the build configuration, environment script and project files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hu-ti-dev/installers/internal/buildinfo"
	"github.com/hu-ti-dev/installers/internal/config"
	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/progress"
	"github.com/hu-ti-dev/installers/internal/provision"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool

	workDirFlag  string
	manifestFlag string
	logFileFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "hu-install",
	Short: "Set up the HU embedded-systems course environment",
	Long: `hu-install prepares a Windows development environment for the HU
embedded-systems courses.

It verifies that python, 7z and git are installed, clones the course
repositories, downloads and unpacks the compiler toolchains, writes
bmptk/Makefile.custom and set_env.bat, and generates CMakeLists.txt for
every example project. Running it again only does what is missing.

Run set_env.bat in every new command prompt afterwards.`,
	Version:       buildinfo.Version(),
	Args:          noArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInstall,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&workDirFlag, "workdir", "C", "", "work directory (default $HU_INSTALL_WORKDIR or the current directory)")
	flags.StringVar(&manifestFlag, "manifest", "", "TOML or YAML manifest replacing the built-in one")
	flags.StringVar(&logFileFlag, "log-file", "", "install log, truncated on every run (default <workdir>/Install.log)")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "only print errors")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "print every step")
	flags.BoolVar(&debugFlag, "debug", false, "print subprocess output and HTTP details")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.AddCommand(runCmd, checkCmd, envCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(err)
		exitWithCode(exitCodeFor(err))
	}
}

// session is the state shared by the commands for one invocation.
type session struct {
	cfg      *config.Config
	manifest *manifest.Manifest
	logger   log.Logger
	logFile  *os.File
}

func (s *session) Close() {
	if s.logFile != nil {
		_ = s.logFile.Close()
	}
}

// newSession resolves the configuration and manifest and installs the
// default logger. With withLogFile the install log is created (truncated)
// and receives every record at DEBUG.
func newSession(withLogFile bool) (*session, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return nil, err
	}
	if workDirFlag != "" {
		if err := cfg.SetWorkDir(workDirFlag); err != nil {
			return nil, err
		}
	}
	if logFileFlag != "" {
		cfg.LogFile = logFileFlag
	}
	if manifestFlag != "" {
		cfg.ManifestFile = manifestFlag
	}

	s := &session{cfg: cfg}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: determineLogLevel()}),
	}
	if withLogFile {
		if err := cfg.EnsureWorkDir(); err != nil {
			return nil, err
		}
		f, err := os.Create(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		s.logFile = f
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	s.logger = log.New(log.NewFanout(handlers...))
	log.SetDefault(s.logger)
	s.logger.Debug("hu-install", "build", buildinfo.Read().String(), "workdir", cfg.WorkDir, "log_file", cfg.LogFile)

	if cfg.ManifestFile != "" {
		s.manifest, err = manifest.Load(cfg.ManifestFile)
	} else {
		s.manifest, err = manifest.Default()
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return s, nil
}

// envScriptPath is the absolute path of the generated environment script.
func (s *session) envScriptPath() string {
	return s.cfg.Path(filepath.FromSlash(s.manifest.EnvScript.Output))
}

func (s *session) pipeline() *provision.Pipeline {
	var out io.Writer
	if !quietFlag && progress.ShouldShowProgress() {
		out = os.Stdout
	}
	return provision.New(provision.Options{
		WorkDir:  s.cfg.WorkDir,
		Manifest: s.manifest,
		Progress: out,
		Logger:   s.logger,
	})
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.pipeline().Run(cmd.Context())
	if report != nil && !quietFlag {
		fmt.Println()
		report.WriteSummary(os.Stdout)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("installation interrupted: %w", err)
		}
		return err
	}

	printInfo()
	printInfof("Run %s to prepare your environment whenever you open a command prompt.\n", s.envScriptPath())
	printInfo("Alternatively add the HCT variable and the missing program directories to your user environment.")
	printInfof("The full log is in %s\n", s.cfg.LogFile)
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Install everything (the default command)",
	Args:  noArgs,
	RunE:  runInstall,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the prerequisite tools are installed",
	Long: `Check that python, 7z and git can be found, on PATH or in their usual
install locations, and that they are recent enough. Nothing is written.`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		tools, checks, err := s.pipeline().Check(cmd.Context())
		provision.WriteTools(os.Stdout, tools)
		for _, c := range checks {
			if !c.Satisfied {
				fmt.Printf("  %s %s is older than %s\n", c.Tool, c.Found, c.Minimum)
			}
		}
		return err
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the environment script without writing it",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(false)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.pipeline().RenderEnv(cmd.Context(), os.Stdout)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  noArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildinfo.Read().String())
	},
}
