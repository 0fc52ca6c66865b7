package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvWorkDir overrides the directory the installation is performed in.
	// Repositories, archives, toolchains and set_env.bat all land here.
	EnvWorkDir = "HU_INSTALL_WORKDIR"

	// EnvManifest points at a TOML or YAML manifest replacing the built-in one.
	EnvManifest = "HU_INSTALL_MANIFEST"

	// EnvLogFile overrides the persistent log file location.
	EnvLogFile = "HU_INSTALL_LOG_FILE"

	// EnvAPITimeout configures the per-request HTTP timeout for downloads.
	EnvAPITimeout = "HU_INSTALL_API_TIMEOUT"

	// DefaultLogFile is the install log name, relative to the work directory.
	DefaultLogFile = "Install.log"

	// DefaultAPITimeout bounds a single archive download. Toolchain archives
	// are a few hundred megabytes, so this is far above a typical API timeout.
	DefaultAPITimeout = 10 * time.Minute

	minAPITimeout = 1 * time.Second
	maxAPITimeout = 30 * time.Minute
)

// GetAPITimeout returns the configured download timeout from HU_INSTALL_API_TIMEOUT.
// If not set or invalid, returns DefaultAPITimeout.
// Accepts duration strings like "30s", "5m", "1h".
func GetAPITimeout() time.Duration {
	envValue := os.Getenv(EnvAPITimeout)
	if envValue == "" {
		return DefaultAPITimeout
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvAPITimeout, envValue, DefaultAPITimeout)
		return DefaultAPITimeout
	}

	if duration < minAPITimeout {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum %v\n",
			EnvAPITimeout, duration, minAPITimeout)
		return minAPITimeout
	}
	if duration > maxAPITimeout {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum %v\n",
			EnvAPITimeout, duration, maxAPITimeout)
		return maxAPITimeout
	}

	return duration
}

// Config holds the resolved locations for one installation run.
type Config struct {
	WorkDir      string // $HU_INSTALL_WORKDIR, or the current directory
	LogFile      string // $HU_INSTALL_LOG_FILE, or $WorkDir/Install.log
	ManifestFile string // $HU_INSTALL_MANIFEST; empty means the built-in manifest
}

// DefaultConfig returns the configuration derived from the environment.
// The work directory is always made absolute so the generated env script
// contains absolute paths.
func DefaultConfig() (*Config, error) {
	workDir := os.Getenv(EnvWorkDir)
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		workDir = wd
	}

	cfg := &Config{
		ManifestFile: os.Getenv(EnvManifest),
		LogFile:      os.Getenv(EnvLogFile),
	}
	if err := cfg.SetWorkDir(workDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetWorkDir changes the work directory. A log file that was derived from
// the previous work directory follows it.
func (c *Config) SetWorkDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve work directory %s: %w", dir, err)
	}
	if c.LogFile == "" || c.LogFile == filepath.Join(c.WorkDir, DefaultLogFile) {
		c.LogFile = filepath.Join(abs, DefaultLogFile)
	}
	c.WorkDir = abs
	return nil
}

// Path joins elem onto the work directory.
func (c *Config) Path(elem ...string) string {
	return filepath.Join(append([]string{c.WorkDir}, elem...)...)
}

// EnsureWorkDir creates the work directory if it does not exist.
func (c *Config) EnsureWorkDir() error {
	if err := os.MkdirAll(c.WorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.WorkDir, err)
	}
	return nil
}
