// Package archive unpacks downloaded toolchain archives and works out where
// each toolchain ended up.
//
// Tar archives are read in-process. Zip and 7z archives are handed to the
// external 7z tool. A toolchain with RenameTo extracts a single top-level
// directory and moves it to its final name.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
	"github.com/hu-ti-dev/installers/internal/progress"
	"github.com/hu-ti-dev/installers/internal/runner"
)

// ErrNo7z is returned when an archive needs the external 7z tool and no
// path to it was configured.
var ErrNo7z = errors.New("7z is required to unpack this archive")

// Installer unpacks archives into a work directory.
type Installer struct {
	Runner runner.Runner

	// SevenZip is the resolved path of the 7z executable.
	SevenZip string

	// Progress, when set, shows a spinner while 7z runs.
	Progress io.Writer

	Logger log.Logger
}

// Install unpacks the archive for spec, which must already be in workDir,
// and returns spec with InstallRoot set. An archive whose format is not
// recognized is skipped: spec is returned unchanged with a nil error.
func (in *Installer) Install(ctx context.Context, workDir string, spec manifest.ToolchainSpec) (manifest.ToolchainSpec, error) {
	logger := log.OrDefault(in.Logger).With("toolchain", spec.Name, "version", spec.Version)

	name := spec.ArchiveName()
	archivePath := filepath.Join(workDir, name)
	format := DetectFormat(name)

	switch {
	case spec.RenameTo != "":
		if err := in.installRenamed(ctx, logger, workDir, archivePath, spec); err != nil {
			return spec, err
		}
		logger.Info("toolchain installed", "root", spec.RenameTo)
		return spec.WithInstallRoot(spec.RenameTo), nil

	case format.IsTar():
		logger.Info("unpacking archive", "file", name, "format", format)
		root, err := extractTarFile(archivePath, workDir, format, logger)
		if err != nil {
			return spec, fmt.Errorf("failed to unpack %s: %w", name, err)
		}
		logger.Info("toolchain installed", "root", root)
		return spec.WithInstallRoot(root), nil

	case format == FormatZip || format == Format7z:
		dir := spec.DefaultDir()
		logger.Info("unpacking archive", "file", name, "format", format, "dir", dir)
		if err := in.run7z(ctx, logger, workDir, "Unpacking "+name, "x", name, "-o"+dir, "-y"); err != nil {
			return spec, fmt.Errorf("failed to unpack %s: %w", name, err)
		}
		logger.Info("toolchain installed", "root", dir)
		return spec.WithInstallRoot(dir), nil

	default:
		logger.Debug("unrecognized archive format, skipping", "file", name)
		return spec, nil
	}
}

// installRenamed extracts only spec.ExtractDir and moves it to spec.RenameTo.
// Both directories are removed first so no stale files survive.
func (in *Installer) installRenamed(ctx context.Context, logger log.Logger, workDir, archivePath string, spec manifest.ToolchainSpec) error {
	extracted := filepath.Join(workDir, spec.ExtractDir)
	final := filepath.Join(workDir, spec.RenameTo)

	for _, dir := range []string{final, extracted} {
		logger.Debug("removing previous install", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}

	name := filepath.Base(archivePath)
	logger.Info("unpacking archive", "file", name, "extract", spec.ExtractDir)
	if err := in.run7z(ctx, logger, workDir, "Unpacking "+name, "x", name, spec.ExtractDir, "-o.", "-y"); err != nil {
		return fmt.Errorf("failed to unpack %s: %w", name, err)
	}

	logger.Info("renaming directory", "from", spec.ExtractDir, "to", spec.RenameTo)
	copied, err := moveDirectory(extracted, final)
	if copied {
		logger.Warn("rename failed, copied directory instead", "from", spec.ExtractDir, "to", spec.RenameTo)
	}
	if err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", spec.ExtractDir, spec.RenameTo, err)
	}
	return nil
}

func (in *Installer) run7z(ctx context.Context, logger log.Logger, dir, message string, args ...string) error {
	if in.SevenZip == "" {
		return ErrNo7z
	}

	var out []byte
	run := func() error {
		var err error
		out, err = in.Runner.Run(ctx, dir, in.SevenZip, args...)
		return err
	}

	var err error
	if in.Progress != nil {
		err = progress.Spin(in.Progress, message, run)
	} else {
		err = run()
	}

	for _, line := range runner.Lines(out) {
		logger.Debug("7z", "output", line)
	}
	return err
}

// ResolveVariant narrows InstallRoot to the first of spec.VariantDirs that
// exists below it, or to the last variant when none does. Specs without
// variants or without an InstallRoot are returned unchanged.
func ResolveVariant(workDir string, spec manifest.ToolchainSpec) manifest.ToolchainSpec {
	if !spec.Installed() || len(spec.VariantDirs) == 0 {
		return spec
	}

	variant := spec.VariantDirs[len(spec.VariantDirs)-1]
	for _, v := range spec.VariantDirs {
		candidate := filepath.Join(workDir, filepath.FromSlash(spec.InstallRoot), v)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			variant = v
			break
		}
	}
	return spec.WithInstallRoot(path.Join(spec.InstallRoot, variant))
}
