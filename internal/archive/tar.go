package archive

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"

	"github.com/hu-ti-dev/installers/internal/log"
)

// extractTarFile unpacks the tar archive at archivePath into destPath and
// returns the top-level directory of its first extracted entry.
func extractTarFile(archivePath, destPath string, format Format, logger log.Logger) (string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	var r io.Reader
	switch format {
	case FormatTarGz:
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return "", fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	case FormatTarXz:
		xzr, err := xz.NewReader(file)
		if err != nil {
			return "", fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xzr
	case FormatTarBz2:
		r = bzip2.NewReader(file)
	case FormatTarZst:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return "", fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	case FormatTarLz:
		lr, err := lzip.NewReader(file)
		if err != nil {
			return "", fmt.Errorf("failed to create lzip reader: %w", err)
		}
		r = lr
	case FormatTar:
		r = file
	default:
		return "", fmt.Errorf("not a tar format: %s", format)
	}

	return extractTarReader(tar.NewReader(r), destPath, logger)
}

// extractTarReader writes every entry of tr below destPath. Entries, symlink
// targets and hardlink targets that would land outside destPath are
// rejected. Metadata records such as PAX global headers carry no file and
// never determine the root.
func extractTarReader(tr *tar.Reader, destPath string, logger log.Logger) (string, error) {
	logger = log.OrDefault(logger)
	var root string
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return root, fmt.Errorf("failed to read tar header: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir, tar.TypeReg, tar.TypeSymlink, tar.TypeLink:
		case tar.TypeXGlobalHeader:
			continue
		default:
			logger.Warn("skipping unsupported tar entry", "name", header.Name, "type", string(header.Typeflag))
			continue
		}

		cleanPath := strings.TrimPrefix(header.Name, "./")
		if cleanPath == "" || cleanPath == "." {
			continue
		}
		if root == "" {
			root = topLevel(cleanPath)
		}

		target := filepath.Join(destPath, filepath.FromSlash(cleanPath))
		if !isPathWithinDirectory(target, destPath) {
			return root, fmt.Errorf("archive entry escapes destination directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return root, fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return root, fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := writeEntry(target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return root, err
			}

		case tar.TypeSymlink:
			if err := validateSymlinkTarget(header.Linkname, target, destPath); err != nil {
				return root, err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return root, fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := atomicSymlink(header.Linkname, target); err != nil {
				return root, fmt.Errorf("failed to create symlink: %w", err)
			}

		case tar.TypeLink:
			if err := extractHardlink(header, target, destPath); err != nil {
				return root, err
			}
		}
	}

	if root == "" {
		return "", errors.New("archive is empty")
	}
	return root, nil
}

// extractHardlink recreates a hardlink entry. The link name is relative to
// the archive root, so the linked file was extracted earlier. Filesystems
// without hardlink support get a copy.
func extractHardlink(header *tar.Header, target, destPath string) error {
	source := filepath.Join(destPath, filepath.FromSlash(strings.TrimPrefix(header.Linkname, "./")))
	if !isPathWithinDirectory(source, destPath) {
		return fmt.Errorf("hardlink target escapes destination directory: %s -> %s", header.Name, header.Linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	_ = os.Remove(target)
	if err := os.Link(source, target); err == nil {
		return nil
	}
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("hardlink target missing: %s -> %s: %w", header.Name, header.Linkname, err)
	}
	return copyFile(source, target, info.Mode())
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	return f.Close()
}

func topLevel(name string) string {
	if i := strings.Index(name, "/"); i >= 0 {
		return name[:i]
	}
	return name
}

// isPathWithinDirectory reports whether targetPath lies inside basePath.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolved, destPath) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s (resolves to %s)",
			linkLocation, linkTarget, resolved)
	}
	return nil
}

// atomicSymlink replaces linkPath with a symlink to target via rename.
func atomicSymlink(target, linkPath string) error {
	tmpLink := linkPath + ".tmp"
	_ = os.Remove(tmpLink)

	if err := os.Symlink(target, tmpLink); err != nil {
		return err
	}
	if err := os.Rename(tmpLink, linkPath); err != nil {
		_ = os.Remove(tmpLink)
		return err
	}
	return nil
}
