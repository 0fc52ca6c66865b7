// Package testutil holds fixtures shared by package tests: tar archives
// of toolchain layouts and small file assertions on a work directory.
package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TarEntry is one member of a generated tar archive.
type TarEntry struct {
	Name     string
	Typeflag byte
	Content  string
	Linkname string

	// PAXRecords is only used by global header entries.
	PAXRecords map[string]string
}

// Dir returns a directory entry.
func Dir(name string) TarEntry {
	return TarEntry{Name: name, Typeflag: tar.TypeDir}
}

// File returns a regular file entry.
func File(name, content string) TarEntry {
	return TarEntry{Name: name, Typeflag: tar.TypeReg, Content: content}
}

// GlobalHeader returns a PAX global header entry as written by git archive.
func GlobalHeader(commit string) TarEntry {
	return TarEntry{
		Name:       "pax_global_header",
		Typeflag:   tar.TypeXGlobalHeader,
		PAXRecords: map[string]string{"comment": commit},
	}
}

// Hardlink returns a hardlink entry. target is relative to the archive root.
func Hardlink(name, target string) TarEntry {
	return TarEntry{Name: name, Typeflag: tar.TypeLink, Linkname: target}
}

// WriteTar writes entries as an uncompressed tar stream to w.
func WriteTar(t *testing.T, w io.Writer, entries []TarEntry) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, e := range entries {
		if e.Typeflag == tar.TypeXGlobalHeader {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: e.Name, Typeflag: e.Typeflag, PAXRecords: e.PAXRecords}))
			continue
		}
		hdr := &tar.Header{Name: e.Name, Typeflag: e.Typeflag, Mode: 0644, Linkname: e.Linkname}
		switch e.Typeflag {
		case tar.TypeDir:
			hdr.Mode = 0755
		case tar.TypeReg:
			hdr.Size = int64(len(e.Content))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
}

// TarGz returns entries as a gzip-compressed tar archive.
func TarGz(t *testing.T, entries []TarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	WriteTar(t, gzw, entries)
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

// WriteFile writes content to dir/rel, creating parent directories.
// rel is slash-separated.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertFileExists fails the test if dir/rel does not exist.
func AssertFileExists(t *testing.T, dir, rel string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if !FileExists(path) {
		t.Errorf("expected %s to exist", path)
	}
}

// AssertFileNotExists fails the test if dir/rel exists.
func AssertFileNotExists(t *testing.T, dir, rel string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if FileExists(path) {
		t.Errorf("expected %s not to exist", path)
	}
}
