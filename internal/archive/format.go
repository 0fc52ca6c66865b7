package archive

import "strings"

// Format identifies how an archive is unpacked.
type Format string

const (
	FormatTarGz  Format = "tar.gz"
	FormatTarXz  Format = "tar.xz"
	FormatTarBz2 Format = "tar.bz2"
	FormatTarZst Format = "tar.zst"
	FormatTarLz  Format = "tar.lz"
	FormatTar    Format = "tar"
	FormatZip    Format = "zip"
	Format7z     Format = "7z"

	FormatUnknown Format = "unknown"
)

// IsTar reports whether the format is read by the internal tar extractor.
func (f Format) IsTar() bool {
	switch f {
	case FormatTarGz, FormatTarXz, FormatTarBz2, FormatTarZst, FormatTarLz, FormatTar:
		return true
	}
	return false
}

// DetectFormat derives the format from the archive file name.
func DetectFormat(filename string) Format {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return FormatTarXz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"), strings.HasSuffix(lower, ".tbz"):
		return FormatTarBz2
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZst
	case strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".tlz"):
		return FormatTarLz
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".7z"):
		return Format7z
	default:
		return FormatUnknown
	}
}
