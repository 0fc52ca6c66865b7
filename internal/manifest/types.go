package manifest

import (
	"net/url"
	"path"
	"strings"
)

// Manifest is the static description of one course environment: the tools
// that must already be present, and everything the installer creates.
type Manifest struct {
	Tools        []ToolSpec       `toml:"tool" yaml:"tools"`
	Repositories []RepositorySpec `toml:"repository" yaml:"repositories"`
	Toolchains   []ToolchainSpec  `toml:"toolchain" yaml:"toolchains"`
	Makefile     MakefileOptions  `toml:"makefile" yaml:"makefile"`
	EnvScript    EnvScriptOptions `toml:"env_script" yaml:"env_script"`
	Projects     ProjectOptions   `toml:"projects" yaml:"projects"`
}

// ToolSpec describes a prerequisite executable.
type ToolSpec struct {
	Name       string   `toml:"name" yaml:"name"`
	Executable string   `toml:"executable" yaml:"executable"`
	Fallbacks  []string `toml:"fallbacks" yaml:"fallbacks"`
	Hint       string   `toml:"hint" yaml:"hint"`

	// MinVersion, when set, is compared against the first dotted version
	// printed by running the tool with VersionArgs.
	MinVersion  string   `toml:"min_version" yaml:"min_version"`
	VersionArgs []string `toml:"version_args" yaml:"version_args"`
}

// Tool returns the spec with the given name.
func (m *Manifest) Tool(name string) (ToolSpec, bool) {
	for _, t := range m.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSpec{}, false
}

// RepositorySpec is a remote repository cloned into the work directory.
type RepositorySpec struct {
	URL string `toml:"url" yaml:"url"`

	// Branch is checked out after cloning when non-empty.
	Branch string `toml:"branch" yaml:"branch"`
}

// Dir is the local directory name: the last URL path segment without its
// extension ("https://github.com/HU-TI-DEV/hwlib.git" -> "hwlib").
func (r RepositorySpec) Dir() string {
	base := lastSegment(r.URL)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// ToolchainSpec is a downloadable compiler or library distribution.
type ToolchainSpec struct {
	Name    string `toml:"name" yaml:"name"`
	Version string `toml:"version" yaml:"version"`
	URL     string `toml:"url" yaml:"url"`

	// ExtractDir limits extraction to one top-level directory of the archive.
	// Together with RenameTo it selects the rename install strategy.
	ExtractDir string `toml:"extract_dir" yaml:"extract_dir"`
	RenameTo   string `toml:"rename_to" yaml:"rename_to"`

	// VariantDirs lists subdirectories of the install root, in preference
	// order, one of which is the real root (e.g. mingw32 before mingw64).
	VariantDirs []string `toml:"variant_dirs" yaml:"variant_dirs"`

	// InstallRoot is set by the installer once the archive is unpacked,
	// relative to the work directory and slash-separated. Never read from
	// a manifest file.
	InstallRoot string `toml:"-" yaml:"-"`
}

// Label returns the name followed by the version, if any.
func (t ToolchainSpec) Label() string {
	if t.Version == "" {
		return t.Name
	}
	return t.Name + " " + t.Version
}

// ArchiveName is the local file name of the downloaded archive: the URL's
// last path segment.
func (t ToolchainSpec) ArchiveName() string {
	return lastSegment(t.URL)
}

// DefaultDir is the archive name up to its last dot, the directory the
// generic extractor unpacks into.
func (t ToolchainSpec) DefaultDir() string {
	name := t.ArchiveName()
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// Installed reports whether the install root has been resolved.
func (t ToolchainSpec) Installed() bool {
	return t.InstallRoot != ""
}

// WithInstallRoot returns a copy of t with InstallRoot set.
func (t ToolchainSpec) WithInstallRoot(root string) ToolchainSpec {
	t.InstallRoot = root
	return t
}

// MakefileOptions configures the Makefile.local -> Makefile.custom rewrite.
type MakefileOptions struct {
	Template       string `toml:"template" yaml:"template"`
	Output         string `toml:"output" yaml:"output"`
	StartMarker    string `toml:"start_marker" yaml:"start_marker"`
	EndMarker      string `toml:"end_marker" yaml:"end_marker"`
	RelativePrefix string `toml:"relative_prefix" yaml:"relative_prefix"`
	Separator      string `toml:"separator" yaml:"separator"`
}

// EnvScriptOptions configures the generated environment script.
type EnvScriptOptions struct {
	Output string `toml:"output" yaml:"output"`

	// PathTools names tools whose directory is added to PATH when they
	// were found outside the search path.
	PathTools []string `toml:"path_tools" yaml:"path_tools"`

	// PathDirs are work-directory-relative directories always added to PATH.
	PathDirs []string `toml:"path_dirs" yaml:"path_dirs"`

	Variables []EnvVariable `toml:"variable" yaml:"variables"`
}

// EnvVariable defines an environment variable pointing at a directory
// relative to the work directory.
type EnvVariable struct {
	Name string `toml:"name" yaml:"name"`
	Dir  string `toml:"dir" yaml:"dir"`
}

// ProjectOptions configures per-project CMakeLists generation.
type ProjectOptions struct {
	Dirs        []string        `toml:"dirs" yaml:"dirs"`
	Template    string          `toml:"template" yaml:"template"`
	Output      string          `toml:"output" yaml:"output"`
	Placeholder string          `toml:"placeholder" yaml:"placeholder"`
	Generator   GeneratorConfig `toml:"generator" yaml:"generator"`
}

// GeneratorConfig is the build-metadata generator run inside each project.
type GeneratorConfig struct {
	Tool   string   `toml:"tool" yaml:"tool"`
	Script string   `toml:"script" yaml:"script"`
	Args   []string `toml:"args" yaml:"args"`
}

func lastSegment(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return raw[strings.LastIndex(raw, "/")+1:]
}
