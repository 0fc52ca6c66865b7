// Package manifest loads the static description of a course environment:
// prerequisite tools, repositories, toolchains and the generated files.
//
// The built-in manifest is embedded from default.toml. A replacement can be
// given as TOML or YAML; both use the same keys.
package manifest

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed default.toml
var defaultManifest []byte

// Format is a manifest serialization format.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// Default returns the built-in manifest.
func Default() (*Manifest, error) {
	m, err := Parse(defaultManifest, FormatTOML)
	if err != nil {
		return nil, fmt.Errorf("built-in manifest: %w", err)
	}
	return m, nil
}

// Load reads the manifest at path, or the built-in one when path is empty.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes, fills defaults and validates a manifest. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Parse(data []byte, format Format) (*Manifest, error) {
	m := &Manifest{}
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), m)
		if err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown manifest keys: %v", undecoded)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	for i := range m.Tools {
		if m.Tools[i].Executable == "" {
			m.Tools[i].Executable = m.Tools[i].Name
		}
	}
	if m.Makefile.StartMarker == "" {
		m.Makefile.StartMarker = "ifeq ($(OS),Windows_NT"
	}
	if m.Makefile.EndMarker == "" {
		m.Makefile.EndMarker = "else"
	}
	if m.Makefile.Separator == "" {
		m.Makefile.Separator = `\`
	}
	if m.EnvScript.Output == "" {
		m.EnvScript.Output = "set_env.bat"
	}
	if m.Projects.Output == "" {
		m.Projects.Output = "CMakeLists.txt"
	}
	if m.Projects.Placeholder == "" {
		m.Projects.Placeholder = "your-project-name"
	}
}
