package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Validate checks the manifest for problems that would otherwise surface
// halfway through an installation. All problems are reported together.
func (m *Manifest) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	tools := make(map[string]bool)
	for i, t := range m.Tools {
		switch {
		case t.Name == "":
			add("tool #%d: name is required", i+1)
		case tools[t.Name]:
			add("tool %q: duplicate name", t.Name)
		}
		tools[t.Name] = true
		if t.MinVersion != "" {
			if _, err := semver.NewVersion(t.MinVersion); err != nil {
				add("tool %q: invalid min_version %q: %v", t.Name, t.MinVersion, err)
			}
		}
	}

	dirs := make(map[string]bool)
	for i, r := range m.Repositories {
		if r.URL == "" {
			add("repository #%d: url is required", i+1)
			continue
		}
		dir := r.Dir()
		if dir == "" {
			add("repository %q: cannot derive a directory name", r.URL)
			continue
		}
		if dirs[dir] {
			add("repository %q: directory %q used twice", r.URL, dir)
		}
		dirs[dir] = true
	}

	names := make(map[string]bool)
	for i, tc := range m.Toolchains {
		if tc.Name == "" {
			add("toolchain #%d: name is required", i+1)
			continue
		}
		if names[tc.Name] {
			add("toolchain %q: duplicate name", tc.Name)
		}
		names[tc.Name] = true
		if tc.URL == "" || tc.ArchiveName() == "" {
			add("toolchain %q: url must end in an archive file name", tc.Name)
		}
		if tc.Version != "" {
			if _, err := semver.NewVersion(tc.Version); err != nil {
				add("toolchain %q: invalid version %q: %v", tc.Name, tc.Version, err)
			}
		}
		if tc.RenameTo != "" && tc.ExtractDir == "" {
			add("toolchain %q: rename_to requires extract_dir", tc.Name)
		}
	}
	if err := checkPrefixDisjoint(m.Toolchains); err != nil {
		errs = append(errs, err)
	}

	if len(m.Toolchains) > 0 && (m.Makefile.Template == "" || m.Makefile.Output == "") {
		add("makefile: template and output are required")
	}
	if m.Makefile.Template != "" && m.Makefile.Template == m.Makefile.Output {
		add("makefile: output must differ from template")
	}

	for _, name := range m.EnvScript.PathTools {
		if !tools[name] {
			add("env_script: path_tools references unknown tool %q", name)
		}
	}
	for _, v := range m.EnvScript.Variables {
		if v.Name == "" || strings.ContainsAny(v.Name, "= \t") {
			add("env_script: invalid variable name %q", v.Name)
		}
	}

	if len(m.Projects.Dirs) > 0 && m.Projects.Template == "" {
		add("projects: template is required")
	}
	if g := m.Projects.Generator.Tool; g != "" && !tools[g] {
		add("projects: generator references unknown tool %q", g)
	}

	return errors.Join(errs...)
}

// checkPrefixDisjoint rejects toolchain names where one is a prefix of
// another. The Makefile rewrite matches declarations by prefix, so
// overlapping names would make the first listed toolchain win silently.
func checkPrefixDisjoint(toolchains []ToolchainSpec) error {
	for i, a := range toolchains {
		for j, b := range toolchains {
			if i == j || a.Name == "" || b.Name == "" || a.Name == b.Name {
				continue
			}
			if strings.HasPrefix(b.Name, a.Name) {
				return fmt.Errorf("toolchain %q is a prefix of %q; declaration matching would be ambiguous", a.Name, b.Name)
			}
		}
	}
	return nil
}
