// Package makefile produces the local build configuration from its
// template by pointing each toolchain variable at the unpacked toolchain.
//
// Only declarations inside the Windows region of the template are touched:
// the region opens on a line containing the start marker and closes on the
// next line containing the end marker. Every other line is copied through
// unchanged, line ending included.
package makefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
)

// lineKind classifies a template line.
type lineKind int

const (
	lineOther lineKind = iota
	lineBlank
	lineComment
	lineMarker
)

// Result summarizes one rewrite.
type Result struct {
	// Rewritten lists the toolchains whose declaration was replaced, in
	// template order. A toolchain declared twice appears twice.
	Rewritten []string

	// RegionFound reports whether the start marker occurred at all.
	RegionFound bool

	Lines int
}

// Rewriter rewrites toolchain declarations.
type Rewriter struct {
	Options manifest.MakefileOptions
	Logger  log.Logger
}

// Rewrite copies the template from r to w, replacing each declaration of
// an installed toolchain inside the region with
//
//	"   " + name + "          ?= " + RelativePrefix + root
//
// where root is the toolchain's InstallRoot using Options.Separator.
// Toolchains that are not installed keep their original line.
func (rw *Rewriter) Rewrite(r io.Reader, w io.Writer, toolchains []manifest.ToolchainSpec) (Result, error) {
	logger := log.OrDefault(rw.Logger)

	var res Result
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	inside := false

	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return res, fmt.Errorf("failed to read template: %w", readErr)
		}
		if raw == "" {
			break
		}
		res.Lines++

		body, ending := splitEnding(raw)
		kind := classify(body)

		if inside {
			if strings.Contains(body, rw.Options.EndMarker) {
				inside = false
				kind = lineMarker
			}
		} else if strings.Contains(body, rw.Options.StartMarker) {
			inside = true
			kind = lineMarker
			res.RegionFound = true
		}

		out := raw
		if inside && kind == lineOther {
			if tc, ok := matchDeclaration(body, toolchains); ok {
				if tc.Installed() {
					out = rw.declaration(tc) + ending
					res.Rewritten = append(res.Rewritten, tc.Name)
					logger.Debug("rewrote toolchain declaration", "toolchain", tc.Name, "line", res.Lines)
				} else {
					logger.Debug("toolchain not installed, keeping declaration", "toolchain", tc.Name, "line", res.Lines)
				}
			}
		}

		if _, err := bw.WriteString(out); err != nil {
			return res, fmt.Errorf("failed to write output: %w", err)
		}
		if readErr != nil {
			break
		}
	}

	if err := bw.Flush(); err != nil {
		return res, fmt.Errorf("failed to write output: %w", err)
	}
	return res, nil
}

// RewriteFile reads Options.Template and writes Options.Output, both
// relative to workDir. The template itself is never modified.
func (rw *Rewriter) RewriteFile(workDir string, toolchains []manifest.ToolchainSpec) (Result, error) {
	templatePath := filepath.Join(workDir, filepath.FromSlash(rw.Options.Template))
	outputPath := filepath.Join(workDir, filepath.FromSlash(rw.Options.Output))

	in, err := os.Open(templatePath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open template: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create %s: %w", outputPath, err)
	}

	res, err := rw.Rewrite(in, out, toolchains)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write %s: %w", outputPath, closeErr)
	}
	if err != nil {
		return res, err
	}

	logger := log.OrDefault(rw.Logger)
	if !res.RegionFound {
		logger.Warn("template has no Windows region, output is a plain copy", "template", rw.Options.Template)
	}
	logger.Info("wrote build configuration", "file", rw.Options.Output, "rewritten", len(res.Rewritten))
	return res, nil
}

func (rw *Rewriter) declaration(tc manifest.ToolchainSpec) string {
	root := tc.InstallRoot
	if rw.Options.Separator != "" {
		root = strings.ReplaceAll(root, "/", rw.Options.Separator)
	}
	return "   " + tc.Name + "          ?= " + rw.Options.RelativePrefix + root
}

func classify(body string) lineKind {
	trimmed := strings.TrimSpace(body)
	switch {
	case trimmed == "":
		return lineBlank
	case strings.HasPrefix(trimmed, "#"):
		return lineComment
	default:
		return lineOther
	}
}

// matchDeclaration returns the first toolchain whose name begins the
// trimmed line as a whole word.
func matchDeclaration(body string, toolchains []manifest.ToolchainSpec) (manifest.ToolchainSpec, bool) {
	trimmed := strings.TrimSpace(body)
	for _, tc := range toolchains {
		if tc.Name == "" || !strings.HasPrefix(trimmed, tc.Name) {
			continue
		}
		rest := trimmed[len(tc.Name):]
		if rest == "" || strings.ContainsRune(" \t?:=+", rune(rest[0])) {
			return tc, true
		}
	}
	return manifest.ToolchainSpec{}, false
}

func splitEnding(raw string) (body, ending string) {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return raw[:len(raw)-2], "\r\n"
	case strings.HasSuffix(raw, "\n"):
		return raw[:len(raw)-1], "\n"
	default:
		return raw, ""
	}
}
