// Package envscript writes the batch script that puts the installed
// tools on PATH for a new command prompt.
package envscript

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hu-ti-dev/installers/internal/locate"
	"github.com/hu-ti-dev/installers/internal/log"
	"github.com/hu-ti-dev/installers/internal/manifest"
)

// Render writes the script to w. The directory of each tool named in
// opts.PathTools is prepended to PATH only when the tool was found outside
// the search path. opts.PathDirs are always prepended, followed by one SET
// per opts.Variables entry. workDir is the absolute work directory as it
// should appear in the script.
func Render(w io.Writer, workDir string, tools locate.Tools, opts manifest.EnvScriptOptions) error {
	lines := []string{"@echo off"}

	for _, name := range opts.PathTools {
		ref, ok := tools.Get(name)
		if !ok || !ref.Found() || ref.OnSearchPath {
			continue
		}
		lines = append(lines, set("PATH", ref.Dir()+";%PATH%"))
	}
	for _, dir := range opts.PathDirs {
		lines = append(lines, set("PATH", windowsJoin(workDir, dir)+";%PATH%"))
	}
	for _, v := range opts.Variables {
		lines = append(lines, set(v.Name, windowsJoin(workDir, v.Dir)))
	}

	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write renders the script into workDir/opts.Output and returns its path.
func Write(workDir string, tools locate.Tools, opts manifest.EnvScriptOptions, logger log.Logger) (string, error) {
	logger = log.OrDefault(logger)
	path := filepath.Join(workDir, filepath.FromSlash(opts.Output))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Render(f, workDir, tools, opts); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("wrote environment script", "file", path)
	return path, nil
}

// set returns a SET statement. Values with whitespace use the quoted
// form so cmd.exe keeps them in one piece.
func set(name, value string) string {
	if strings.ContainsAny(value, " \t") {
		return fmt.Sprintf(`SET "%s=%s"`, name, value)
	}
	return fmt.Sprintf("SET %s=%s", name, value)
}

// windowsJoin appends a slash-separated relative path to base using
// backslashes.
func windowsJoin(base, rel string) string {
	base = strings.TrimRight(base, `/\`)
	rel = strings.ReplaceAll(strings.Trim(rel, `/\`), "/", `\`)
	if rel == "" {
		return base
	}
	return base + `\` + rel
}
