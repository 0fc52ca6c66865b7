package makefile

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hu-ti-dev/installers/internal/manifest"
)

var defaultOptions = manifest.MakefileOptions{
	Template:       "bmptk/Makefile.local",
	Output:         "bmptk/Makefile.custom",
	StartMarker:    "ifeq ($(OS),Windows_NT",
	EndMarker:      "else",
	RelativePrefix: `..\..\`,
	Separator:      `\`,
}

const template = `# bmptk local configuration
GCC-ARM ?= /usr/bin/arm
ifeq ($(OS),Windows_NT)
   # toolchains on windows
   GCC-ARM          ?= C:\old\arm

   GCC-WIN ?= C:\old\win
   GCC-AVR ?= C:\old\avr
   SFML-PATH := somewhere
   OTHER ?= keep
else
   GCC-ARM ?= /opt/arm
endif
`

func installed() []manifest.ToolchainSpec {
	return []manifest.ToolchainSpec{
		manifest.ToolchainSpec{Name: "GCC-ARM"}.WithInstallRoot("gcc-arm-none-eabi-9-2019-q4-major"),
		manifest.ToolchainSpec{Name: "GCC-WIN"}.WithInstallRoot("i686-7.3.0-release-posix-dwarf-rt_v5-rev0/mingw32"),
		{Name: "GCC-AVR"},
		manifest.ToolchainSpec{Name: "SFML"}.WithInstallRoot("SFML-2.5.1-32"),
	}
}

func rewrite(t *testing.T, input string, toolchains []manifest.ToolchainSpec) (string, Result) {
	t.Helper()
	var out bytes.Buffer
	rw := &Rewriter{Options: defaultOptions}
	res, err := rw.Rewrite(strings.NewReader(input), &out, toolchains)
	require.NoError(t, err)
	return out.String(), res
}

func TestRewrite_RegionDeclarations(t *testing.T) {
	got, res := rewrite(t, template, installed())

	want := `# bmptk local configuration
GCC-ARM ?= /usr/bin/arm
ifeq ($(OS),Windows_NT)
   # toolchains on windows
   GCC-ARM          ?= ..\..\gcc-arm-none-eabi-9-2019-q4-major

   GCC-WIN          ?= ..\..\i686-7.3.0-release-posix-dwarf-rt_v5-rev0\mingw32
   GCC-AVR ?= C:\old\avr
   SFML-PATH := somewhere
   OTHER ?= keep
else
   GCC-ARM ?= /opt/arm
endif
`
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"GCC-ARM", "GCC-WIN"}, res.Rewritten)
	assert.True(t, res.RegionFound)
	assert.Equal(t, 13, res.Lines)
}

func TestRewrite_ExactDeclarationFormat(t *testing.T) {
	toolchains := []manifest.ToolchainSpec{
		manifest.ToolchainSpec{Name: "GCC-ARM"}.WithInstallRoot("C:/toolchains/arm"),
	}
	got, _ := rewrite(t, "ifeq ($(OS),Windows_NT)\nGCC-ARM ?= x\nelse\n", toolchains)
	assert.Equal(t, "ifeq ($(OS),Windows_NT)\n   GCC-ARM          ?= ..\\..\\C:\\toolchains\\arm\nelse\n", got)
}

func TestRewrite_NoMarkersIsIdentity(t *testing.T) {
	input := "GCC-ARM ?= a\n\n# comment\nGCC-WIN ?= b\nno newline at end"
	got, res := rewrite(t, input, installed())
	assert.Equal(t, input, got)
	assert.Empty(t, res.Rewritten)
	assert.False(t, res.RegionFound)
}

func TestRewrite_PreservesCRLF(t *testing.T) {
	input := "ifeq ($(OS),Windows_NT)\r\n  GCC-ARM ?= x\r\n  KEEP = 1\r\nelse\r\n  GCC-ARM ?= y\r\n"
	got, _ := rewrite(t, input, installed())
	assert.Equal(t, "ifeq ($(OS),Windows_NT)\r\n   GCC-ARM          ?= ..\\..\\gcc-arm-none-eabi-9-2019-q4-major\r\n  KEEP = 1\r\nelse\r\n  GCC-ARM ?= y\r\n", got)
}

func TestRewrite_NamePrefixMustBeWholeWord(t *testing.T) {
	input := "ifeq ($(OS),Windows_NT)\nGCC-ARM-EXTRA ?= x\nGCC-ARM:=y\nGCC-ARM\n"
	got, res := rewrite(t, input, installed())
	lines := strings.Split(got, "\n")
	assert.Equal(t, "GCC-ARM-EXTRA ?= x", lines[1])
	assert.Equal(t, "   GCC-ARM          ?= ..\\..\\gcc-arm-none-eabi-9-2019-q4-major", lines[2])
	assert.Equal(t, "   GCC-ARM          ?= ..\\..\\gcc-arm-none-eabi-9-2019-q4-major", lines[3])
	assert.Equal(t, []string{"GCC-ARM", "GCC-ARM"}, res.Rewritten)
}

func TestRewrite_CommentedDeclarationUntouched(t *testing.T) {
	input := "ifeq ($(OS),Windows_NT)\n  # GCC-ARM ?= x\nelse\n"
	got, res := rewrite(t, input, installed())
	assert.Equal(t, input, got)
	assert.Empty(t, res.Rewritten)
}

func TestRewrite_RegionReopens(t *testing.T) {
	input := "ifeq ($(OS),Windows_NT)\nGCC-ARM ?= a\nelse\nGCC-ARM ?= b\nendif\nifeq ($(OS),Windows_NT)\nGCC-ARM ?= c\nendif\n"
	_, res := rewrite(t, input, installed())
	assert.Equal(t, []string{"GCC-ARM", "GCC-ARM"}, res.Rewritten)
}

func TestRewriteFile(t *testing.T) {
	work := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(work, "bmptk"), 0755))
	templatePath := filepath.Join(work, "bmptk", "Makefile.local")
	require.NoError(t, os.WriteFile(templatePath, []byte(template), 0644))

	rw := &Rewriter{Options: defaultOptions}
	res, err := rw.RewriteFile(work, installed())
	require.NoError(t, err)
	assert.Len(t, res.Rewritten, 2)

	original, err := os.ReadFile(templatePath)
	require.NoError(t, err)
	assert.Equal(t, template, string(original), "template must not change")

	custom, err := os.ReadFile(filepath.Join(work, "bmptk", "Makefile.custom"))
	require.NoError(t, err)
	assert.Contains(t, string(custom), `   GCC-ARM          ?= ..\..\gcc-arm-none-eabi-9-2019-q4-major`)
}

func TestRewriteFile_MissingTemplate(t *testing.T) {
	rw := &Rewriter{Options: defaultOptions}
	_, err := rw.RewriteFile(t.TempDir(), installed())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
