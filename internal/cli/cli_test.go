package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/mktree/internal/app"
	"github.com/tyemirov/mktree/internal/utils"
)

const layoutDiagram = `demo/
├── src/
│   └── main.go
├── docs/
│   └── guide.md
└── README.md
`

type stubClipboard struct {
	content string
	copied  []string
}

func (clipboard *stubClipboard) Read() (string, error) {
	return clipboard.content, nil
}

func (clipboard *stubClipboard) Copy(text string) error {
	clipboard.copied = append(clipboard.copied, text)
	return nil
}

type commandHarness struct {
	filesystem       afero.Fs
	clipboard        *stubClipboard
	workingDirectory string
	stdout           bytes.Buffer
	stderr           bytes.Buffer
}

func newCommandHarness(t *testing.T) *commandHarness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	harness := &commandHarness{
		filesystem:       afero.NewMemMapFs(),
		clipboard:        &stubClipboard{},
		workingDirectory: t.TempDir(),
	}
	if err := afero.WriteFile(harness.filesystem, utils.DefaultStructureFileName, []byte(layoutDiagram), 0o644); err != nil {
		t.Fatalf("write structure file: %v", err)
	}
	return harness
}

func (harness *commandHarness) execute(arguments ...string) error {
	harness.stdout.Reset()
	harness.stderr.Reset()
	rootCommand := createRootCommand(environment{
		stdout:           &harness.stdout,
		stderr:           &harness.stderr,
		stdin:            strings.NewReader(""),
		filesystem:       harness.filesystem,
		clipboard:        harness.clipboard,
		workingDirectory: harness.workingDirectory,
		logger:           zap.NewNop(),
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	return rootCommand.Execute()
}

func (harness *commandHarness) assertExists(t *testing.T, path string, directory bool) {
	t.Helper()
	info, err := harness.filesystem.Stat(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
	if info.IsDir() != directory {
		t.Fatalf("unexpected kind for %s: directory=%v", path, info.IsDir())
	}
}

func TestRootCommandCreatesStructure(t *testing.T) {
	harness := newCommandHarness(t)
	if err := harness.execute("--base", "out"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	harness.assertExists(t, filepath.Join("out", "src"), true)
	harness.assertExists(t, filepath.Join("out", "src", "main.go"), false)
	harness.assertExists(t, filepath.Join("out", "README.md"), false)
	if exists, _ := afero.DirExists(harness.filesystem, filepath.Join("out", "demo")); exists {
		t.Fatalf("root directory must not be created without --use-root")
	}

	outputText := harness.stdout.String()
	for _, expected := range []string{
		"Created directory: " + filepath.Join("out", "src") + "/",
		"Created file: " + filepath.Join("out", "docs", "guide.md"),
		"Files created: 3",
		"Operation completed successfully!",
	} {
		if !strings.Contains(outputText, expected) {
			t.Fatalf("expected %q in output:\n%s", expected, outputText)
		}
	}
}

func TestRootCommandUseRootBuildsInsideDeclaredRoot(t *testing.T) {
	harness := newCommandHarness(t)
	if err := harness.execute("--use-root", "--base", "out"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	harness.assertExists(t, filepath.Join("out", "demo", "src", "main.go"), false)
	if !strings.Contains(harness.stdout.String(), "Created root directory: "+filepath.Join("out", "demo")+"/") {
		t.Fatalf("expected root line in output:\n%s", harness.stdout.String())
	}
}

func TestCheckOnlyReportsMissingWithoutCreating(t *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "check_only_flag", arguments: []string{"--check-only", "--base", "out"}},
		{name: "check_subcommand", arguments: []string{"check", "--base", "out"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newCommandHarness(t)
			err := harness.execute(testCase.arguments...)
			if !errors.Is(err, app.ErrCheckFailed) {
				t.Fatalf("expected ErrCheckFailed, got %v", err)
			}
			if exists, _ := afero.Exists(harness.filesystem, "out"); exists {
				t.Fatalf("check must not create anything")
			}
			if !strings.Contains(harness.stdout.String(), "Structure is incomplete") {
				t.Fatalf("unexpected output:\n%s", harness.stdout.String())
			}

			if err := harness.execute("--base", "out"); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if err := harness.execute(testCase.arguments...); err != nil {
				t.Fatalf("expected complete structure, got %v", err)
			}
			if !strings.Contains(harness.stdout.String(), "Structure is complete") {
				t.Fatalf("unexpected output:\n%s", harness.stdout.String())
			}
		})
	}
}

func TestRootCommandExclusionsAndSilentMode(t *testing.T) {
	harness := newCommandHarness(t)
	if err := harness.execute("-s", "-e", "docs/", "-e", "*.md", "--base", "out"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if harness.stdout.Len() != 0 {
		t.Fatalf("silent mode printed output:\n%s", harness.stdout.String())
	}
	harness.assertExists(t, filepath.Join("out", "src", "main.go"), false)
	for _, excluded := range []string{"docs", "README.md"} {
		if exists, _ := afero.Exists(harness.filesystem, filepath.Join("out", excluded)); exists {
			t.Fatalf("excluded path %s was created", excluded)
		}
	}
}

func TestRootCommandReadsIgnoreFile(t *testing.T) {
	harness := newCommandHarness(t)
	ignorePath := filepath.Join(harness.workingDirectory, utils.IgnoreFileName)
	if err := os.WriteFile(ignorePath, []byte("# vendored\nsrc/\n"), 0o644); err != nil {
		t.Fatalf("write ignore file: %v", err)
	}
	if err := harness.execute("--base", "out"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if exists, _ := afero.Exists(harness.filesystem, filepath.Join("out", "src")); exists {
		t.Fatalf("ignored directory was created")
	}
	if !strings.Contains(harness.stdout.String(), "Skipped entries: 2") {
		t.Fatalf("unexpected output:\n%s", harness.stdout.String())
	}
}

func TestRootCommandJSONFormat(t *testing.T) {
	harness := newCommandHarness(t)
	if err := harness.execute("--format", "JSON", "--base", "out"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	outputText := strings.TrimSpace(harness.stdout.String())
	if !strings.HasPrefix(outputText, "[") || !strings.HasSuffix(outputText, "]") {
		t.Fatalf("expected a JSON array, got:\n%s", outputText)
	}
	if !strings.Contains(outputText, `"path": "src/main.go"`) {
		t.Fatalf("expected entry event in output:\n%s", outputText)
	}
}

func TestConfigurationSuppliesDefaultsAndFlagsOverride(t *testing.T) {
	harness := newCommandHarness(t)
	configuration := "format: xml\nbase: configured\nexclude:\n  - docs/\n"
	configPath := filepath.Join(harness.workingDirectory, utils.ConfigFileName)
	if err := os.WriteFile(configPath, []byte(configuration), 0o644); err != nil {
		t.Fatalf("write configuration: %v", err)
	}

	if err := harness.execute(); err != nil {
		t.Fatalf("execute with configuration: %v", err)
	}
	if !strings.HasPrefix(harness.stdout.String(), "<?xml") {
		t.Fatalf("expected XML output, got:\n%s", harness.stdout.String())
	}
	harness.assertExists(t, filepath.Join("configured", "src"), true)
	if exists, _ := afero.Exists(harness.filesystem, filepath.Join("configured", "docs")); exists {
		t.Fatalf("configured exclusion was ignored")
	}

	if err := harness.execute("--format", "raw", "--base", "flagged"); err != nil {
		t.Fatalf("execute with overrides: %v", err)
	}
	if !strings.Contains(harness.stdout.String(), "Operation completed successfully!") {
		t.Fatalf("expected raw output, got:\n%s", harness.stdout.String())
	}
	harness.assertExists(t, filepath.Join("flagged", "README.md"), false)
}

func TestRootCommandRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		expected  string
	}{
		{name: "unknown_format", arguments: []string{"--format", "toon"}, expected: "invalid format value 'toon'"},
		{name: "tree_format_is_parse_only", arguments: []string{"--format", "tree"}, expected: "invalid format value 'tree'"},
		{name: "bad_directory_mode", arguments: []string{"--dir-mode", "999"}, expected: "999"},
		{name: "missing_structure_file", arguments: []string{"absent.txt"}, expected: "absent.txt"},
		{name: "missing_served_root", arguments: []string{"serve", "--root", "/does/not/exist"}, expected: "resolve served root"},
		{name: "too_many_arguments", arguments: []string{"a.txt", "b.txt"}, expected: "accepts at most 1 arg"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newCommandHarness(t)
			err := harness.execute(testCase.arguments...)
			if err == nil || !strings.Contains(err.Error(), testCase.expected) {
				t.Fatalf("expected error containing %q, got %v", testCase.expected, err)
			}
		})
	}
}

func TestParseCommandFormats(t *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		expected  []string
	}{
		{
			name:      "default_tree",
			arguments: []string{"parse"},
			expected:  []string{"demo/", "├── src/", "│   └── main.go", "└── README.md"},
		},
		{
			name:      "raw_paths",
			arguments: []string{"parse", "--format", "raw"},
			expected:  []string{"src/", "src/main.go", "docs/guide.md"},
		},
		{
			name:      "yaml",
			arguments: []string{"parse", "--format", "yaml", "--use-root"},
			expected:  []string{"root: demo", "path: docs/guide.md", "kind: file"},
		},
		{
			name:      "json",
			arguments: []string{"parse", "--format", "json"},
			expected:  []string{`"root": "demo"`, `"path": "src"`, `"kind": "directory"`},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newCommandHarness(t)
			if err := harness.execute(testCase.arguments...); err != nil {
				t.Fatalf("execute: %v", err)
			}
			for _, expected := range testCase.expected {
				if !strings.Contains(harness.stdout.String(), expected) {
					t.Fatalf("expected %q in output:\n%s", expected, harness.stdout.String())
				}
			}
			if exists, _ := afero.Exists(harness.filesystem, "src"); exists {
				t.Fatalf("parse must not touch the filesystem")
			}
		})
	}
}

func TestParseCommandClipboardRoundTrip(t *testing.T) {
	harness := newCommandHarness(t)
	harness.clipboard.content = "app/\n└── main.go\n"
	if err := harness.execute("parse", "--clipboard", "--format", "raw", "--copy"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(harness.clipboard.copied) != 1 {
		t.Fatalf("expected one clipboard write, got %d", len(harness.clipboard.copied))
	}
	if harness.clipboard.copied[0] != harness.stdout.String() {
		t.Fatalf("clipboard content %q differs from output %q", harness.clipboard.copied[0], harness.stdout.String())
	}
	if !strings.Contains(harness.stdout.String(), "main.go") {
		t.Fatalf("unexpected output:\n%s", harness.stdout.String())
	}

	if err := harness.execute("parse", "--clipboard", "--copy", "false"); err != nil {
		t.Fatalf("execute without copy: %v", err)
	}
	if len(harness.clipboard.copied) != 1 {
		t.Fatalf("--copy false must not write to the clipboard")
	}
}

func TestInitCommandWritesConfiguration(t *testing.T) {
	harness := newCommandHarness(t)
	if err := harness.execute("init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	expectedPath := filepath.Join(harness.workingDirectory, utils.ConfigFileName)
	if !strings.Contains(harness.stdout.String(), expectedPath) {
		t.Fatalf("expected written path in output:\n%s", harness.stdout.String())
	}
	if err := harness.execute("init"); err == nil {
		t.Fatalf("expected an error when the configuration already exists")
	}
	if err := harness.execute("init", "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestVersionFlag(t *testing.T) {
	harness := newCommandHarness(t)
	if err := harness.execute("--version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(harness.stdout.String(), "mktree version: ") {
		t.Fatalf("unexpected version output: %q", harness.stdout.String())
	}
}
