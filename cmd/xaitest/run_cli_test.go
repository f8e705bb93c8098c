package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	code, stdout, stderr := captureCLI(t, []string{"version"})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if strings.TrimSpace(stdout) != cliToolVersion {
		t.Fatalf("stdout = %q, want %q", stdout, cliToolVersion)
	}
	if stderr != "" {
		t.Fatalf("expected empty stderr, got %q", stderr)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	code, _, stderr := captureCLI(t, []string{"run", "--bogus"})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "unknown flag '--bogus'") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestListPrintsConfiguredPlan(t *testing.T) {
	chdir(t, t.TempDir())

	code, stdout, stderr := captureCLI(t, []string{"list", "--count", "3"})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 plan lines, got %d: %q", len(lines), stdout)
	}
	for i, line := range lines {
		wantHeader := fmt.Sprintf("Test %d", i+1)
		wantPath := fmt.Sprintf("./Code/Tests/test%d.xai", i+1)
		if !strings.HasPrefix(line, wantHeader+" | ") {
			t.Fatalf("line %d = %q, want prefix %q", i, line, wantHeader)
		}
		if !strings.Contains(line, wantPath) {
			t.Fatalf("line %d = %q, want path %q", i, line, wantPath)
		}
		if !strings.Contains(line, "-p -c "+wantPath) {
			t.Fatalf("line %d missing analyzer argv: %q", i, line)
		}
	}
}

func TestListJSONFormat(t *testing.T) {
	chdir(t, t.TempDir())

	code, stdout, stderr := captureCLI(t, []string{"list", "--count", "2", "--format", "json"})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", code, stderr)
	}
	if !strings.Contains(stdout, `"index": 1`) || !strings.Contains(stdout, `"./Code/Tests/test2.xai"`) {
		t.Fatalf("json plan incomplete: %q", stdout)
	}
}

func TestRunExecutesEveryFixtureInOrder(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeScript(t, filepath.Join(dir, "analyzer.sh"), `echo "checking $3"`)
	writeFile(t, filepath.Join(dir, "harness.yml"), `
name: demo
analyzer: ./analyzer.sh
fixtures:
  count: 3
  template: ./tests/test%d.xai
build:
  command: ["sh", "-c", "echo building the analyzer"]
`)

	code, stdout, stderr := captureCLI(t, []string{"run"})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", code, stderr)
	}
	if !strings.Contains(stdout, "building the analyzer") {
		t.Fatalf("build output missing: %q", stdout)
	}
	last := -1
	for i := 1; i <= 3; i++ {
		at := strings.Index(stdout, fmt.Sprintf("Test %d\nchecking ./tests/test%d.xai", i, i))
		if at < 0 {
			t.Fatalf("fixture %d header/output pair missing: %q", i, stdout)
		}
		if at < last {
			t.Fatalf("fixture %d ran out of order: %q", i, stdout)
		}
		last = at
	}
}

func TestRunBuildFailureSkipsAllFixtures(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	// The analyzer records every invocation; after a failed build the log
	// must not exist.
	writeScript(t, filepath.Join(dir, "analyzer.sh"), `echo "$3" >> invocations.log`)
	writeFile(t, filepath.Join(dir, "harness.yml"), `
name: demo
analyzer: ./analyzer.sh
fixtures:
  count: 3
build:
  command: ["sh", "-c", "echo compile error >&2; exit 1"]
`)

	code, _, stderr := captureCLI(t, []string{"run"})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "compile error") {
		t.Fatalf("build diagnostics not forwarded: %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "invocations.log")); !os.IsNotExist(err) {
		t.Fatalf("fixtures ran despite build failure")
	}
}

func TestRunSucceedsWhenAnalyzerFails(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeScript(t, filepath.Join(dir, "analyzer.sh"), `echo "bad expression in $3"; exit 2`)
	writeFile(t, filepath.Join(dir, "harness.yml"), `
name: demo
analyzer: ./analyzer.sh
fixtures:
  count: 2
`)

	code, stdout, _ := captureCLI(t, []string{"run"})
	if code != 0 {
		t.Fatalf("analyzer failures must not fail the harness, got exit %d", code)
	}
	if !strings.Contains(stdout, "bad expression in ./Code/Tests/test1.xai") {
		t.Fatalf("analyzer output not forwarded: %q", stdout)
	}
}

func TestRunJSONFormatEmitsOutcomes(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeScript(t, filepath.Join(dir, "analyzer.sh"), `echo "checking $3"; exit 1`)

	code, stdout, stderr := captureCLI(t, []string{
		"run",
		"--skip-build",
		"--analyzer", "./analyzer.sh",
		"--count", "2",
		"--format", "json",
	})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 outcome records, got %d: %q", len(lines), stdout)
	}
	if !strings.Contains(lines[0], `"exit_code":1`) || !strings.Contains(lines[0], `"index":1`) {
		t.Fatalf("first outcome incomplete: %q", lines[0])
	}
	if !strings.Contains(lines[1], `"path":"./Code/Tests/test2.xai"`) {
		t.Fatalf("second outcome incomplete: %q", lines[1])
	}
}

func TestRunJSONFormatKeepsStdoutMachineReadable(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeScript(t, filepath.Join(dir, "analyzer.sh"), `echo "checking $3"`)
	writeFile(t, filepath.Join(dir, "harness.yml"), `
name: demo
analyzer: ./analyzer.sh
fixtures:
  count: 1
build:
  command: ["sh", "-c", "echo building the analyzer"]
`)

	code, stdout, stderr := captureCLI(t, []string{"run", "--format", "json"})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", code, stderr)
	}
	if !strings.Contains(stderr, "building the analyzer") {
		t.Fatalf("build output missing from stderr: %q", stderr)
	}
	for i, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			t.Fatalf("stdout line %d is not a json record: %q", i, line)
		}
	}
}

func TestParseRunArgumentsAcceptsDashFlagValues(t *testing.T) {
	config, err := parseRunArguments([]string{"--flag", "-p", "--flag", "-c", "--flag", "--verbose"})
	if err != nil {
		t.Fatalf("parseRunArguments returned error: %v", err)
	}
	if got := strings.Join(config.Flags, " "); got != "-p -c --verbose" {
		t.Fatalf("Flags = %q, want \"-p -c --verbose\"", got)
	}

	if _, err := parseRunArguments([]string{"--flag"}); err == nil {
		t.Fatalf("expected error for --flag without a value")
	}
}

func TestRunFlagOverridesReplaceManifestValues(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeScript(t, filepath.Join(dir, "analyzer.sh"), `echo "args: $@"`)
	writeFile(t, filepath.Join(dir, "harness.yml"), `
name: demo
analyzer: ./missing-analyzer
fixtures:
  count: 5
`)

	code, stdout, stderr := captureCLI(t, []string{
		"run",
		"--analyzer", "./analyzer.sh",
		"--count", "1",
		"--template", "./cases/case%d.xai",
		"--flag", "--verbose",
	})
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", code, stderr)
	}
	if !strings.Contains(stdout, "args: --verbose ./cases/case1.xai") {
		t.Fatalf("overrides not applied: %q", stdout)
	}
	if strings.Contains(stdout, "Test 2") {
		t.Fatalf("--count override ignored: %q", stdout)
	}
}
