// Package integration contains end-to-end tests for the pxtest driver,
// running real fixture tests with plain shell commands standing in for the
// image toolkit.
package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/openpixel/pxtest/internal/output"
	"github.com/openpixel/pxtest/internal/runner"
	"github.com/openpixel/pxtest/internal/suite"
	"github.com/openpixel/pxtest/internal/tools"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
// The result is cached since runtime.Caller is relatively expensive.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

// runFixture executes the named fixture in a fresh working directory, with
// the source tree linked in the way a build-tree run would see it.
func runFixture(t *testing.T, name string, opts runner.Options) (runner.TestResult, string, *bytes.Buffer) {
	t.Helper()
	workDir := t.TempDir()
	srcDir := filepath.Join(fixturesDir(), name)

	t.Setenv(suite.EnvSrcDir, srcDir)
	t.Setenv(suite.EnvSuiteRoot, fixturesDir())
	t.Setenv(suite.EnvBuildRoot, workDir)
	t.Setenv(suite.EnvCleanup, "")
	t.Setenv(suite.EnvRelaxed, "")
	t.Setenv("CI", "")
	t.Setenv("DEBUG", "")

	if opts.Locator == nil {
		opts.Locator = tools.FakeLocator{}
	}
	var stdout, stderr bytes.Buffer
	r := runner.New(output.NewWithWriters(&stdout, &stderr, false), opts)
	res := r.RunTest(context.Background(), workDir)
	if t.Failed() || testing.Verbose() {
		t.Logf("stdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
	}
	return res, workDir, &stdout
}

func TestEchoBasic(t *testing.T) {
	res, workDir, stdout := runFixture(t, "echo-basic", runner.Options{})

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Passed {
		t.Fatalf("fixture should pass: %+v", res)
	}
	if !strings.Contains(stdout.String(), "PASS: out.txt matches") {
		t.Errorf("stdout = %q", stdout.String())
	}

	// The reference tree is linked into the working directory.
	if _, err := os.Stat(filepath.Join(workDir, "ref", "out.txt")); err != nil {
		t.Errorf("ref not linked into workdir: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(workDir, "out.txt"))
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if string(got) != "hello world\n" {
		t.Errorf("out.txt = %q", got)
	}
}

func TestMultiOutput(t *testing.T) {
	res, _, stdout := runFixture(t, "multi-output", runner.Options{})

	if !res.Passed {
		t.Fatalf("fixture should pass: %+v", res)
	}
	for _, want := range []string{"PASS: out.txt matches", "PASS: second.txt matches"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestVariantReferences(t *testing.T) {
	// The primary reference no longer matches; the out-*.txt alternate
	// does, and the test passes against it.
	res, _, stdout := runFixture(t, "variant-refs", runner.Options{})

	if !res.Passed {
		t.Fatalf("fixture should pass via the alternate reference: %+v", res)
	}
	if !strings.Contains(stdout.String(), "out-newtool.txt") {
		t.Errorf("pass line should name the alternate:\n%s", stdout.String())
	}
}

func TestToolSteps(t *testing.T) {
	// Structured steps resolve toolkit names through the locator before
	// execution; echo stands in for pxtool.
	loc := tools.FakeLocator{Commands: map[string]string{tools.Tool: "echo"}}
	res, workDir, stdout := runFixture(t, "tool-steps", runner.Options{Locator: loc})

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Passed {
		t.Fatalf("fixture should pass: %+v", res)
	}
	if !strings.Contains(stdout.String(), "PASS: out.txt matches") {
		t.Errorf("stdout = %q", stdout.String())
	}
	got, err := os.ReadFile(filepath.Join(workDir, "out.txt"))
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if string(got) != "preparing\nhello from the toolkit\n" {
		t.Errorf("out.txt = %q", got)
	}
}

func TestFailureOK(t *testing.T) {
	res, _, _ := runFixture(t, "failure-ok", runner.Options{})

	if res.CommandFailed {
		t.Error("failure_ok must exempt the non-zero exit")
	}
	if !res.Passed {
		t.Fatalf("fixture should pass: %+v", res)
	}
}

func TestMismatchReportsDiff(t *testing.T) {
	// Reuse the echo fixture but sabotage the expected content via an
	// in-place copy with a different reference.
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "test.yaml"), []byte("command: \"echo hello > out.txt\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(srcDir, "ref"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "ref", "out.txt"), []byte("goodbye\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	workDir := t.TempDir()
	t.Setenv(suite.EnvSrcDir, srcDir)
	t.Setenv(suite.EnvSuiteRoot, srcDir)
	t.Setenv(suite.EnvBuildRoot, workDir)
	t.Setenv(suite.EnvCleanup, "")
	t.Setenv(suite.EnvRelaxed, "")
	t.Setenv("CI", "")
	t.Setenv("DEBUG", "")

	var stdout, stderr bytes.Buffer
	r := runner.New(output.NewWithWriters(&stdout, &stderr, false), runner.Options{Locator: tools.FakeLocator{}})
	res := r.RunTest(context.Background(), workDir)

	if res.Passed {
		t.Fatalf("mismatch should fail, stderr:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "NO MATCH for out.txt") {
		t.Errorf("stdout = %q", stdout.String())
	}
	// The unified diff lands next to the produced file.
	if _, err := os.Stat(filepath.Join(workDir, "out.txt.diff")); err != nil {
		t.Errorf("diff file not written: %v", err)
	}
}

func TestCheckAfterRun(t *testing.T) {
	res, workDir, _ := runFixture(t, "echo-basic", runner.Options{})
	if !res.Passed {
		t.Fatalf("run should pass: %+v", res)
	}

	var stdout, stderr bytes.Buffer
	r := runner.New(output.NewWithWriters(&stdout, &stderr, false), runner.Options{Locator: tools.FakeLocator{}})
	check := r.CheckTest(context.Background(), workDir)
	if !check.Passed {
		t.Fatalf("check of a passing run should pass: %+v", check)
	}
}
