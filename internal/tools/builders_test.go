package tools

import (
	"strings"
	"testing"

	"github.com/openpixel/pxtest/internal/testcase"
)

var builderLoc = FakeLocator{Commands: map[string]string{
	Tool:    "/bin/pxtool",
	Diff:    "/bin/pxdiff",
	Info:    "/bin/pxinfo",
	Convert: "/bin/pxconvert",
	MakeTex: "/bin/pxmktx",
	TexTest: "/bin/pxtextest",
}}

func TestInfoCommand(t *testing.T) {
	cmd, err := InfoCommand(builderLoc, "src/grid.tif", DefaultInfoOptions())
	if err != nil {
		t.Fatal(err)
	}
	want := "/bin/pxtool --info -v -a --hash src/grid.tif >> out.txt"
	if cmd != want {
		t.Errorf("got  %q\nwant %q", cmd, want)
	}
}

func TestInfoCommand_SafeMatch(t *testing.T) {
	opts := DefaultInfoOptions()
	opts.SafeMatch = true
	cmd, err := InfoCommand(builderLoc, "a.exr", opts)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(cmd, `--no-metamatch "DateTime|Software|OriginatingProgram|ImageHistory"`) {
		t.Errorf("volatile metadata not excluded: %q", cmd)
	}
}

func TestInfoCommand_InfoProgram(t *testing.T) {
	opts := InfoOptions{Program: Info}
	cmd, err := InfoCommand(builderLoc, "a.exr", opts)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(cmd, "--info") {
		t.Errorf("pxinfo needs no --info flag: %q", cmd)
	}
	if !strings.HasPrefix(cmd, "/bin/pxinfo ") {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestInfoCommand_SilentFailureOK(t *testing.T) {
	opts := InfoOptions{Silent: true, FailureOK: true}
	cmd, err := InfoCommand(builderLoc, "a.exr", opts)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(cmd, ">> out.txt") {
		t.Errorf("silent command must not redirect: %q", cmd)
	}
	if !strings.HasSuffix(cmd, "|| true") {
		t.Errorf("expected failure suffix missing: %q", cmd)
	}
}

func TestToolAndConvertCommands(t *testing.T) {
	cmd, err := ToolCommand(builderLoc, "in.exr --resize 50% -o small.exr", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "/bin/pxtool in.exr --resize 50% -o small.exr >> out.txt" {
		t.Errorf("cmd = %q", cmd)
	}

	cmd, err = ConvertCommand(builderLoc, "a.tif b.png", true, true)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "/bin/pxconvert a.tif b.png || true" {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestMakeTexCommand(t *testing.T) {
	cmd, err := MakeTexCommand(builderLoc, "grid.tif", "grid.tx", "--tile 64 64", false)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "/bin/pxmktx grid.tif --tile 64 64 -o grid.tx >> out.txt" {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestTexTestCommand(t *testing.T) {
	cmd, err := TexTestCommand(builderLoc, "grid.tx", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "/bin/pxtextest grid.tx >> out.txt" {
		t.Errorf("cmd = %q", cmd)
	}
}

func TestRWCommand(t *testing.T) {
	cmd, err := RWCommand(builderLoc, testcase.DefaultTolerance(), "src", "grid.tif", DefaultRWOptions())
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(cmd, " ; ")
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want info/write/diff: %q", len(parts), cmd)
	}
	if !strings.HasPrefix(parts[0], "/bin/pxtool --info") {
		t.Errorf("info part = %q", parts[0])
	}
	if !strings.HasPrefix(parts[1], "/bin/pxconvert src/grid.tif grid.tif") {
		t.Errorf("write part = %q", parts[1])
	}
	if !strings.HasPrefix(parts[2], "/bin/pxdiff -a src/grid.tif -fail 0.004") {
		t.Errorf("diff part = %q", parts[2])
	}
	if !strings.Contains(parts[2], "-warn 0.008") {
		t.Errorf("warn threshold = %q", parts[2])
	}
}

func TestRWCommand_UseTool(t *testing.T) {
	opts := DefaultRWOptions()
	opts.UseTool = true
	opts.OutputFilename = "copy.exr"
	opts.PrintInfo = false
	cmd, err := RWCommand(builderLoc, testcase.DefaultTolerance(), "src", "a.exr", opts)
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(cmd, " ; ")
	if len(parts) != 2 {
		t.Fatalf("got %d parts: %q", len(parts), cmd)
	}
	if !strings.HasPrefix(parts[0], "/bin/pxtool src/a.exr -o copy.exr") {
		t.Errorf("write part = %q", parts[0])
	}
	if !strings.Contains(parts[1], " copy.exr") {
		t.Errorf("diff part should target the copy: %q", parts[1])
	}
}
