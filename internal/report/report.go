// Package report narrates test outcomes: PASS/FAIL lines per output, diff
// details on mismatch, and the suite summary.
package report

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/openpixel/pxtest/internal/compare"
	"github.com/openpixel/pxtest/internal/output"
	"github.com/openpixel/pxtest/internal/testcase"
	"github.com/openpixel/pxtest/internal/tools"
)

// Reporter explains what happened to a single test's outputs. Mismatch
// reporting spends effort making the discrepancy visible on the console:
// text files get their diff echoed, images get a loud pxdiff re-run.
type Reporter struct {
	WorkDir string
	Loc     tools.Locator
	Tol     testcase.Tolerance
	Out     *output.Writer
	Console io.Writer // Defaults to os.Stdout
}

func (r *Reporter) console() io.Writer {
	if r.Console != nil {
		return r.Console
	}
	return os.Stdout
}

// Pass reports one matched output. A matched image still gets a pxdiff
// re-run with the output appended to the transcript, so the numeric
// statistics of the accepted difference are kept with the test record.
func (r *Reporter) Pass(ctx context.Context, produced, reference string) {
	if compare.IsImagePath(produced) {
		r.saveImageDiff(ctx, produced, reference)
	}
	r.Out.Pass(produced, filepath.ToSlash(reference))
}

// Fail reports one unmatched output and shows why. For text files the
// produced content and the stored diff are echoed; for images pxdiff is
// re-run without redirection so the pixel statistics reach the console.
func (r *Reporter) Fail(ctx context.Context, produced, reference string) {
	r.Out.Fail(produced)
	if compare.IsImagePath(produced) {
		r.loudImageDiff(ctx, produced, reference)
	} else {
		r.echoTextMismatch(produced, reference)
	}
}

// CompareError reports an output whose comparison could not be carried out
// at all, as opposed to a clean mismatch.
func (r *Reporter) CompareError(produced string) {
	r.Out.Fail(produced)
	r.Out.ErrorPrefix("could not compare %s against its reference", produced)
}

// echoTextMismatch prints the produced file, its reference, and the unified
// diff the comparator left next to the produced file.
func (r *Reporter) echoTextMismatch(produced, reference string) {
	r.echoFile(produced, filepath.Join(r.WorkDir, produced))
	r.echoFile(reference, filepath.Join(r.WorkDir, reference))
	diffPath := filepath.Join(r.WorkDir, produced+compare.DiffSuffix)
	if content, err := os.ReadFile(diffPath); err == nil && len(content) > 0 {
		r.Out.Section("Diff " + produced + " vs " + filepath.ToSlash(reference))
		io.WriteString(r.console(), string(content))
	}
}

// loudImageDiff re-runs pxdiff on the mismatched pair, streaming its output
// to the console while also appending it to the transcript.
func (r *Reporter) loudImageDiff(ctx context.Context, produced, reference string) {
	if r.Loc == nil {
		return
	}
	command, err := tools.DiffCommand(r.Loc, r.Tol, produced, reference, true)
	if err != nil {
		return
	}

	writers := []io.Writer{r.console()}
	transcript, err := os.OpenFile(filepath.Join(r.WorkDir, tools.TranscriptName),
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err == nil {
		defer transcript.Close()
		writers = append(writers, transcript)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.WorkDir
	cmd.Stdout = io.MultiWriter(writers...)
	cmd.Stderr = cmd.Stdout
	// pxdiff exits non-zero on mismatch; that is the expected outcome here.
	_ = cmd.Run()
}

// saveImageDiff re-runs pxdiff on a matched pair with the transcript
// redirect in place. Nothing reaches the console; the statistics only go to
// the record.
func (r *Reporter) saveImageDiff(ctx context.Context, produced, reference string) {
	if r.Loc == nil {
		return
	}
	command, err := tools.DiffCommand(r.Loc, r.Tol, produced, reference, false)
	if err != nil {
		return
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.WorkDir
	_ = cmd.Run()
}

// DebugLog echoes the toolkit's debug log if the failed test left one.
func (r *Reporter) DebugLog() {
	path := filepath.Join(r.WorkDir, tools.DebugLogName)
	content, err := os.ReadFile(path)
	if err != nil || len(strings.TrimSpace(string(content))) == 0 {
		return
	}
	r.Out.Section(tools.DebugLogName)
	io.WriteString(r.console(), string(content))
	if !strings.HasSuffix(string(content), "\n") {
		io.WriteString(r.console(), "\n")
	}
}

func (r *Reporter) echoFile(label, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		r.Out.ErrorPrefix("cannot read %s: %v", label, err)
		return
	}
	r.Out.Section(label)
	io.WriteString(r.console(), string(content))
	if len(content) > 0 && content[len(content)-1] != '\n' {
		io.WriteString(r.console(), "\n")
	}
}
