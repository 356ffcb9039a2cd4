// Package executor runs a test's composite command in its working directory.
//
// A composite command is an ordered sequence of shell sub-commands separated
// by ';'. Sub-commands run strictly one after another — later sub-commands
// may depend on files written by earlier ones — with stdout and stderr
// appended to the test transcript. There is no timeout: a hung tool blocks
// the test, an accepted limitation of the driver.
package executor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/openpixel/pxtest/internal/output"
	"github.com/openpixel/pxtest/internal/tools"
)

// CommandResult records one sub-command execution.
type CommandResult struct {
	Command  string
	ExitCode int
}

// RunResult summarizes the execution of a composite command.
type RunResult struct {
	Commands []CommandResult
	Failed   bool // A sub-command exited non-zero and failure was not expected
}

// Executor runs sub-commands sequentially in a test working directory.
type Executor struct {
	WorkDir string
	Loc     tools.Locator  // Resolves toolkit binary names; may be nil
	Out     *output.Writer // Failure reporting; may be nil
}

// Split breaks a composite command into its sub-commands: split on ';',
// trim whitespace, discard empties.
func Split(command string) []string {
	var subs []string
	for _, part := range strings.Split(command, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			subs = append(subs, part)
		}
	}
	return subs
}

// Run executes the composite command. The transcript files are truncated
// first and a stale debug log is removed. Every sub-command runs even after
// a failure, so one run reports every failing command; failures are recorded
// in the result unless failureOK is set.
func (e *Executor) Run(ctx context.Context, command string, failureOK bool) (*RunResult, error) {
	transcript, errTranscript, err := e.resetTranscripts()
	if err != nil {
		return nil, err
	}
	defer transcript.Close()
	defer errTranscript.Close()

	res := &RunResult{}
	for _, sub := range Split(command) {
		code := e.runSub(ctx, sub, transcript, errTranscript)
		res.Commands = append(res.Commands, CommandResult{Command: sub, ExitCode: code})
		if code != 0 && !failureOK {
			if e.Out != nil {
				e.Out.CommandFailed(sub)
			}
			res.Failed = true
		}
	}
	return res, nil
}

// runSub executes one sub-command via the shell and returns its exit code.
func (e *Executor) runSub(ctx context.Context, sub string, transcript, errTranscript io.Writer) int {
	cmd := exec.CommandContext(ctx, "sh", "-c", e.resolveTools(sub))
	cmd.Dir = e.WorkDir
	cmd.Stdout = transcript
	cmd.Stderr = io.MultiWriter(transcript, errTranscript)
	cmd.Env = os.Environ()

	err := cmd.Run()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	// The shell itself could not start; report as a conventional failure.
	return 127
}

// resolveTools replaces a leading toolkit binary name with its located
// command, so test commands can name tools without knowing the build layout.
// Unknown names pass through untouched for the shell to find (or fail).
func (e *Executor) resolveTools(sub string) string {
	if e.Loc == nil {
		return sub
	}
	fields := strings.SplitN(sub, " ", 2)
	if !tools.IsTool(fields[0]) {
		return sub
	}
	resolved, err := e.Loc.Resolve(fields[0])
	if err != nil {
		return sub
	}
	if len(fields) == 1 {
		return resolved
	}
	return resolved + " " + fields[1]
}

// resetTranscripts truncates the transcript files and removes a stale debug
// log from a previous run. The files are opened in append mode: sub-commands
// may also reach the transcript through their own shell redirects, and
// O_APPEND keeps the two write paths from clobbering each other.
func (e *Executor) resetTranscripts() (*os.File, *os.File, error) {
	transcript, err := openTruncated(filepath.Join(e.WorkDir, tools.TranscriptName))
	if err != nil {
		return nil, nil, err
	}
	errTranscript, err := openTruncated(filepath.Join(e.WorkDir, tools.ErrTranscriptName))
	if err != nil {
		transcript.Close()
		return nil, nil, err
	}

	debugLog := filepath.Join(e.WorkDir, tools.DebugLogName)
	if _, err := os.Stat(debugLog); err == nil {
		_ = os.Remove(debugLog)
	}

	return transcript, errTranscript, nil
}

func openTruncated(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o644)
}
