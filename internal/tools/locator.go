// Package tools locates the image-toolkit binaries and builds their command
// lines. The binaries are external collaborators: pxtest invokes them as
// opaque subprocesses and never links against the toolkit itself.
package tools

import (
	"fmt"
	"os"
	"path/filepath"

	pxerrors "github.com/openpixel/pxtest/internal/errors"
)

// Toolkit binary names.
const (
	Tool    = "pxtool"    // Swiss-army image tool (info, echo, conversion chains)
	Diff    = "pxdiff"    // Tolerant image comparison
	Info    = "pxinfo"    // Image metadata dump
	Convert = "pxconvert" // Format conversion
	MakeTex = "pxmktx"    // Texture build
	TexTest = "pxtextest" // Texture sampling exerciser
)

// Transcript file names shared between the executor and command builders.
const (
	TranscriptName    = "out.txt"
	ErrTranscriptName = "out.err.txt"
	DebugLogName      = "debug.log"
)

// knownTools is the set of binary names the driver resolves through the
// locator when they appear as the first word of a sub-command.
var knownTools = map[string]bool{
	Tool:    true,
	Diff:    true,
	Info:    true,
	Convert: true,
	MakeTex: true,
	TexTest: true,
}

// IsTool reports whether name is a toolkit binary the locator resolves.
func IsTool(name string) bool {
	return knownTools[name]
}

// Locator maps a toolkit binary name to an invocable command line prefix.
// Injecting a fake Locator keeps the comparison logic testable without real
// binaries.
type Locator interface {
	// Resolve returns the command prefix for the named tool (the binary
	// path, with any wrapper prepended).
	Resolve(tool string) (string, error)
}

// BinLocator resolves tools under <BuildRoot>/bin, the standard build-area
// layout.
type BinLocator struct {
	BuildRoot string
	Wrapper   string // Optional wrapper command (e.g. valgrind) prefixed to every tool
}

// Resolve implements Locator.
func (l BinLocator) Resolve(tool string) (string, error) {
	if !IsTool(tool) {
		return "", pxerrors.NotFound("tool", tool)
	}
	path := filepath.Join(l.BuildRoot, "bin", tool)
	if _, err := os.Stat(path); err != nil {
		return "", pxerrors.Environmentf("tool %s not found at %s", tool, path)
	}
	if l.Wrapper != "" {
		return l.Wrapper + " " + path, nil
	}
	return path, nil
}

// FakeLocator resolves every known tool to a fixed command, for tests.
type FakeLocator struct {
	Commands map[string]string // tool name -> command prefix
}

// Resolve implements Locator.
func (l FakeLocator) Resolve(tool string) (string, error) {
	cmd, ok := l.Commands[tool]
	if !ok {
		return "", fmt.Errorf("fake locator: no command for %s", tool)
	}
	return cmd, nil
}
