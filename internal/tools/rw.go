package tools

import (
	"path"
	"strconv"
	"strings"

	"github.com/openpixel/pxtest/internal/testcase"
)

// RWOptions configures RWCommand.
type RWOptions struct {
	TestWrite      bool   // Also write a copy and diff it against the original
	UseTool        bool   // Write the copy with pxtool instead of pxconvert
	ExtraArgs      string // Extra arguments for the write step
	PreArgs        string // Arguments placed before the input file
	DiffExtraArgs  string
	OutputFilename string // Defaults to filename
	SafeMatch      bool
	PrintInfo      bool
}

// DefaultRWOptions returns the usual read/write exercise: print metadata,
// write a copy, diff the copy.
func DefaultRWOptions() RWOptions {
	return RWOptions{TestWrite: true, PrintInfo: true}
}

// RWCommand builds the composite command testing the basic ability to read
// and write an image format. The file's metadata and content hash are
// printed first; a hash mismatch is very unlikely if the read succeeded.
// When TestWrite is set the file is also converted to a copy and the copy
// diffed against the original.
func RWCommand(loc Locator, tol testcase.Tolerance, dir, filename string, opts RWOptions) (string, error) {
	fn := path.Join(dir, filename)

	var parts []string
	if opts.PrintInfo {
		info, err := InfoCommand(loc, fn, InfoOptions{
			Hash: true, Verbose: true, SafeMatch: opts.SafeMatch,
		})
		if err != nil {
			return "", err
		}
		parts = append(parts, info)
	}

	if opts.TestWrite {
		outName := opts.OutputFilename
		if outName == "" {
			outName = filename
		}

		writer := Convert
		if opts.UseTool {
			writer = Tool
		}
		bin, err := loc.Resolve(writer)
		if err != nil {
			return "", err
		}
		write := bin
		if opts.PreArgs != "" {
			write += " " + opts.PreArgs
		}
		write += " " + fn
		if opts.ExtraArgs != "" {
			write += " " + opts.ExtraArgs
		}
		if opts.UseTool {
			write += " -o"
		}
		write += " " + outName + redirect
		parts = append(parts, write)

		diffBin, err := loc.Resolve(Diff)
		if err != nil {
			return "", err
		}
		diff := diffBin + " -a " + fn +
			" -fail " + formatFloat(tol.FailThreshold) +
			" -failpercent " + formatFloat(tol.FailPercent) +
			" -hardfail " + formatFloat(tol.HardFail) +
			" -allowfailures " + strconv.Itoa(tol.AllowFailures) +
			" -warn " + formatFloat(2*tol.FailThreshold)
		if opts.DiffExtraArgs != "" {
			diff += " " + opts.DiffExtraArgs
		}
		diff += " " + outName + redirect
		parts = append(parts, diff)
	}

	return strings.Join(parts, " ; "), nil
}
