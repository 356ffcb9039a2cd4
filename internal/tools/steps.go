package tools

import (
	"fmt"
	"strings"

	"github.com/openpixel/pxtest/internal/testcase"
)

// ExpandStep turns one structured step into its shell sub-command through
// the matching command builder. Validation already happened at load time;
// an empty step here is a programming error.
func ExpandStep(loc Locator, tol testcase.Tolerance, s testcase.Step) (string, error) {
	switch {
	case s.Run != "":
		return s.Run, nil

	case s.Info != "":
		opts := DefaultInfoOptions()
		opts.ExtraArgs = s.Args
		opts.SafeMatch = s.SafeMatch
		opts.Silent = s.Silent
		opts.FailureOK = s.FailureOK
		return InfoCommand(loc, s.Info, opts)

	case s.Tool != "":
		return ToolCommand(loc, argline(s.Tool, s.Args), s.Silent, s.FailureOK)

	case s.Convert != "":
		return ConvertCommand(loc, argline(s.Convert, s.Args), s.Silent, s.FailureOK)

	case s.MakeTex != "":
		return MakeTexCommand(loc, s.MakeTex, s.Out, s.Args, s.Silent)

	case s.TexTest != "":
		return TexTestCommand(loc, s.TexTest, s.Args, s.Silent)

	case s.RW != "":
		opts := DefaultRWOptions()
		opts.ExtraArgs = s.Args
		opts.OutputFilename = s.Out
		opts.SafeMatch = s.SafeMatch
		return RWCommand(loc, tol, "", s.RW, opts)
	}
	return "", fmt.Errorf("empty step")
}

// ExpandSteps expands every step and joins them into one composite command
// for the executor.
func ExpandSteps(loc Locator, tol testcase.Tolerance, steps []testcase.Step) (string, error) {
	var parts []string
	for i, s := range steps {
		cmd, err := ExpandStep(loc, tol, s)
		if err != nil {
			return "", fmt.Errorf("steps[%d]: %w", i, err)
		}
		parts = append(parts, cmd)
	}
	return strings.Join(parts, " ; "), nil
}

func argline(base, extra string) string {
	if extra == "" {
		return base
	}
	return base + " " + extra
}
