package tools

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/openpixel/pxtest/internal/testcase"
)

// redirect appends a sub-command's stdout to the transcript.
const redirect = " >> " + TranscriptName

// DiffCommand builds the pxdiff invocation comparing fileA against fileB
// with the given tolerances. We allow a small number of pixels to carry up
// to 1 LSB (8 bit) of error; different platforms and compilers rarely match
// to the last floating point bit. When silent is false the output is
// appended to the transcript so the numeric discrepancy is visible.
func DiffCommand(loc Locator, tol testcase.Tolerance, fileA, fileB string, silent bool) (string, error) {
	diff, err := loc.Resolve(Diff)
	if err != nil {
		return "", err
	}

	cmd := diff + " -a" +
		" -fail " + formatFloat(tol.FailThreshold) +
		" -failpercent " + formatFloat(tol.FailPercent) +
		" -hardfail " + formatFloat(tol.HardFail) +
		" -allowfailures " + strconv.Itoa(tol.AllowFailures) +
		" -warn " + formatFloat(2*tol.FailThreshold) +
		" -warnpercent " + formatFloat(tol.FailPercent) +
		" " + fileA + " " + fileB
	if !silent {
		cmd += redirect
	}
	return cmd, nil
}

// ColorVersion asks pxtool which color-config library version it embeds.
// Some test commands substitute the version into reference file names.
func ColorVersion(ctx context.Context, loc Locator) (string, error) {
	tool, err := loc.Resolve(Tool)
	if err != nil {
		return "", err
	}

	fields := strings.Fields(tool)
	args := append(fields[1:], "--echo", "{getattribute(colorconfig_version)}")
	out, err := exec.CommandContext(ctx, fields[0], args...).Output()
	if err != nil {
		return "", err
	}

	ver := strings.TrimSpace(string(out))
	// Major.minor is all the reference naming scheme uses.
	if len(ver) > 3 {
		ver = ver[:3]
	}
	return ver, nil
}

// formatFloat renders a threshold the way pxdiff expects it on the command
// line, with no trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
