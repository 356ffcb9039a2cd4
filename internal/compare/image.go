package compare

import (
	"os/exec"

	"github.com/openpixel/pxtest/internal/pixeldiff"
	"github.com/openpixel/pxtest/internal/testcase"
	"github.com/openpixel/pxtest/internal/tools"
)

// ImageComparator runs the toolkit's tolerant diff tool and maps its exit
// code to a comparison result. When the tool cannot be located (partial
// builds, unit tests without a build area) it falls back to the built-in
// pixel comparator, which understands the formats the standard decoders do.
type ImageComparator struct {
	Loc     tools.Locator
	Tol     testcase.Tolerance
	WorkDir string
}

// Compare implements Comparator.
func (c *ImageComparator) Compare(produced, reference string) Result {
	cmdStr, err := tools.DiffCommand(c.Loc, c.Tol, produced, reference, true)
	if err != nil {
		return c.builtin(produced, reference)
	}

	cmd := exec.Command("sh", "-c", cmdStr)
	cmd.Dir = c.WorkDir
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return ResultMismatch
		}
		// The shell itself failed to run; not a pixel difference.
		return ResultError
	}
	return ResultMatch
}

func (c *ImageComparator) builtin(produced, reference string) Result {
	ok, _, err := pixeldiff.CompareFiles(
		c.abs(produced), c.abs(reference), c.Tol)
	if err != nil {
		return ResultError
	}
	if !ok {
		return ResultMismatch
	}
	return ResultMatch
}

func (c *ImageComparator) abs(path string) string {
	if c.WorkDir == "" {
		return path
	}
	return joinIfRelative(c.WorkDir, path)
}
