package compare

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffSuffix is appended to a text output file name to form the persisted
// diff file.
const DiffSuffix = ".diff"

// TextComparator performs a line-based unified diff between the produced
// text file and its reference. On mismatch the diff is persisted next to
// the produced file for later reporting.
type TextComparator struct {
	WorkDir string
}

// Compare implements Comparator. A read or stat failure is an explicit
// ResultError, not a silent non-match.
func (c *TextComparator) Compare(produced, reference string) Result {
	producedPath := joinIfRelative(c.WorkDir, produced)
	referencePath := joinIfRelative(c.WorkDir, reference)

	diff, err := unifiedDiff(producedPath, referencePath, produced, reference)
	if err != nil {
		return ResultError
	}
	if diff == "" {
		return ResultMatch
	}

	// Best effort: a failed diff write must not mask the mismatch itself.
	_ = os.WriteFile(producedPath+DiffSuffix, []byte(diff), 0o644)
	return ResultMismatch
}

// unifiedDiff renders the unified diff between the two files, with mtimes as
// the header dates. Returns "" when the files are line-identical.
func unifiedDiff(producedPath, referencePath, producedLabel, referenceLabel string) (string, error) {
	producedInfo, err := os.Stat(producedPath)
	if err != nil {
		return "", err
	}
	referenceInfo, err := os.Stat(referencePath)
	if err != nil {
		return "", err
	}

	producedData, err := os.ReadFile(producedPath)
	if err != nil {
		return "", err
	}
	referenceData, err := os.ReadFile(referencePath)
	if err != nil {
		return "", err
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(producedData)),
		B:        difflib.SplitLines(string(referenceData)),
		FromFile: producedLabel,
		FromDate: producedInfo.ModTime().Format(time.ANSIC),
		ToFile:   referenceLabel,
		ToDate:   referenceInfo.ModTime().Format(time.ANSIC),
		Context:  3,
	})
}

func joinIfRelative(workDir, path string) string {
	if workDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}
