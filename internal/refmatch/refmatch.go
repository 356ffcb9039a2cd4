// Package refmatch locates the best-matching golden reference for a test
// output. A single logical test may carry multiple reference variants
// (platform or library-version specific) without the test author hard-coding
// platform logic: out.png can match ref/out.png or any ref/out-*.png whose
// content compares equal.
package refmatch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/openpixel/pxtest/internal/compare"
)

// Match is the outcome of a reference search for one output file.
type Match struct {
	Output    string // Output file name as listed in the test configuration
	Matched   bool
	Reference string // Matched reference path, or the default path for diagnostics
}

// Finder searches an ordered list of reference directories.
type Finder struct {
	WorkDir     string      // Test working directory; relative paths resolve here
	RefDirs     []string    // Highest priority first
	Comparators compare.Set // Format-specific comparison
	AnyMatch    bool        // Consider every file in each directory a candidate
}

// Find locates a reference for the named output. The exact same-name file in
// each directory is always tried before pattern alternates, and the first
// candidate that compares equal wins — remaining candidates and directories
// are not checked.
func (f *Finder) Find(output string) Match {
	cmp := f.Comparators.ForFile(output)

	for _, dir := range f.RefDirs {
		for _, candidate := range f.candidates(dir, output) {
			if _, err := os.Stat(filepath.Join(f.WorkDir, candidate)); err != nil {
				continue
			}
			if cmp.Compare(output, candidate).Matched() {
				return Match{Output: output, Matched: true, Reference: candidate}
			}
		}
	}

	return Match{Output: output, Matched: false, Reference: f.defaultReference(output)}
}

// candidates lists the reference paths to try in dir, in priority order:
// the same-name file first, then prefix-*.extension* alternates (or every
// file in the directory under anymatch).
func (f *Finder) candidates(dir, output string) []string {
	candidates := []string{filepath.Join(dir, output)}

	ext := filepath.Ext(output)
	prefix := strings.TrimSuffix(output, ext)

	pattern := prefix + "-*" + ext + "*"
	if f.AnyMatch {
		pattern = "*.*"
	}

	matches, err := filepath.Glob(filepath.Join(f.WorkDir, dir, pattern))
	if err != nil {
		return candidates
	}
	for _, m := range matches {
		rel, err := filepath.Rel(f.WorkDir, m)
		if err != nil {
			continue
		}
		if rel == candidates[0] {
			continue // same-name file already heads the list
		}
		candidates = append(candidates, rel)
	}

	return candidates
}

// defaultReference is the path reported when nothing matched: the same-name
// file in the primary reference directory.
func (f *Finder) defaultReference(output string) string {
	dir := "ref"
	if len(f.RefDirs) > 0 {
		dir = f.RefDirs[0]
	}
	return filepath.Join(dir, output)
}
