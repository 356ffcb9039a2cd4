// Package cleanup removes the files a passing test left behind, keeping
// large batch runs from filling the build area with images nobody will
// look at.
package cleanup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/openpixel/pxtest/internal/compare"
)

// removableExtensions covers everything a test run produces: images in any
// toolkit format, transcripts, and diff files. Configuration and reference
// data live under other extensions or subdirectories and are never touched.
func removableExtensions() map[string]bool {
	exts := map[string]bool{
		".txt":             true,
		".log":             true,
		compare.DiffSuffix: true,
	}
	for _, ext := range compare.ImageExtensions() {
		exts[ext] = true
	}
	return exts
}

// Clean deletes generated files directly under workDir. Subdirectories,
// including the linked reference tree, are left alone. Returns the number
// of files removed.
func Clean(workDir string) (int, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return 0, err
	}

	exts := removableExtensions()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !exts[ext] {
			continue
		}
		if err := os.Remove(filepath.Join(workDir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
