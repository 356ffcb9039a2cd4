// Package compare implements the format-specific reference comparators.
//
// Three variants cover every output a test produces: tolerant image
// comparison for known image formats, line-based diff for .txt transcripts,
// and byte-exact comparison for everything else. Comparators never panic;
// I/O failures degrade to a non-match.
package compare

import (
	"path/filepath"
	"strings"
)

// Result is the outcome of one comparison.
//
// ResultError is deliberately distinct from ResultMismatch: the original
// driver folded unexpected read errors into a sentinel that one code path
// could not tell apart from success. An error still counts as a non-match
// for pass/fail purposes, but it is reported as an error, not a difference.
type Result int

const (
	ResultMatch Result = iota
	ResultMismatch
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultMatch:
		return "match"
	case ResultMismatch:
		return "mismatch"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Matched reports whether the result counts as a successful comparison.
func (r Result) Matched() bool {
	return r == ResultMatch
}

// imageExtensions are the formats handed to the tolerant image comparator.
var imageExtensions = map[string]bool{
	".tif": true, ".tiff": true, ".tx": true, ".exr": true,
	".jpg": true, ".jpeg": true, ".png": true, ".rla": true,
	".dpx": true, ".iff": true, ".psd": true, ".bmp": true,
	".fits": true, ".ico": true, ".jp2": true, ".jxl": true,
	".sgi": true, ".tga": true, ".zfile": true,
}

// IsImagePath reports whether the file name carries a known image extension.
func IsImagePath(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ImageExtensions returns the known image extensions (for cleanup mode).
func ImageExtensions() []string {
	exts := make([]string, 0, len(imageExtensions))
	for ext := range imageExtensions {
		exts = append(exts, ext)
	}
	return exts
}

// Comparator compares a produced file against a reference file.
type Comparator interface {
	Compare(produced, reference string) Result
}

// Set bundles the three comparator variants and dispatches on extension.
type Set struct {
	Image  Comparator
	Text   Comparator
	Binary Comparator
}

// ForFile selects the comparator for an output file name.
func (s Set) ForFile(name string) Comparator {
	if IsImagePath(name) {
		return s.Image
	}
	if strings.EqualFold(filepath.Ext(name), ".txt") {
		return s.Text
	}
	return s.Binary
}
