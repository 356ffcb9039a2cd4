// Package pixeldiff implements tolerant pixel comparison.
//
// The semantics mirror the toolkit's pxdiff at the boundary: a pixel fails
// when any channel differs by more than the failure threshold; the image
// fails when the failing fraction exceeds the allowed percentage, or when
// any single pixel exceeds the hard-failure threshold, after exempting a
// fixed number of worst pixels. The driver prefers the external tool, which
// understands every toolkit format; this implementation covers the formats
// the standard decoders handle and keeps the comparison logic testable
// without toolkit binaries.
package pixeldiff

import (
	"fmt"
	"image"
	"os"
	"sort"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/openpixel/pxtest/internal/testcase"
)

// Result summarizes one image comparison.
type Result struct {
	TotalPixels  int
	FailedPixels int     // Pixels over the failure threshold, after exemptions
	MaxError     float64 // Largest per-channel difference seen, before exemptions
	FailPercent  float64 // FailedPixels as a percentage of TotalPixels
}

// Compare evaluates a against b under the given tolerance. It returns true
// when the images match.
func Compare(a, b image.Image, tol testcase.Tolerance) (bool, Result) {
	res := Result{}

	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		// Dimension mismatch can never be within tolerance.
		res.MaxError = 1
		res.TotalPixels = ab.Dx() * ab.Dy()
		res.FailedPixels = res.TotalPixels
		res.FailPercent = 100
		return false, res
	}

	res.TotalPixels = ab.Dx() * ab.Dy()

	// Per-pixel worst channel difference for every failing pixel, so the
	// allow_failures exemption can drop the worst offenders first.
	var failing []float64

	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			d := pixelDelta(a, b, ab.Min.X+x, ab.Min.Y+y, bb.Min.X+x, bb.Min.Y+y)
			if d > res.MaxError {
				res.MaxError = d
			}
			if d > tol.FailThreshold {
				failing = append(failing, d)
			}
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(failing)))
	if tol.AllowFailures > 0 && tol.AllowFailures < len(failing) {
		failing = failing[tol.AllowFailures:]
	} else if tol.AllowFailures >= len(failing) {
		failing = nil
	}

	res.FailedPixels = len(failing)
	if res.TotalPixels > 0 {
		res.FailPercent = 100 * float64(res.FailedPixels) / float64(res.TotalPixels)
	}

	if len(failing) > 0 && failing[0] > tol.HardFail {
		return false, res
	}
	if res.FailPercent > tol.FailPercent {
		return false, res
	}
	return true, res
}

// CompareFiles decodes and compares two image files.
func CompareFiles(pathA, pathB string, tol testcase.Tolerance) (bool, Result, error) {
	a, err := decode(pathA)
	if err != nil {
		return false, Result{}, err
	}
	b, err := decode(pathB)
	if err != nil {
		return false, Result{}, err
	}
	ok, res := Compare(a, b, tol)
	return ok, res, nil
}

// pixelDelta returns the largest normalized channel difference between the
// two pixels, including alpha.
func pixelDelta(a, b image.Image, ax, ay, bx, by int) float64 {
	ar, ag, ab2, aa := a.At(ax, ay).RGBA()
	br, bg, bb2, ba := b.At(bx, by).RGBA()

	max := channelDelta(ar, br)
	if d := channelDelta(ag, bg); d > max {
		max = d
	}
	if d := channelDelta(ab2, bb2); d > max {
		max = d
	}
	if d := channelDelta(aa, ba); d > max {
		max = d
	}
	return max
}

// channelDelta normalizes a 16-bit channel difference to [0,1].
func channelDelta(a, b uint32) float64 {
	if a > b {
		return float64(a-b) / 0xffff
	}
	return float64(b-a) / 0xffff
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
