package pixeldiff

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/openpixel/pxtest/internal/testcase"
)

// flatImage returns a w x h image filled with the given gray value.
func flatImage(w, h int, v uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func TestCompare_Identical(t *testing.T) {
	a := flatImage(8, 8, 100)
	b := flatImage(8, 8, 100)

	ok, res := Compare(a, b, testcase.DefaultTolerance())
	if !ok {
		t.Errorf("identical images should match: %+v", res)
	}
	if res.MaxError != 0 || res.FailedPixels != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCompare_OneLSBWithinDefaultThreshold(t *testing.T) {
	// 1/255 ~ 0.0039, just under the default 0.004 failure threshold.
	a := flatImage(8, 8, 100)
	b := flatImage(8, 8, 101)

	ok, res := Compare(a, b, testcase.DefaultTolerance())
	if !ok {
		t.Errorf("1 LSB difference should be within default tolerance: %+v", res)
	}
}

func TestCompare_SingleHardFailPixel(t *testing.T) {
	a := flatImage(10, 10, 100)
	b := flatImage(10, 10, 100)
	// One pixel off by 10/255 ~ 0.039, above the default hard fail 0.012.
	b.SetNRGBA(3, 4, color.NRGBA{110, 100, 100, 255})

	// Even with every pixel allowed to "fail" softly, a hard failure fails.
	tol := testcase.DefaultTolerance()
	tol.FailPercent = 100

	ok, res := Compare(a, b, tol)
	if ok {
		t.Errorf("single hard-fail pixel must fail regardless of fail_percent: %+v", res)
	}
	if res.FailedPixels != 1 {
		t.Errorf("FailedPixels = %d, want 1", res.FailedPixels)
	}
}

func TestCompare_WithinFailPercent(t *testing.T) {
	a := flatImage(10, 10, 100)
	b := flatImage(10, 10, 100)
	// Two pixels over the failure threshold but under hard fail.
	tol := testcase.Tolerance{
		FailThreshold: 0.004,
		FailPercent:   5, // 5 of 100 pixels may fail
		HardFail:      0.05,
	}
	b.SetNRGBA(0, 0, color.NRGBA{102, 100, 100, 255})
	b.SetNRGBA(1, 0, color.NRGBA{100, 103, 100, 255})

	ok, res := Compare(a, b, tol)
	if !ok {
		t.Errorf("2%% failing pixels should pass with fail_percent=5: %+v", res)
	}
	if res.FailedPixels != 2 {
		t.Errorf("FailedPixels = %d, want 2", res.FailedPixels)
	}
}

func TestCompare_OverFailPercent(t *testing.T) {
	a := flatImage(10, 10, 100)
	b := flatImage(10, 10, 100)
	tol := testcase.Tolerance{
		FailThreshold: 0.004,
		FailPercent:   1,
		HardFail:      0.05,
	}
	b.SetNRGBA(0, 0, color.NRGBA{102, 100, 100, 255})
	b.SetNRGBA(1, 0, color.NRGBA{103, 100, 100, 255})

	ok, res := Compare(a, b, tol)
	if ok {
		t.Errorf("2%% failing pixels must fail with fail_percent=1: %+v", res)
	}
}

func TestCompare_AllowFailuresExemptsWorstPixels(t *testing.T) {
	a := flatImage(10, 10, 100)
	b := flatImage(10, 10, 100)
	// One pixel well over hard fail; exempted as a freebie.
	b.SetNRGBA(5, 5, color.NRGBA{200, 100, 100, 255})

	tol := testcase.DefaultTolerance()
	tol.AllowFailures = 1

	ok, res := Compare(a, b, tol)
	if !ok {
		t.Errorf("exempted hard-fail pixel should not fail the image: %+v", res)
	}
	if res.FailedPixels != 0 {
		t.Errorf("FailedPixels = %d, want 0 after exemption", res.FailedPixels)
	}
}

func TestCompare_AlphaChannelCounts(t *testing.T) {
	a := flatImage(4, 4, 100)
	b := flatImage(4, 4, 100)
	b.SetNRGBA(0, 0, color.NRGBA{100, 100, 100, 200})

	ok, _ := Compare(a, b, testcase.DefaultTolerance())
	if ok {
		t.Error("alpha difference should count as a pixel difference")
	}
}

func TestCompare_DimensionMismatch(t *testing.T) {
	a := flatImage(8, 8, 100)
	b := flatImage(8, 4, 100)

	ok, res := Compare(a, b, testcase.DefaultTolerance())
	if ok {
		t.Error("dimension mismatch must not match")
	}
	if res.FailPercent != 100 {
		t.Errorf("FailPercent = %v, want 100", res.FailPercent)
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")
	writePNG(t, pathA, flatImage(6, 6, 50))
	writePNG(t, pathB, flatImage(6, 6, 50))

	ok, _, err := CompareFiles(pathA, pathB, testcase.DefaultTolerance())
	if err != nil {
		t.Fatalf("CompareFiles: %v", err)
	}
	if !ok {
		t.Error("identical files should match")
	}
}

func TestCompareFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, flatImage(2, 2, 0))

	if _, _, err := CompareFiles(filepath.Join(dir, "missing.png"), good, testcase.DefaultTolerance()); err == nil {
		t.Error("missing file should error")
	}

	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := CompareFiles(good, garbage, testcase.DefaultTolerance()); err == nil {
		t.Error("undecodable file should error")
	}
}
