package refmatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openpixel/pxtest/internal/compare"
)

func newFinder(workDir string, refDirs []string, anymatch bool) *Finder {
	return &Finder{
		WorkDir: workDir,
		RefDirs: refDirs,
		Comparators: compare.Set{
			// Binary comparison is enough to exercise the search logic.
			Image:  &compare.BinaryComparator{WorkDir: workDir},
			Text:   &compare.TextComparator{WorkDir: workDir},
			Binary: &compare.BinaryComparator{WorkDir: workDir},
		},
		AnyMatch: anymatch,
	}
}

func write(t *testing.T, workDir, rel, content string) {
	t.Helper()
	path := filepath.Join(workDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFind_ExactMatch(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.bin", "payload")
	write(t, workDir, "ref/out.bin", "payload")

	m := newFinder(workDir, []string{"ref"}, false).Find("out.bin")

	if !m.Matched {
		t.Fatal("expected a match")
	}
	if m.Reference != filepath.Join("ref", "out.bin") {
		t.Errorf("Reference = %q", m.Reference)
	}
}

func TestFind_ExactPreferredOverAlternate(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.bin", "payload")
	// Both would match; the same-name file must win.
	write(t, workDir, "ref/out.bin", "payload")
	write(t, workDir, "ref/out-alt.bin", "payload")

	m := newFinder(workDir, []string{"ref"}, false).Find("out.bin")

	if !m.Matched {
		t.Fatal("expected a match")
	}
	if m.Reference != filepath.Join("ref", "out.bin") {
		t.Errorf("Reference = %q, want exact same-name match", m.Reference)
	}
}

func TestFind_FallsThroughToMatchingVariant(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.bin", "payload")
	write(t, workDir, "ref/out-variantA.bin", "different")
	write(t, workDir, "ref/out-variantB.bin", "payload")

	m := newFinder(workDir, []string{"ref"}, false).Find("out.bin")

	if !m.Matched {
		t.Fatal("expected variantB to match")
	}
	if m.Reference != filepath.Join("ref", "out-variantB.bin") {
		t.Errorf("Reference = %q, want out-variantB.bin", m.Reference)
	}
}

func TestFind_VariantPatternRequiresPrefix(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.bin", "payload")
	// Same content but does not match out-*.bin*; must not be considered.
	write(t, workDir, "ref/unrelated.bin", "payload")

	m := newFinder(workDir, []string{"ref"}, false).Find("out.bin")

	if m.Matched {
		t.Errorf("unrelated.bin must not match without anymatch, got %q", m.Reference)
	}
}

func TestFind_AnyMatch(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.bin", "payload")
	write(t, workDir, "ref/unrelated.bin", "payload")

	m := newFinder(workDir, []string{"ref"}, true).Find("out.bin")

	if !m.Matched {
		t.Fatal("anymatch should consider every file in the directory")
	}
	if m.Reference != filepath.Join("ref", "unrelated.bin") {
		t.Errorf("Reference = %q", m.Reference)
	}
}

func TestFind_DirectoryPriority(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.bin", "payload")
	write(t, workDir, "ref-linux/out.bin", "different")
	write(t, workDir, "ref/out.bin", "payload")

	// ref-linux is highest priority but does not match; the search falls
	// through to ref.
	m := newFinder(workDir, []string{"ref-linux", "ref"}, false).Find("out.bin")

	if !m.Matched {
		t.Fatal("expected a match in the lower-priority directory")
	}
	if m.Reference != filepath.Join("ref", "out.bin") {
		t.Errorf("Reference = %q", m.Reference)
	}
}

func TestFind_NoMatchReportsDefaultPath(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.bin", "payload")

	m := newFinder(workDir, []string{"ref-linux", "ref"}, false).Find("out.bin")

	if m.Matched {
		t.Fatal("expected no match")
	}
	if m.Reference != filepath.Join("ref-linux", "out.bin") {
		t.Errorf("Reference = %q, want default path in primary dir", m.Reference)
	}
}

func TestFind_TextVariant(t *testing.T) {
	workDir := t.TempDir()
	write(t, workDir, "out.txt", "alpha\nbeta\n")
	write(t, workDir, "ref/out-osx.txt", "alpha\nbeta\n")

	m := newFinder(workDir, []string{"ref"}, false).Find("out.txt")

	if !m.Matched {
		t.Fatal("expected text variant match")
	}
	if m.Reference != filepath.Join("ref", "out-osx.txt") {
		t.Errorf("Reference = %q", m.Reference)
	}
}
