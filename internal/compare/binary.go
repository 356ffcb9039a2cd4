package compare

import (
	"bytes"
	"io"
	"os"
)

// BinaryComparator performs a byte-exact whole-file comparison. Any read or
// stat failure is treated as a non-match; there is no tolerant mode for
// opaque formats.
type BinaryComparator struct {
	WorkDir string
}

// Compare implements Comparator.
func (c *BinaryComparator) Compare(produced, reference string) Result {
	if filesEqual(joinIfRelative(c.WorkDir, produced), joinIfRelative(c.WorkDir, reference)) {
		return ResultMatch
	}
	return ResultMismatch
}

func filesEqual(pathA, pathB string) bool {
	infoA, err := os.Stat(pathA)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(pathB)
	if err != nil {
		return false
	}
	if infoA.Size() != infoB.Size() {
		return false
	}

	fa, err := os.Open(pathA)
	if err != nil {
		return false
	}
	defer fa.Close()
	fb, err := os.Open(pathB)
	if err != nil {
		return false
	}
	defer fb.Close()

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF
		}
		if errA != nil || errB != nil {
			return false
		}
	}
}
