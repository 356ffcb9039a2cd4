package suite

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Setup links the test's reference data into the working directory:
// ref/ and src/ from the test source dir, and data pointing at the source
// dir itself. Symlinks are preferred; on filesystems without symlink support
// the trees are copied instead. Existing entries are left alone so repeated
// runs in the same directory are cheap.
func (c *Context) Setup() error {
	if c.SrcDir == c.WorkDir {
		// Running in-source: everything is already in place.
		return nil
	}

	links := []struct {
		src string
		dst string
	}{
		{filepath.Join(c.SrcDir, "ref"), filepath.Join(c.WorkDir, "ref")},
		{filepath.Join(c.SrcDir, "src"), filepath.Join(c.WorkDir, "src")},
		{c.SrcDir, filepath.Join(c.WorkDir, "data")},
	}

	for _, l := range links {
		if _, err := os.Stat(l.src); err != nil {
			continue // optional: not every test ships a ref/ or src/
		}
		if err := linkOrCopy(l.src, l.dst); err != nil {
			return fmt.Errorf("setup %s: %w", l.dst, err)
		}
	}
	return nil
}

// linkOrCopy places src at dst, preferring a symlink. A broken symlink at
// dst (os.Stat fails, os.Lstat succeeds) is replaced.
func linkOrCopy(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}

	if err := os.Symlink(src, dst); err == nil {
		return nil
	}
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode())
	}

	if err := os.MkdirAll(dst, info.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
