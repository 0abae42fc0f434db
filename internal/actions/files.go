package actions

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alexisbeaulieu97/cph/internal/step"
)

func applyFile(r *FileRequest) error {
	switch r.Op {
	case step.TypeMkdir:
		return os.MkdirAll(r.Path, 0o755)
	case step.TypeTouch:
		return touch(r.Path)
	case step.TypeCopy:
		return copyFile(r.Path, r.Dst)
	case step.TypeCopyTree:
		return copyDirectory(r.Path, r.Dst)
	case step.TypeMove, step.TypeMoveTree:
		if err := os.MkdirAll(filepath.Dir(r.Dst), 0o755); err != nil {
			return err
		}
		return os.Rename(r.Path, r.Dst)
	case step.TypeRemove:
		return os.Remove(r.Path)
	case step.TypeRmTree:
		return os.RemoveAll(r.Path)
	case step.TypeChmod:
		mode, err := strconv.ParseUint(r.Mode, 8, 32)
		if err != nil {
			return fmt.Errorf("invalid mode %q: %w", r.Mode, err)
		}
		return os.Chmod(r.Path, fs.FileMode(mode))
	default:
		return fmt.Errorf("unsupported file operation %q", r.Op)
	}
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	now := time.Now()
	return os.Chtimes(path, now, now)
}

func copyDirectory(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !srcInfo.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == src {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target)
	})
}

// copyFile overwrites dst with the contents and mode of src, creating the
// destination directory when needed.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory; use copytree", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode().Perm())
}
