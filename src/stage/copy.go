// Package stage mirror-copies checked-out sources and dependency output
// trees into a target's build (or package output) directory, the
// directory-staging half of the Build Executor (spec.md §4.G).
package stage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
)

var log = logging.MustGetLogger("stage")

// MirrorInto recursively copies the contents of src into dst/<basename(src)>,
// equivalent to the original's `rsync -a <src> <dst>`: the source directory
// itself is nested one level under dst.
func MirrorInto(src, dst string) error {
	target := filepath.Join(dst, filepath.Base(src))
	return MirrorTo(src, target)
}

// MirrorContentsInto copies the contents of src directly into dst, without
// nesting a copy of src's basename, equivalent to `rsync -a <src>/ <dst>`.
// This is how package resources are flattened into a package's output dir.
func MirrorContentsInto(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return core.Errorf(core.FSError, src, err)
	}
	for _, e := range entries {
		if err := MirrorTo(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// MirrorTo recursively copies from (file or directory) to exactly to,
// overwriting anything already there.
func MirrorTo(from, to string) error {
	info, err := os.Lstat(from)
	if err != nil {
		return core.Errorf(core.FSError, from, err)
	}
	if !info.IsDir() {
		return copyFile(from, to, info.Mode())
	}
	log.Debugf("mirroring %s -> %s", from, to)
	if err := os.MkdirAll(to, 0o755); err != nil {
		return core.Errorf(core.FSError, to, err)
	}
	err = godirwalk.Walk(from, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			rel := strings.TrimPrefix(strings.TrimPrefix(path, from), string(filepath.Separator))
			if rel == "" {
				return nil
			}
			dest := filepath.Join(to, rel)
			if de.IsDir() {
				return os.MkdirAll(dest, 0o755)
			}
			m, err := os.Lstat(path)
			if err != nil {
				return err
			}
			return copyFile(path, dest, m.Mode())
		},
	})
	if err != nil {
		return core.Errorf(core.FSError, from, err)
	}
	return nil
}

func copyFile(from, to string, mode os.FileMode) error {
	if mode&os.ModeSymlink != 0 {
		dest, err := os.Readlink(from)
		if err != nil {
			return err
		}
		_ = os.Remove(to)
		return os.Symlink(dest, to)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(to, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// RemoveAll deletes path, translating any failure into the FSError kind
// (spec.md §7) rather than a raw os error.
func RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return core.Errorf(core.FSError, path, err)
	}
	return nil
}
