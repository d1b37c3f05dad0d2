// Package discover expands artifact paths into an ordered list of class file
// units.
package discover

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/archcheck/internal/format"
)

// IgnoreFile is the name of the gitignore-syntax file honoured at the root
// of a scanned directory.
const IgnoreFile = ".archignore"

// Options controls which units are kept.
type Options struct {
	// Exclude holds doublestar patterns matched against a unit's
	// slash-separated name, e.g. "com/example/**/*Test.class".
	Exclude []string
}

// Unit is one class file found at or under an input path.
type Unit struct {
	// Origin locates the unit for messages: a file path, or
	// "lib.jar!/com/example/Foo.class" inside an archive.
	Origin string
	// Name is the slash-separated path relative to the directory or archive
	// root.
	Name string
	read func() ([]byte, error)
}

// Read returns the unit's bytes.
func (u Unit) Read() ([]byte, error) {
	return u.read()
}

// Set is the ordered result of discovery. Close releases archive handles.
type Set struct {
	Units   []Unit
	closers []io.Closer
}

// Close releases open archives.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Units discovers class files at or under each path, in the order the paths
// are given. Directory contents and archive entries are sorted by name. A
// path that is missing, unreadable or of an unsupported kind is an error, as
// is an ignore file that exists but cannot be read.
func Units(paths []string, opts Options) (*Set, error) {
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	s := &Set{}
	for _, p := range paths {
		if err := s.add(p, opts); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(root string, opts Options) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return s.addDir(root, opts)
	}

	f := format.Formats[format.ForExtension(filepath.Ext(root))]
	switch {
	case f == nil:
		return fmt.Errorf("%s: unsupported artifact", root)
	case f.Container:
		return s.addArchive(root, opts)
	}
	name := filepath.Base(root)
	if format.Skip(name) || excluded(opts.Exclude, name) {
		return nil
	}
	s.Units = append(s.Units, fileUnit(root, name))
	return nil
}

func (s *Set) addDir(root string, opts Options) error {
	gi, err := loadIgnore(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if format.ForExtension(filepath.Ext(p)) != format.Class || format.Skip(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if excluded(opts.Exclude, rel) {
			return nil
		}
		s.Units = append(s.Units, fileUnit(p, rel))
		return nil
	})
}

func (s *Set) addArchive(archive string, opts Options) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("%s: %w", archive, err)
	}
	s.closers = append(s.closers, zr)

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		name := f.Name
		if f.FileInfo().IsDir() || strings.HasPrefix(name, "META-INF/") {
			continue
		}
		if format.ForExtension(path.Ext(name)) != format.Class || format.Skip(path.Base(name)) {
			continue
		}
		if excluded(opts.Exclude, name) {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	for _, f := range files {
		s.Units = append(s.Units, Unit{
			Origin: archive + "!/" + f.Name,
			Name:   f.Name,
			read: func() ([]byte, error) {
				rc, err := f.Open()
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return io.ReadAll(rc)
			},
		})
	}
	return nil
}

func fileUnit(p, name string) Unit {
	return Unit{
		Origin: p,
		Name:   name,
		read: func() ([]byte, error) {
			return os.ReadFile(p)
		},
	}
}

func excluded(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// loadIgnore returns nil when root has no ignore file.
func loadIgnore(root string) (*ignore.GitIgnore, error) {
	p := filepath.Join(root, IgnoreFile)
	gi, err := ignore.CompileIgnoreFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return gi, nil
}
