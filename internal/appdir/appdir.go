// Package appdir resolves the application's sibling directory (the src tree next to the
// binary or API function) through an ordered search path, independent of the working directory.
package appdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned by Lookup when no root in the search path contains the name.
	ErrNotFound = errors.New("appdir: not found in search path")
	// ErrRelativeAnchor is returned when an anchor is not absolute; resolving it would depend on the working directory.
	ErrRelativeAnchor = errors.New("appdir: anchor must be an absolute path")
)

// Root is one entry of a SearchPath. Dir is set for on-disk roots; FS is always set.
type Root struct {
	Name string
	Dir  string
	FS   fs.FS
}

// DirRoot returns a Root backed by the on-disk directory dir.
func DirRoot(name, dir string) Root {
	return Root{Name: name, Dir: dir, FS: os.DirFS(dir)}
}

// FSRoot returns a Root backed by fsys (e.g. an embed.FS).
func FSRoot(name string, fsys fs.FS) Root {
	return Root{Name: name, FS: fsys}
}

func (r Root) String() string {
	if r.Dir != "" {
		return r.Name + "=" + r.Dir
	}
	return r.Name
}

// Sibling returns the absolute path of <dir(anchor)>/../<name>.
// anchor is a file path such as the running executable or a source file.
func Sibling(anchor, name string) (string, error) {
	if !filepath.IsAbs(anchor) {
		return "", fmt.Errorf("%w: %q", ErrRelativeAnchor, anchor)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(anchor), "..", name)), nil
}

// ExecutableAnchor returns the path of the running executable with symlinks evaluated.
func ExecutableAnchor() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("appdir: executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("appdir: executable: %w", err)
	}
	return resolved, nil
}

// SearchPath is an ordered list of roots consulted to resolve a name. The first root containing the name wins.
type SearchPath struct {
	roots []Root
}

// NewSearchPath returns a SearchPath over roots, in order.
func NewSearchPath(roots ...Root) *SearchPath {
	return &SearchPath{roots: append([]Root(nil), roots...)}
}

// Append adds root at the end of the search path.
func (p *SearchPath) Append(root Root) {
	p.roots = append(p.roots, root)
}

// Prepend adds root at the front of the search path so it takes precedence.
func (p *SearchPath) Prepend(root Root) {
	p.roots = append([]Root{root}, p.roots...)
}

// AppendSibling appends the on-disk sibling directory <dir(anchor)>/../<name> when it exists.
// A missing directory is not an error; an invalid anchor is.
func (p *SearchPath) AppendSibling(anchor, name string) error {
	dir, err := Sibling(anchor, name)
	if err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("appdir: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil
	}
	p.Append(DirRoot("sibling", dir))
	return nil
}

// Roots returns a copy of the roots in search order.
func (p *SearchPath) Roots() []Root {
	return append([]Root(nil), p.roots...)
}

// Lookup returns the first root that contains name (a file or directory, slash separated).
// When no root matches the error wraps ErrNotFound and names every root consulted.
func (p *SearchPath) Lookup(name string) (Root, error) {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	if !fs.ValidPath(name) {
		return Root{}, fmt.Errorf("appdir: invalid name %q", name)
	}
	consulted := make([]string, 0, len(p.roots))
	for _, r := range p.roots {
		if r.FS == nil {
			continue
		}
		consulted = append(consulted, r.String())
		if _, err := fs.Stat(r.FS, name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Root{}, fmt.Errorf("appdir: stat %s in %s: %w", name, r, err)
		}
		return r, nil
	}
	return Root{}, fmt.Errorf("%w: %q (searched %s)", ErrNotFound, name, strings.Join(consulted, ", "))
}

// Open returns the sub-filesystem rooted at name inside the first root containing it.
func (p *SearchPath) Open(name string) (fs.FS, error) {
	r, err := p.Lookup(name)
	if err != nil {
		return nil, err
	}
	if name == "." || name == "" {
		return r.FS, nil
	}
	return fs.Sub(r.FS, path.Clean(strings.TrimPrefix(name, "/")))
}
