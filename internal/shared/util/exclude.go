package util

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Excluder holds the directory and file patterns that scans and watches
// skip. Directory patterns match the base name. File patterns match the base
// name or the key relative to the root, so both "*.m" and "Tests/*.wl" work.
type Excluder struct {
	root  string
	dirs  []glob.Glob
	files []glob.Glob
}

func NewExcluder(root string, dirs, files []string) (*Excluder, error) {
	dirGlobs, err := compileGlobs(dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(files, "exclude file")
	if err != nil {
		return nil, err
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &Excluder{root: root, dirs: dirGlobs, files: fileGlobs}, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (e *Excluder) Dir(path string) bool {
	base := filepath.Base(path)
	for _, g := range e.dirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (e *Excluder) File(path string) bool {
	if len(e.files) == 0 {
		return false
	}
	base := filepath.Base(path)
	key := FileKey(e.root, path)
	for _, g := range e.files {
		if g.Match(base) || g.Match(key) {
			return true
		}
	}
	return false
}
