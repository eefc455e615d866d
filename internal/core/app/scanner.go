package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wlscope/internal/shared/util"
)

// Discover expands paths into the sorted, de-duplicated list of source files
// to analyze. Directories are walked; a file named explicitly is kept even
// when its extension is not configured.
func (a *App) Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !a.exclude.File(root) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && a.exclude.Dir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !a.extensions[normalizeExt(filepath.Ext(path))] || a.exclude.File(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func (a *App) fileKey(path string) string {
	return util.FileKey(a.projectRoot, path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
