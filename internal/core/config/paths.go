package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot string
	ProjectKey  string
	StateDir    string
	DBPath      string
	LogFile     string
	OutputPath  string
}

// ResolvePaths anchors every relative path in cfg. The project root comes
// from paths.project_root, or is detected upwards from the first input path
// and then cwd. State files live under the state dir.
func ResolvePaths(cfg *Config, cwd string, inputs []string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	projectRoot := strings.TrimSpace(cfg.Paths.ProjectRoot)
	if projectRoot != "" {
		projectRoot = ResolveRelative(cwd, projectRoot)
	} else {
		candidates := make([]string, 0, len(inputs)+1)
		for _, in := range inputs {
			candidates = append(candidates, ResolveRelative(cwd, in))
		}
		root, err := DetectProjectRoot(append(candidates, cwd))
		if err != nil {
			return ResolvedPaths{}, err
		}
		projectRoot = root
	}

	stateDir := ResolveRelative(projectRoot, cfg.Paths.StateDir)

	resolved := ResolvedPaths{
		ProjectRoot: filepath.Clean(projectRoot),
		ProjectKey:  cfg.DB.ProjectKey,
		StateDir:    stateDir,
		DBPath:      ResolveRelative(stateDir, cfg.DB.Path),
	}
	if resolved.ProjectKey == "" {
		resolved.ProjectKey = filepath.Base(resolved.ProjectRoot)
	}
	if cfg.Log.File != "" {
		resolved.LogFile = ResolveRelative(stateDir, cfg.Log.File)
	}
	if cfg.Output.Path != "" {
		resolved.OutputPath = ResolveRelative(cwd, cfg.Output.Path)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate until it finds a project
// marker. Paclet metadata counts as a marker.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFileName,
		"PacletInfo.wl",
		"PacletInfo.m",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
