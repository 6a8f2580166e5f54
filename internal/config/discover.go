package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileBaseName is the configuration file name without extension.
const FileBaseName = "ollamaproxy"

var configExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

var ErrNoConfigFile = errors.New("no " + FileBaseName + " configuration file found")

// FindConfigFile walks from startDir up to the filesystem root and returns
// the first file named ollamaproxy.{yaml,yml,json}, matched
// case-insensitively.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if path := configFileIn(dir); path != "" {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoConfigFile
		}
		dir = parent
	}
}

func configFileIn(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	// Several matches in one directory resolve by name order.
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !configExtensions[strings.ToLower(ext)] {
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(name, ext), FileBaseName) {
			matches = append(matches, filepath.Join(dir, name))
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}
