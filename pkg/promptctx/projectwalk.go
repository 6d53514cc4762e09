package promptctx

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func absPath(path string) (string, error) {
	return filepath.Abs(path)
}

// loadGitignorePatterns reads root/.gitignore, returning its non-comment
// pattern lines with directory slashes trimmed so they match plain entry
// names. A missing .gitignore yields no patterns.
func loadGitignorePatterns(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.Trim(line, "/"))
	}
	return patterns
}

// walkDir appends a directory listing for dir (relative to root) into
// lines, recursing up to maxProjectStructureDepth levels and skipping
// dotfiles, entries in alwaysIgnoreDirs, and entries matching an
// ignore pattern.
func walkDir(root, dir string, depth int, ignorePatterns []string, lines *[]string) {
	if depth > maxProjectStructureDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	folderName := filepath.Base(dir)
	if dir == root {
		folderName = "/"
	}
	indent := strings.Repeat("  ", depth)
	*lines = append(*lines, fmt.Sprintf("%s%s/", indent, folderName))

	var dirs, files []os.DirEntry
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || shouldIgnore(name, ignorePatterns) {
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })
	fileIndent := strings.Repeat("  ", depth+1)
	for _, f := range files {
		*lines = append(*lines, fmt.Sprintf("%s%s", fileIndent, f.Name()))
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	for _, d := range dirs {
		walkDir(root, filepath.Join(dir, d.Name()), depth+1, ignorePatterns, lines)
	}
}

func shouldIgnore(name string, ignorePatterns []string) bool {
	if _, ok := alwaysIgnoreDirs[name]; ok {
		return true
	}
	for _, pattern := range ignorePatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}
