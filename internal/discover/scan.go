// Package discover scans the search path for executables that behave like
// interactive CLIs: programs that answer a help flag with usable text.
// Candidates are filtered cheaply before any subprocess is spawned, tested
// inside a scrubbed environment under a bounded worker pool, scored, and
// cached on disk keyed by a hash of the search path.
package discover

import (
	"os"
	"path/filepath"
	"strings"
)

// candidate is one executable found on the search path.
type candidate struct {
	Name string
	Path string
}

// scanSearchPath enumerates executables on each directory of searchPath in
// order. Duplicates by base name keep the first occurrence only, mirroring
// how the shell resolves $PATH.
func scanSearchPath(searchPath string) []candidate {
	seen := map[string]bool{}
	var out []candidate

	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			// Unreadable or missing PATH entries are common and harmless.
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if seen[name] {
				continue
			}
			full := filepath.Join(dir, name)
			if !isExecutableFile(full, entry) {
				continue
			}
			seen[name] = true
			out = append(out, candidate{Name: name, Path: full})
		}
	}
	return out
}

// isExecutableFile reports whether the entry is a regular file or symlink
// whose permission bits include any execute bit. Symlinks are resolved so
// a link to an executable counts.
func isExecutableFile(path string, entry os.DirEntry) bool {
	mode := entry.Type()
	if mode.IsDir() {
		return false
	}
	if mode&os.ModeSymlink != 0 {
		info, err := os.Stat(path) // follows the link
		if err != nil || info.IsDir() {
			return false
		}
		return info.Mode().Perm()&0111 != 0
	}
	if !mode.IsRegular() {
		return false
	}
	info, err := entry.Info()
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
