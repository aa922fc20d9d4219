package discover

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Noise filtering runs before any subprocess is spawned: the point is to
// never pay a fork for something that is obviously not an interactive CLI.

var nonExecutableExtensions = map[string]bool{
	".so": true, ".dylib": true, ".dll": true, ".a": true, ".o": true,
	".la": true, ".jar": true, ".zip": true, ".tar": true, ".gz": true,
	".png": true, ".ico": true, ".txt": true, ".md": true, ".conf": true,
}

var backupSuffixes = []string{"~", ".bak", ".old", ".orig", ".save", ".dist"}

var systemInternalPathFragments = []string{
	"/System/Library",
	"/Library/Apple",
	".app/",
	"Program Files",
	"/libexec/",
}

var (
	trailingDigitsPattern  = regexp.MustCompile(`\d{2,}$`)
	embeddedVersionPattern = regexp.MustCompile(`[-_.]v?\d+\.\d+`)
	libraryPrefixPattern   = regexp.MustCompile(`^lib[a-z]`)
)

// isNoise rejects candidates that are overwhelmingly not interactive CLIs:
// shared objects, backups, versioned duplicates, vendor-app internals, and
// background helpers/agents.
func isNoise(name, path string) bool {
	if len(name) <= 2 {
		return true
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	if nonExecutableExtensions[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	for _, suffix := range backupSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	if trailingDigitsPattern.MatchString(name) || embeddedVersionPattern.MatchString(name) {
		return true
	}
	if libraryPrefixPattern.MatchString(name) {
		return true
	}
	if isAllCapsName(name) && len(name) <= 8 {
		return true
	}
	lower := strings.ToLower(name)
	if strings.Contains(lower, "helper") || strings.Contains(lower, "agent") {
		return true
	}
	for _, frag := range systemInternalPathFragments {
		if strings.Contains(path, frag) {
			return true
		}
	}
	return false
}

func isAllCapsName(name string) bool {
	hasUpper := false
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasUpper = true
		}
	}
	return hasUpper
}
