package discover

import (
	"regexp"
	"strings"
)

// Tier grades how much help output a candidate produced.
type Tier string

const (
	TierRich  Tier = "rich"  // substantial output with structural sections
	TierBasic Tier = "basic" // some usable output
	TierNone  Tier = "none"  // nothing worth parsing
)

// Location categorizes where on disk a candidate lives. User-installed
// tools rank above language tooling, which ranks above unclassified paths;
// system binaries rank last since most are plumbing, not interactive CLIs.
type Location string

const (
	LocationUser     Location = "user-installed"
	LocationLanguage Location = "language-tool"
	LocationSystem   Location = "system"
	LocationUnknown  Location = "unknown"
)

const (
	scoreAnsweredHelp = 10
	scoreRichOutput   = 8
	scoreBasicOutput  = 4

	richOutputBytes  = 500
	basicOutputBytes = 100

	// discardBelow drops hopeless candidates from the scored set entirely.
	discardBelow = -5
)

var (
	structuralKeywordPattern = regexp.MustCompile(`(?i)\b(SYNOPSIS|USAGE|DESCRIPTION|OPTIONS|COMMANDS|EXAMPLES)\b`)
	flagLikePattern          = regexp.MustCompile(`(^|\s)--?[A-Za-z]`)
	hyphenatedNamePattern    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)+$`)
	versionTailPattern       = regexp.MustCompile(`\d+(\.\d+)*$`)
)

var languageToolFragments = []string{
	"cargo/bin", "go/bin", "node_modules/.bin", ".nvm/", ".rbenv/",
	".pyenv/", "gems/bin", ".bun/bin", ".deno/bin",
}

var userInstallFragments = []string{
	".local/bin", "/usr/local/bin", "/opt/homebrew/bin", "/home/linuxbrew",
}

// helpTier grades captured help output.
func helpTier(output string) Tier {
	n := len(output)
	switch {
	case n > richOutputBytes && structuralKeywordPattern.MatchString(output):
		return TierRich
	case n > basicOutputBytes || flagLikePattern.MatchString(output):
		return TierBasic
	default:
		return TierNone
	}
}

// helpScore converts a capture into points: answering at all is the big
// signal, rich structure adds more.
func helpScore(answered bool, output string) (int, Tier) {
	if !answered {
		return 0, TierNone
	}
	score := scoreAnsweredHelp
	tier := helpTier(output)
	switch tier {
	case TierRich:
		score += scoreRichOutput
	case TierBasic:
		score += scoreBasicOutput
	}
	return score, tier
}

// nameScore rewards the shape of names people actually type: short-ish
// lowercase words, hyphenated multi-word tools; penalizes screamy or
// versioned names.
func nameScore(name string) int {
	score := 0
	switch {
	case len(name) <= 2:
		score -= 10
	case len(name) >= 3 && len(name) <= 15:
		score += 3
	}
	if isAllCapsName(name) {
		score -= 5
	}
	if hyphenatedNamePattern.MatchString(name) {
		score += 2
	}
	if versionTailPattern.MatchString(name) {
		score -= 3
	}
	return score
}

// classifyLocation buckets the candidate's directory.
func classifyLocation(path string) Location {
	for _, frag := range userInstallFragments {
		if strings.Contains(path, frag) {
			return LocationUser
		}
	}
	for _, frag := range languageToolFragments {
		if strings.Contains(path, frag) {
			return LocationLanguage
		}
	}
	for _, frag := range []string{"/usr/bin", "/usr/sbin", "/bin/", "/sbin"} {
		if strings.Contains(path, frag) {
			return LocationSystem
		}
	}
	return LocationUnknown
}

func locationScore(loc Location) int {
	switch loc {
	case LocationUser:
		return 5
	case LocationLanguage:
		return 3
	case LocationSystem:
		return -2
	default:
		return 0
	}
}
