package helptext

import (
	"regexp"
	"sort"
)

// TokenKind classifies a substring of a help line.
type TokenKind string

const (
	TokenFlag   TokenKind = "flag"   // -x or --long-name
	TokenWord   TokenKind = "word"   // bare word
	TokenArg    TokenKind = "arg"    // <file>, [path] or UPPER_CASE placeholder
	TokenPunct  TokenKind = "punct"  // structural punctuation
	TokenComma  TokenKind = "comma"  // ,
	TokenColon  TokenKind = "colon"  // :
	TokenEq     TokenKind = "eq"     // =
	TokenBullet TokenKind = "bullet" // -, • or * used as a list marker
)

// Token is a classified substring of a line. Tokens are used only for
// block scoring; final entities are re-derived from the line text.
type Token struct {
	Value string
	Kind  TokenKind
	Col   int
}

var (
	flagTokenPattern   = regexp.MustCompile(`--?[A-Za-z0-9][-A-Za-z0-9]*`)
	argTokenPattern    = regexp.MustCompile(`<[^<>]+>|\[[^\[\]]+\]|\b[A-Z][A-Z0-9_]{2,}\b`)
	bulletTokenPattern = regexp.MustCompile(`(?:^|\s)([-•*])\s`)
	wordTokenPattern   = regexp.MustCompile(`[A-Za-z][-_A-Za-z0-9]*`)
	isWordBytePattern  = regexp.MustCompile(`[A-Za-z0-9_]`)
	punctTokenRunes    = map[byte]TokenKind{',': TokenComma, ':': TokenColon, '=': TokenEq}
)

// tokenize classifies substrings of a line. Extraction is deliberately
// lossy and overlapping: a substring may surface under more than one kind,
// and classification downstream only consumes aggregate counts.
func tokenize(line string) []Token {
	var tokens []Token

	for _, m := range flagTokenPattern.FindAllStringIndex(line, -1) {
		// A flag immediately followed by further word characters (e.g. the
		// "-wrapped" inside "soft-wrapped") is not a flag.
		if m[0] > 0 && isWordBytePattern.MatchString(line[m[0]-1:m[0]]) {
			continue
		}
		if m[1] < len(line) && isWordBytePattern.MatchString(line[m[1]:m[1]+1]) {
			continue
		}
		tokens = append(tokens, Token{Value: line[m[0]:m[1]], Kind: TokenFlag, Col: m[0]})
	}

	for _, m := range argTokenPattern.FindAllStringIndex(line, -1) {
		tokens = append(tokens, Token{Value: line[m[0]:m[1]], Kind: TokenArg, Col: m[0]})
	}

	for _, m := range bulletTokenPattern.FindAllStringSubmatchIndex(line, -1) {
		tokens = append(tokens, Token{Value: line[m[2]:m[3]], Kind: TokenBullet, Col: m[2]})
	}

	for i := 0; i < len(line); i++ {
		if kind, ok := punctTokenRunes[line[i]]; ok {
			tokens = append(tokens, Token{Value: string(line[i]), Kind: kind, Col: i})
		}
	}

	for _, m := range wordTokenPattern.FindAllStringIndex(line, -1) {
		tokens = append(tokens, Token{Value: line[m[0]:m[1]], Kind: TokenWord, Col: m[0]})
	}

	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].Col < tokens[j].Col })
	return tokens
}

// countKind returns how many tokens of the given kind are present.
func countKind(tokens []Token, kind TokenKind) int {
	n := 0
	for _, t := range tokens {
		if t.Kind == kind {
			n++
		}
	}
	return n
}
