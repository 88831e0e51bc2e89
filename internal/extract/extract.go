// Package extract finds candidate token contract addresses in free text
// and classifies them by chain family. It is deliberately permissive on
// the EVM side (any bounded 40-hex run) and conservative on the base58
// side, where ordinary words and URL fragments are easy false positives.
package extract

import (
	"regexp"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/rugscan/rugscan/internal/domain"
)

var (
	evmPattern    = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)
	base58Pattern = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

	allLetters = regexp.MustCompile(`^[A-Za-z]+$`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
)

// Vanity suffixes minted on purpose (pump.fun style); a candidate ending
// in one is accepted without further heuristics.
var vanitySuffixes = []string{"pump", "bonk", "moon"}

var tldSuffixes = []string{".com", ".org", ".net", ".io", ".xyz", ".app", ".fun"}

// Extract scans text and returns the deduplicated addresses found.
// EVM addresses dedup case-insensitively via normalization; base58
// addresses dedup case-sensitively. Empty input yields an empty slice.
func Extract(text string) []domain.Address {
	if text == "" {
		return nil
	}

	var out []domain.Address
	seen := make(map[string]bool)

	for _, loc := range evmPattern.FindAllStringIndex(text, -1) {
		if !boundedHex(text, loc[0], loc[1]) {
			continue
		}
		addr := domain.NewAddress(domain.DefaultEVMChain, text[loc[0]:loc[1]])
		if !seen[addr.Key()] {
			seen[addr.Key()] = true
			out = append(out, addr)
		}
	}

	for _, loc := range base58Pattern.FindAllStringIndex(text, -1) {
		candidate := text[loc[0]:loc[1]]
		if !boundedAlnum(text, loc[0], loc[1]) {
			continue
		}
		if looksLikeEVMFragment(text, loc[0]) {
			continue
		}
		if !plausibleBase58(text, candidate, loc[0]) {
			continue
		}
		addr := domain.NewAddress(domain.ChainSolana, candidate)
		if !seen[addr.Key()] {
			seen[addr.Key()] = true
			out = append(out, addr)
		}
	}

	return out
}

// boundedHex rejects matches embedded in a longer hex-alphanumeric run,
// e.g. the first 40 hex chars of a 64-char transaction hash.
func boundedHex(text string, start, end int) bool {
	if start > 0 && isHexAlnum(text[start-1]) {
		return false
	}
	if end < len(text) && isHexAlnum(text[end]) {
		return false
	}
	return true
}

// boundedAlnum requires non-alphanumeric characters (or text edges)
// around the match so partial runs of longer identifiers are skipped.
func boundedAlnum(text string, start, end int) bool {
	if start > 0 && isAlnum(text[start-1]) {
		return false
	}
	if end < len(text) && isAlnum(text[end]) {
		return false
	}
	return true
}

// looksLikeEVMFragment rejects base58 candidates that are really the
// tail of an 0x-address whose prefix the base58 alphabet cannot cover.
func looksLikeEVMFragment(text string, start int) bool {
	return start >= 2 && text[start-2] == '0' && (text[start-1] == 'x' || text[start-1] == 'X')
}

// plausibleBase58 applies the false-positive suppression heuristics to a
// bounded base58-alphabet run.
func plausibleBase58(text, candidate string, start int) bool {
	// Natural-language words are all letters; real mint addresses
	// essentially never are.
	if allLetters.MatchString(candidate) && !hasVanitySuffix(candidate) {
		return false
	}

	lower := strings.ToLower(candidate)
	for _, tld := range tldSuffixes {
		if strings.HasSuffix(lower, tld) || strings.Contains(lower, tld+"/") {
			return false
		}
	}

	if precededByURL(text, start) && !precededByContractLabel(text, start) {
		return false
	}

	if hasVanitySuffix(candidate) {
		return true
	}

	// Require at least one digit or mixed case: base58 payloads of this
	// length are overwhelmingly likely to have both.
	if hasDigit.MatchString(candidate) {
		return true
	}
	return hasUpper.MatchString(candidate) && hasLower.MatchString(candidate)
}

func hasVanitySuffix(candidate string) bool {
	for _, s := range vanitySuffixes {
		if strings.HasSuffix(candidate, s) {
			return true
		}
	}
	return false
}

// precededByURL reports whether the candidate sits directly inside a
// URL: the contiguous URL-ish run before it carries a scheme, a www.
// marker or a path separator.
func precededByURL(text string, start int) bool {
	i := start
	for i > 0 && isURLChar(text[i-1]) {
		i--
	}
	prefix := strings.ToLower(text[i:start])
	if prefix == "" {
		return false
	}
	return strings.Contains(prefix, "://") ||
		strings.HasPrefix(prefix, "www.") ||
		strings.Contains(prefix, "/")
}

func isURLChar(b byte) bool {
	return isAlnum(b) || b == '/' || b == '.' || b == '-' || b == '_' || b == ':' || b == '?' || b == '=' || b == '&'
}

// precededByContractLabel recognizes "CA:"-style labels that explicitly
// mark the following token as a contract address, overriding the URL
// suppression (dexscreener-style links followed by a labeled mint).
func precededByContractLabel(text string, start int) bool {
	prefixStart := start - 12
	if prefixStart < 0 {
		prefixStart = 0
	}
	prefix := strings.ToLower(strings.TrimRight(text[prefixStart:start], " \t"))
	return strings.HasSuffix(prefix, "ca:") ||
		strings.HasSuffix(prefix, "ca :") ||
		strings.HasSuffix(prefix, "contract:") ||
		strings.HasSuffix(prefix, "mint:")
}

// ValidSolanaAddress reports whether s decodes as a 32-byte base58
// payload, the on-chain account size for mints.
func ValidSolanaAddress(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

func isHexAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') || b == 'x' || b == 'X'
}

func isAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
