package spotify

import (
	"strings"
	"unicode"
)

// noiseTokens are release qualifiers that never help identify a recording.
var noiseTokens = map[string]struct{}{
	"clean":      {},
	"deluxe":     {},
	"edition":    {},
	"edit":       {},
	"explicit":   {},
	"feat":       {},
	"featuring":  {},
	"ft":         {},
	"live":       {},
	"mix":        {},
	"mono":       {},
	"radio":      {},
	"remaster":   {},
	"remastered": {},
	"stereo":     {},
	"version":    {},
}

// Normalize cleans a title or artist for similarity scoring. Only trailing
// qualifiers such as "(Live)" or "- Remastered 2011" are removed, so a title
// like "Live Forever" survives intact.
func Normalize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	lowered := strings.ToLower(strings.TrimSpace(input))
	trimmed := stripCommonSuffixes(lowered)
	cleaned := cleanSeparators(trimmed)

	return strings.Join(strings.Fields(cleaned), " ")
}

// normalizeSearchInput builds the looser form used in search queries: every
// bracketed segment and noise token is dropped.
func normalizeSearchInput(input string) string {
	if input == "" {
		return ""
	}

	lower := strings.ToLower(input)
	filtered := stripBracketedSegments(lower)
	tokens := strings.Fields(cleanSeparators(filtered))

	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, drop := noiseTokens[token]; drop {
			continue
		}
		cleaned = append(cleaned, token)
	}

	return strings.Join(cleaned, " ")
}

func stripCommonSuffixes(input string) string {
	trimmed := strings.TrimSpace(input)
	for {
		next := trimBracketedSuffix(trimmed)
		next = trimDashSuffix(next)
		if next == trimmed {
			return trimmed
		}
		trimmed = strings.TrimSpace(next)
	}
}

func trimBracketedSuffix(input string) string {
	trimmed := strings.TrimSpace(input)
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		if !strings.HasSuffix(trimmed, pair[1]) {
			continue
		}
		if idx := strings.LastIndex(trimmed, pair[0]); idx != -1 && idx < len(trimmed)-1 {
			if suffixHasToken(trimmed[idx+1 : len(trimmed)-1]) {
				return strings.TrimSpace(trimmed[:idx])
			}
		}
	}
	return input
}

func trimDashSuffix(input string) string {
	trimmed := strings.TrimSpace(input)
	idx := strings.LastIndex(trimmed, " - ")
	if idx == -1 {
		return input
	}

	if suffixHasToken(strings.TrimSpace(trimmed[idx+3:])) {
		return strings.TrimSpace(trimmed[:idx])
	}

	return input
}

func suffixHasToken(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}

	cleaned := cleanSeparators(strings.ToLower(input))
	for _, token := range strings.Fields(cleaned) {
		if _, ok := noiseTokens[token]; ok {
			return true
		}
	}

	return false
}

func stripBracketedSegments(input string) string {
	var out strings.Builder
	depth := 0
	for _, r := range input {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				out.WriteRune(r)
			}
		}
	}

	return out.String()
}

func cleanSeparators(input string) string {
	var out strings.Builder
	lastSpace := false
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}

	return out.String()
}

func fallbackIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}
