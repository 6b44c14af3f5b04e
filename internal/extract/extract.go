package extract

import (
	"regexp"
	"strings"
)

// Explicit-intent markers, longest alternatives first so the scanner
// consumes "tell me about" before the bare "about" can match inside it.
// The marker and the phrase are matched separately: a single capture that
// spans spaces would swallow any later "tell me about Y" in the same
// sentence and break the last-mention precedence rule.
var explicitMarkerPattern = regexp.MustCompile(
	`(?i)\b(?:tell me about|tell me a fact about|give me a fact about|information on|fact about|about)\s+(?:the\s+)?`,
)

var phraseAfterMarkerPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z' -]*`)

var tokenPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]*`)

// phraseStopwords terminate a captured explicit phrase early. Sentence
// punctuation already terminates it via the capture class.
var phraseStopwords = map[string]struct{}{
	"please": {},
	"now":    {},
	"today":  {},
	"thanks": {},
	"thank":  {},
}

// Country resolves a canonical country name from free text, or "" when
// nothing usable remains. It never fails; unknown names pass through as a
// best-effort guess and are validated downstream by the details lookup.
//
// Precedence: the last explicit "tell me about X" style phrase wins; an
// exact multi-word gazetteer phrase is returned verbatim, otherwise only
// the first word of the phrase. Without an explicit phrase the token scan
// prefers multi-word gazetteer matches nearest the end of the text, then
// the last remaining token.
func Country(raw string) string {
	text := Normalize(raw)
	if text == "" {
		return ""
	}

	if phrase := lastExplicitPhrase(text); phrase != "" {
		if canonical, ok := lookupMultiWord(phrase); ok {
			return canonical
		}
		return titleCase(strings.Fields(phrase)[0])
	}

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return ""
	}
	if canonical, ok := multiWordFromTokens(tokens); ok {
		return canonical
	}
	// Last token wins. Counting frequency here would let repeated filler
	// words beat a country stated once at the end.
	return titleCase(tokens[len(tokens)-1])
}

func lastExplicitPhrase(text string) string {
	markers := explicitMarkerPattern.FindAllStringIndex(text, -1)
	if len(markers) == 0 {
		return ""
	}
	rest := text[markers[len(markers)-1][1]:]
	captured := phraseAfterMarkerPattern.FindString(rest)
	if captured == "" {
		return ""
	}

	words := strings.Fields(strings.ToLower(captured))
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if _, stop := phraseStopwords[word]; stop {
			break
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// multiWordFromTokens scans token windows for a gazetteer country,
// preferring the match closest to the end. The two trailing tokens are a
// fast path since "tell me about south korea" style inputs dominate.
func multiWordFromTokens(tokens []string) (string, bool) {
	if len(tokens) >= 2 {
		if canonical, ok := lookupMultiWord(strings.Join(tokens[len(tokens)-2:], " ")); ok {
			return canonical, true
		}
	}
	for start := len(tokens) - 2; start >= 0; start-- {
		longest := maxGazetteerWords
		if remaining := len(tokens) - start; remaining < longest {
			longest = remaining
		}
		for size := longest; size >= 2; size-- {
			if canonical, ok := lookupMultiWord(strings.Join(tokens[start:start+size], " ")); ok {
				return canonical, true
			}
		}
	}
	return "", false
}

func titleCase(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
