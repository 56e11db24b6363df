package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// Extraction here is a heuristic over free text, not a parser. It guarantees only
// that arbitrary input never panics; any field it cannot find stays empty.

const (
	minDescriptionChars = 100
	maxCommonNames      = 5
)

var (
	parenBinomialPattern = regexp.MustCompile(`\(([A-Z][a-z]+ [a-z]{3,})\)`)
	binomialPattern      = regexp.MustCompile(`\b([A-Z][a-z]+) ([a-z]{3,})\b`)
	familyPattern        = regexp.MustCompile(`(?i)\bfamily\s*:?\s*([a-z]+aceae)\b`)
	genusPattern         = regexp.MustCompile(`(?i)\bgenus\s*:\s*([a-z]+)\b`)
	orderPattern         = regexp.MustCompile(`(?i)\border\s*:\s*([a-z]+ales)\b`)
	quotedPattern        = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
)

// Capitalised words that start sentences far more often than they start a genus.
var sentenceStarters = map[string]struct{}{
	"a": {}, "all": {}, "also": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "best": {},
	"care": {}, "does": {}, "each": {}, "for": {}, "from": {}, "growing": {}, "how": {},
	"if": {}, "in": {}, "indoor": {}, "is": {}, "it": {}, "its": {}, "learn": {}, "many": {},
	"most": {}, "native": {}, "our": {}, "plant": {}, "plants": {}, "popular": {}, "some": {},
	"the": {}, "there": {}, "these": {}, "they": {}, "this": {}, "to": {}, "what": {},
	"when": {}, "where": {}, "while": {}, "with": {}, "you": {}, "your": {},
}

// ExtractEnrichment pulls structured fields out of web search results.
func ExtractEnrichment(pages []domain.WebPage) domain.Enrichment {
	var result domain.Enrichment
	snippets := make([]string, 0, len(pages))

	for _, page := range pages {
		text := strings.TrimSpace(page.Snippet + " " + page.Name)
		if text == "" {
			continue
		}
		snippets = append(snippets, page.Snippet)

		if result.ScientificName == "" {
			result.ScientificName = extractScientificName(text)
		}
		if result.Family == "" {
			result.Family = firstGroup(familyPattern, text)
		}
		if result.Genus == "" {
			result.Genus = firstGroup(genusPattern, text)
		}
		if result.Order == "" {
			result.Order = firstGroup(orderPattern, text)
		}
		if result.Description == "" && utf8.RuneCountInString(strings.TrimSpace(page.Snippet)) > minDescriptionChars {
			result.Description = strings.TrimSpace(page.Snippet)
		}
	}

	result.CommonNames = ExtractCommonNames(strings.Join(snippets, " "))
	return result
}

// ExtractCommonNames returns quoted names in order of appearance, de-duplicated.
func ExtractCommonNames(text string) []string {
	matches := quotedPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		name := match[1]
		if name == "" {
			name = match[2]
		}
		name = strings.TrimSpace(name)
		if utf8.RuneCountInString(name) <= 1 {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
		if len(out) == maxCommonNames {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func extractScientificName(text string) string {
	if match := parenBinomialPattern.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	for _, match := range binomialPattern.FindAllStringSubmatch(text, -1) {
		if _, skip := sentenceStarters[strings.ToLower(match[1])]; skip {
			continue
		}
		return match[1] + " " + match[2]
	}
	return ""
}

func firstGroup(pattern *regexp.Regexp, text string) string {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return titleCase(match[1])
}

func titleCase(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(first)) + word[size:]
}
