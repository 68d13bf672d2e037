package vocab

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	minWordLen = 3
	maxWordLen = 15
)

// Pattern finds candidate words in generated text. The last capture group of
// every match is taken as the word.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// DefaultPatterns matches the layouts models use for vocabulary lists:
// bold or italic tokens, numbered capitalized tokens and capitalized line starts.
var DefaultPatterns = []Pattern{
	{Name: "bold", Re: regexp.MustCompile(`\*\*([A-Za-z]+)\*\*`)},
	{Name: "italic", Re: regexp.MustCompile(`\*([A-Za-z]+)\*`)},
	{Name: "numbered", Re: regexp.MustCompile(`(\d+\.?\s*)([A-Z][a-z]+)`)},
	{Name: "line_start", Re: regexp.MustCompile(`(?m)^([A-Z][a-z]+)`)},
}

// Extractor pulls candidate vocabulary words out of free text.
// It is a best-effort heuristic, not a parser of the model's output format.
type Extractor struct {
	patterns []Pattern
}

// NewExtractor builds an extractor from patterns; none means DefaultPatterns.
func NewExtractor(patterns ...Pattern) *Extractor {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Extractor{patterns: patterns}
}

// Extract returns the distinct normalized words found by any pattern,
// in first-seen order.
func (e *Extractor) Extract(text string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, p := range e.patterns {
		for _, m := range p.Re.FindAllStringSubmatch(text, -1) {
			word, ok := normalize(m[len(m)-1])
			if !ok {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			words = append(words, word)
		}
	}
	return words
}

// normalize lower-cases w and keeps only alphabetic words of 3 to 15 letters.
func normalize(w string) (string, bool) {
	w = strings.ToLower(strings.TrimSpace(w))
	n := 0
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return "", false
		}
		n++
	}
	if n < minWordLen || n > maxWordLen {
		return "", false
	}
	return w, true
}
