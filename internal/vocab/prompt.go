package vocab

import (
	"fmt"
	"strings"

	"github.com/ashureev/vocabot/internal/agent"
)

const (
	wordsPerBatch   = 5
	maxExcludeWords = 50
	maxTokens       = 800
	baseTemperature = 0.8
	temperatureStep = 0.1
)

// DefaultLanguage is the learner's language used for explanations.
const DefaultLanguage = "Thai"

func systemPrompt(language string) string {
	return fmt.Sprintf(`You are a helpful English vocabulary teacher. Provide exactly %d English vocabulary words with clear, simple %s explanations.

Format each word clearly with:
1. The English word in bold
2. Pronunciation guide in brackets
3. %s meaning and example

Choose intermediate-level words that are useful in daily life. Make sure each word is different and unique.`,
		wordsPerBatch, language, language)
}

func userPrompt(language string, exclude []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give me %d intermediate-level English vocabulary words with their meanings explained clearly in %s. Please format them nicely with numbers.",
		wordsPerBatch, language)
	if len(exclude) > 0 {
		b.WriteString("\n\nIMPORTANT: Please avoid using these previously used words: ")
		b.WriteString(strings.Join(exclude, ", "))
	}
	return b.String()
}

// buildMessages assembles the chat turns for one acquisition. The exclusion
// list is a hint to the model, not an enforced constraint.
func buildMessages(language string, exclude []string) []agent.Message {
	return []agent.Message{
		{Role: agent.RoleSystem, Content: systemPrompt(language)},
		{Role: agent.RoleUser, Content: userPrompt(language, exclude)},
	}
}

// temperatureFor ramps randomness linearly with the attempt number (1-based).
func temperatureFor(attempt int) float64 {
	return baseTemperature + temperatureStep*float64(attempt-1)
}
