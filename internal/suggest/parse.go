package suggest

import "strings"

// Delimiter separates suggestion items in the upstream response.
const Delimiter = "||"

// DefaultPrompt asks the generator for three delimiter-separated questions.
const DefaultPrompt = "Create a list of three open-ended and engaging questions formatted as a single string. " +
	"Each question should be separated by '||'. These questions are for an anonymous social messaging platform, " +
	"like Qooh.me, and should be suitable for a diverse audience. Avoid personal or sensitive topics, focusing " +
	"instead on universal themes that encourage friendly interaction. For example, your output should be structured " +
	"like this: 'What's a hobby you've recently started?||If you could have dinner with any historical figure, " +
	"who would it be?||What's a simple thing that makes you happy?'. Ensure the questions are intriguing, foster " +
	"curiosity, and contribute to a positive and welcoming conversational environment."

// ParseSuggestions cleans the raw generator output and splits it into items.
// Wrapping quotes and a leading "Here are ...:" style preamble are stripped,
// each item is trimmed, and empty segments are dropped.
func ParseSuggestions(raw string) []string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSpace(s)

	// Models sometimes preface the list with boilerplate despite the prompt.
	if i := strings.Index(s, Delimiter); i > 0 {
		head := s[:i]
		if j := strings.Index(head, ":"); j >= 0 && strings.HasPrefix(strings.ToLower(head), "here") {
			s = s[j+1:]
		}
	}

	parts := strings.Split(s, Delimiter)
	suggestions := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		suggestions = append(suggestions, p)
	}
	return suggestions
}
