package security

import (
	"regexp"
	"strings"
	"unicode"
)

// InjectionReport carries the outcome of screening one chat message.
type InjectionReport struct {
	Flagged  bool
	Patterns []string // matched pattern sources, empty when clean
}

// PromptScreen flags inbound chat messages that look like prompt
// injection attempts, so operators get an audit trail of who is poking
// at the system prompt.
//
// Detection is heuristic. No pattern list is complete, and homoglyph
// substitution is not detected; the screen observes and reports, it
// does not decide whether a message is answered.
type PromptScreen struct {
	patterns []*regexp.Regexp
}

// NewPromptScreen creates a PromptScreen with the default pattern set.
func NewPromptScreen() *PromptScreen {
	sources := []string{
		// system prompt override
		`(?i)(ignore|disregard|forget|override)\s+(all\s+)?(previous|above|prior)\s+(instructions?|prompts?|rules?|context)`,

		// role reassignment
		`(?i)^(pretend|act|behave|imagine)\s+(you\s+are|to\s+be|as\s+if|like)`,
		`(?i)^you\s+are\s+now\s+a`,
		`(?i)^from\s+now\s+on,?\s+you\s+(are|will|must)`,

		// injected instruction framing
		`(?i)^\s*(important|critical|urgent|system)\s*:\s*`,
		`(?i)^new\s+(instruction|task|rule)\s*:`,
		`(?i)^admin\s*(mode|override|command)\s*:`,

		// context-escape delimiters
		`(?i)</?(system|instruction|prompt)>`,
		`(?i)\]\s*\[\s*(system|assistant|instruction)`,

		// stock jailbreak phrasing
		`(?i)do\s+anything\s+now`,
		`(?i)jailbreak`,
		`(?i)bypass\s+(safety|filter|restrictions?)`,
	}

	compiled := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		compiled = append(compiled, regexp.MustCompile(src))
	}
	return &PromptScreen{patterns: compiled}
}

// Check screens input and reports any matched patterns.
func (s *PromptScreen) Check(input string) InjectionReport {
	normalized := normalizePrompt(input)

	var matched []string
	for _, re := range s.patterns {
		if re.MatchString(normalized) {
			matched = append(matched, re.String())
		}
	}
	return InjectionReport{Flagged: len(matched) > 0, Patterns: matched}
}

// normalizePrompt strips zero-width and combining characters that could
// split a pattern, and collapses whitespace runs to single spaces.
func normalizePrompt(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
