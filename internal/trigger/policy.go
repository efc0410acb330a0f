// Package trigger decides whether an inbound message addresses the
// assistant at all. The decision is a pure function of the message and
// the configured trigger modes; session state never influences it.
package trigger

import (
	"strings"

	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/session"
)

// Message is the slice of an inbound event the policy needs. Text
// carries the plain text with mention markup already removed by the
// transport adapter; ToMe reports whether the message addressed the
// assistant directly (mention or reply).
type Message struct {
	Kind session.Kind
	Text string
	ToMe bool
}

// Gates are the per-kind enable switches. They are passed per call
// because administrative commands flip them at runtime.
type Gates struct {
	Private bool
	Group   bool
}

// Decision is the policy's verdict. Prompt is the text to hand to the
// dialogue engine with trigger artifacts (matched prefix) stripped;
// matched keywords stay in. An engaged Decision with an empty Prompt
// means the user addressed the assistant with nothing to say.
type Decision struct {
	Engage bool
	Prompt string
}

// Policy evaluates trigger modes against inbound messages. Immutable
// after construction and safe for concurrent use.
type Policy struct {
	mention bool
	keyword bool
	prefix  bool
	words   []string
}

// NewPolicy builds a Policy from the trigger configuration. With no
// modes configured, mention-based triggering is the default.
func NewPolicy(cfg config.Trigger) *Policy {
	p := &Policy{words: cfg.Words}
	for _, mode := range cfg.Modes {
		switch mode {
		case config.TriggerAt:
			p.mention = true
		case config.TriggerKeyword:
			p.keyword = true
		case config.TriggerPrefix:
			p.prefix = true
		}
	}
	if !p.mention && !p.keyword && !p.prefix {
		p.mention = true
	}
	return p
}

// Evaluate applies the trigger modes in order: mention, keyword,
// prefix. The first matching mode engages. Messages in a disabled
// conversation kind never engage regardless of match.
//
// Private messages are treated as implicitly addressed: a direct
// message always carries ToMe, so mention mode engages on every
// enabled private message.
func (p *Policy) Evaluate(msg Message, gates Gates) Decision {
	switch msg.Kind {
	case session.KindPrivate:
		if !gates.Private {
			return Decision{}
		}
	case session.KindGroup:
		if !gates.Group {
			return Decision{}
		}
	default:
		return Decision{}
	}

	text := strings.TrimSpace(msg.Text)

	if p.mention && msg.ToMe {
		return Decision{Engage: true, Prompt: text}
	}

	if p.keyword {
		for _, w := range p.words {
			if w != "" && strings.Contains(text, w) {
				// Keywords are meaning-bearing; they stay in the prompt.
				return Decision{Engage: true, Prompt: text}
			}
		}
	}

	if p.prefix {
		for _, w := range p.words {
			if w != "" && strings.HasPrefix(text, w) {
				return Decision{Engage: true, Prompt: strings.TrimSpace(text[len(w):])}
			}
		}
	}

	return Decision{}
}
