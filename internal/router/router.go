// Package router shapes the dialogue engine's final text into outbound
// messages: it extracts embedded media links into structured
// attachments and, when chunked delivery is on, splits long replies
// into time-paced segments that read like a person typing.
package router

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kanon0/llmchat/internal/config"
)

// Outgoing is one message to deliver. Delay is how long the sender
// should wait before delivering it; the first message of a reply always
// has zero delay.
type Outgoing struct {
	Text  string
	Media *Media
	Delay time.Duration
}

// Router is immutable after construction and safe for concurrent use.
// The chunked flag is passed per call because administrative commands
// toggle it at runtime.
type Router struct {
	separators     []string
	charsPerSecond float64
	maxDelay       time.Duration
}

// New builds a Router from the chunked-delivery configuration.
func New(cfg config.Chunk) *Router {
	seps := cfg.Separators
	if len(seps) == 0 {
		seps = []string{"||"}
	}
	cps := float64(cfg.CharsPerSecond)
	if cps <= 0 {
		cps = 10
	}
	maxDelay := time.Duration(cfg.MaxDelay * float64(time.Second))
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	return &Router{separators: seps, charsPerSecond: cps, maxDelay: maxDelay}
}

// Route turns the engine's final text into the sequence of outbound
// messages. A reply carrying media is never chunked: the attachment and
// its remaining text go out as one message.
func (r *Router) Route(text string, chunked bool) []Outgoing {
	text = strings.TrimSpace(text)

	cleaned, media := extractMedia(text)
	if media != nil {
		return []Outgoing{{Text: strings.TrimSpace(cleaned), Media: media}}
	}

	if !chunked {
		return []Outgoing{{Text: text}}
	}

	chunks := r.split(text)
	out := make([]Outgoing, 0, len(chunks))
	for i, chunk := range chunks {
		msg := Outgoing{Text: chunk}
		if i > 0 {
			// Pacing mimics typing: the wait before a message is derived
			// from the length of the previous one.
			msg.Delay = r.delay(chunks[i-1])
		}
		out = append(out, msg)
	}
	return out
}

// split cuts text on every configured separator and drops
// empty-after-trim segments, so trailing separators produce no empty
// message.
func (r *Router) split(text string) []string {
	parts := []string{text}
	for _, sep := range r.separators {
		if sep == "" {
			continue
		}
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *Router) delay(chunk string) time.Duration {
	d := time.Duration(float64(utf8.RuneCountInString(chunk)) / r.charsPerSecond * float64(time.Second))
	if d > r.maxDelay {
		return r.maxDelay
	}
	return d
}
