// Package onebot implements a OneBot v11 forward-WebSocket adapter: it
// connects out to a OneBot implementation, normalizes its message
// events into bot.Event values and sends replies through the action
// API on the same connection.
package onebot

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kanon0/llmchat/internal/bot"
	"github.com/kanon0/llmchat/internal/session"
)

// segment is one element of a OneBot v11 message array.
type segment struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// rawEvent covers the fields shared by the OneBot v11 event kinds this
// adapter cares about.
type rawEvent struct {
	PostType      string `json:"post_type"`
	MetaEventType string `json:"meta_event_type"`
	MessageType   string `json:"message_type"`
	SelfID        int64  `json:"self_id"`
	UserID        int64  `json:"user_id"`
	GroupID       int64  `json:"group_id"`
	Sender        struct {
		Nickname string `json:"nickname"`
		Card     string `json:"card"`
	} `json:"sender"`
	Message    json.RawMessage `json:"message"`
	RawMessage string          `json:"raw_message"`
	Echo       string          `json:"echo"`
	Status     string          `json:"status"`
	Retcode    *int            `json:"retcode"`
	Data       json.RawMessage `json:"data"`
}

// quotedMessage is the slice of a get_msg response the adapter needs
// to resolve a reply segment.
type quotedMessage struct {
	Sender struct {
		UserID int64 `json:"user_id"`
	} `json:"sender"`
	Message json.RawMessage `json:"message"`
}

// parseEvent converts a OneBot message event into a bot.Event. Returns
// false for anything that is not a private or group message.
//
// Mention segments addressed to the bot set ToMe and are dropped from
// the text, so the trigger policy and the model never see the markup.
// Private messages are always ToMe. A reply segment's message id is
// returned for the caller to resolve: only a reply quoting one of the
// bot's own messages addresses it, which takes a get_msg lookup.
func parseEvent(raw *rawEvent) (ev bot.Event, replyID string, ok bool) {
	if raw.PostType != "message" {
		return bot.Event{}, "", false
	}

	var kind session.Kind
	switch raw.MessageType {
	case "private":
		kind = session.KindPrivate
	case "group":
		kind = session.KindGroup
	default:
		return bot.Event{}, "", false
	}

	ev = bot.Event{
		Kind:     kind,
		UserID:   raw.UserID,
		GroupID:  raw.GroupID,
		Nickname: displayName(raw),
		ToMe:     kind == session.KindPrivate,
	}

	var segments []segment
	if err := json.Unmarshal(raw.Message, &segments); err != nil {
		// Some implementations deliver the message as a CQ string
		// instead of an array; fall back to the raw text.
		ev.Text = strings.TrimSpace(raw.RawMessage)
		return ev, "", true
	}

	var text strings.Builder
	for _, seg := range segments {
		switch seg.Type {
		case "text":
			text.WriteString(seg.Data["text"])
		case "at":
			if qq, err := strconv.ParseInt(seg.Data["qq"], 10, 64); err == nil && qq == raw.SelfID {
				ev.ToMe = true
			} else {
				// Mentions of other users stay visible as plain text.
				text.WriteString("@" + seg.Data["qq"])
			}
		case "image":
			if u := imageURL(seg); u != "" {
				ev.ImageURLs = append(ev.ImageURLs, u)
			}
		case "reply":
			replyID = seg.Data["id"]
		}
	}
	ev.Text = strings.TrimSpace(text.String())
	return ev, replyID, true
}

// collectImages extracts the http image URLs from a raw message array.
func collectImages(raw json.RawMessage) []string {
	var segments []segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil
	}
	var urls []string
	for _, seg := range segments {
		if seg.Type != "image" {
			continue
		}
		if u := imageURL(seg); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func displayName(raw *rawEvent) string {
	if raw.Sender.Card != "" {
		return raw.Sender.Card
	}
	return raw.Sender.Nickname
}

func imageURL(seg segment) string {
	if u := seg.Data["url"]; strings.HasPrefix(u, "http") {
		return u
	}
	if f := seg.Data["file"]; strings.HasPrefix(f, "http") {
		return f
	}
	return ""
}
