// Package bot wires the gateway together: inbound chat events flow
// through the trigger policy, resolve to a session, run a dialogue turn
// and leave through the response router. The package is
// transport-agnostic; adapters feed it Events and implement Sender.
package bot

import (
	"context"

	"github.com/kanon0/llmchat/internal/router"
	"github.com/kanon0/llmchat/internal/session"
)

// Event is one inbound chat message, already normalized by the
// transport adapter: Text holds the plain text with mention markup
// removed, ToMe reports whether the assistant was addressed directly
// (mention or reply), and ImageURLs collects image attachments from the
// message and anything it replied to.
type Event struct {
	Kind      session.Kind
	UserID    int64
	GroupID   int64
	Nickname  string
	Text      string
	ToMe      bool
	ImageURLs []string
}

// Target identifies where a reply goes.
type Target struct {
	Kind    session.Kind
	UserID  int64
	GroupID int64
}

// Reply returns the target that answers this event: the originating
// group, or the sender for private messages.
func (ev Event) Reply() Target {
	return Target{Kind: ev.Kind, UserID: ev.UserID, GroupID: ev.GroupID}
}

// Sender delivers outbound messages. Implementations must be safe for
// concurrent use; turns for different sessions send in parallel.
type Sender interface {
	Send(ctx context.Context, to Target, msg router.Outgoing) error
}
