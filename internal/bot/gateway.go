package bot

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/engine"
	"github.com/kanon0/llmchat/internal/router"
	"github.com/kanon0/llmchat/internal/security"
	"github.com/kanon0/llmchat/internal/session"
	"github.com/kanon0/llmchat/internal/trigger"
)

// Dialogue is the slice of the engine the gateway drives. Satisfied by
// *engine.Engine.
type Dialogue interface {
	Invoke(ctx context.Context, threadID string, history []*ai.Message, userMsg *ai.Message) (*engine.Result, error)
	ModelName() string
}

// EngineFactory builds a Dialogue bound to the named model. Used at
// startup and again for every administrative model switch.
type EngineFactory func(model string) (Dialogue, error)

// engineRef wraps the interface so it fits an atomic pointer. In-flight
// turns keep the engine they loaded; a model switch only affects turns
// that start afterwards.
type engineRef struct {
	d Dialogue
}

// Options assembles a Gateway.
type Options struct {
	Store      *session.Store
	Policy     *trigger.Policy
	Router     *router.Router
	Sender     Sender
	Settings   *Settings
	NewEngine  EngineFactory
	Model      string // initial model name
	// ToolNames is the advertised tool list for the admin surface.
	ToolNames  []string
	Responses  config.Responses
	Superusers []int64
	// CommandStart prefixes administrative commands, e.g. "?".
	CommandStart string
	Logger       *slog.Logger
}

// Gateway is the hub between transport, trigger policy, sessions,
// dialogue engine and response delivery. One Gateway serves all
// conversations; turns for different sessions run concurrently while
// each session's turns are serialized by its turn lock.
type Gateway struct {
	store        *session.Store
	policy       *trigger.Policy
	router       *router.Router
	sender       Sender
	settings     *Settings
	newEngine    EngineFactory
	responses    config.Responses
	superusers   map[int64]bool
	commandStart string
	logger       *slog.Logger

	engine    atomic.Pointer[engineRef]
	screen    *security.PromptScreen
	toolNames []string

	// sleep paces chunked delivery; replaced in tests.
	sleep func(time.Duration)
	// pick chooses a canned reply index; replaced in tests.
	pick func(n int) int

	wg sync.WaitGroup
}

// New builds a Gateway and its initial engine.
func New(opts Options) (*Gateway, error) {
	if opts.Store == nil || opts.Policy == nil || opts.Router == nil ||
		opts.Sender == nil || opts.Settings == nil || opts.NewEngine == nil || opts.Logger == nil {
		return nil, fmt.Errorf("store, policy, router, sender, settings, engine factory and logger are required")
	}

	d, err := opts.NewEngine(opts.Model)
	if err != nil {
		return nil, fmt.Errorf("building initial engine: %w", err)
	}

	superusers := make(map[int64]bool, len(opts.Superusers))
	for _, id := range opts.Superusers {
		superusers[id] = true
	}

	gw := &Gateway{
		store:        opts.Store,
		policy:       opts.Policy,
		router:       opts.Router,
		sender:       opts.Sender,
		settings:     opts.Settings,
		newEngine:    opts.NewEngine,
		responses:    opts.Responses,
		superusers:   superusers,
		commandStart: opts.CommandStart,
		logger:       opts.Logger,
		screen:       security.NewPromptScreen(),
		toolNames:    opts.ToolNames,
		sleep:        time.Sleep,
		pick:         rand.IntN,
	}
	gw.engine.Store(&engineRef{d: d})
	return gw, nil
}

// HandleEvent processes one inbound event. The trigger decision and
// command dispatch run inline; the dialogue turn itself runs on its own
// goroutine so a slow model call never stalls message intake.
func (gw *Gateway) HandleEvent(ctx context.Context, ev Event) {
	view := gw.settings.View()

	if cmd, ok := gw.parseCommand(ev.Text); ok {
		gw.handleCommand(ctx, ev, cmd)
		return
	}

	gates := trigger.Gates{Private: view.EnablePrivate, Group: view.EnableGroup}
	decision := gw.policy.Evaluate(trigger.Message{Kind: ev.Kind, Text: ev.Text, ToMe: ev.ToMe}, gates)
	if !decision.Engage {
		if ev.ToMe && gw.kindDisabled(view, ev.Kind) && gw.responses.DisabledMessage != "" {
			gw.send(ctx, ev.Reply(), router.Outgoing{Text: gw.responses.DisabledMessage})
		}
		return
	}

	if decision.Prompt == "" && len(ev.ImageURLs) == 0 {
		gw.send(ctx, ev.Reply(), router.Outgoing{Text: gw.emptyReply()})
		return
	}

	threadID := session.DeriveThreadID(ev.Kind, ev.GroupID, ev.UserID, view.GroupIsolation)

	gw.wg.Add(1)
	go func() {
		defer gw.wg.Done()
		gw.runTurn(ctx, ev, view, threadID, decision.Prompt)
	}()
}

// Wait blocks until all in-flight turns have finished. Called on
// shutdown after the transport stops delivering events.
func (gw *Gateway) Wait() {
	gw.wg.Wait()
}

// ModelName reports the currently active model.
func (gw *Gateway) ModelName() string {
	return gw.engine.Load().d.ModelName()
}

func (gw *Gateway) kindDisabled(view SettingsView, kind session.Kind) bool {
	switch kind {
	case session.KindPrivate:
		return !view.EnablePrivate
	case session.KindGroup:
		return !view.EnableGroup
	}
	return true
}

func (gw *Gateway) runTurn(ctx context.Context, ev Event, view SettingsView, threadID session.ThreadID, prompt string) {
	sess := gw.store.GetOrCreate(threadID)
	sess.Lock()
	defer sess.Unlock()

	if view.Usernames && ev.Nickname != "" && ev.Kind == session.KindGroup {
		prompt = ev.Nickname + ": " + prompt
	}

	// Audit trail only: flagged turns are answered normally.
	if report := gw.screen.Check(prompt); report.Flagged {
		gw.logger.Warn("prompt injection heuristics matched",
			"thread_id", threadID, "user_id", ev.UserID, "patterns", report.Patterns)
	}

	userMsg := buildUserMessage(prompt, ev.ImageURLs)

	eng := gw.engine.Load().d
	res, err := eng.Invoke(ctx, string(threadID), sess.Messages(), userMsg)
	if err != nil {
		gw.logger.Error("dialogue turn failed",
			"thread_id", threadID, "model", eng.ModelName(), "error", err)
		// The history may now hold an orphaned tool-call exchange; drop
		// the session so the next turn starts clean.
		gw.store.Remove(threadID)
		if gw.responses.GeneralError != "" {
			gw.send(ctx, ev.Reply(), router.Outgoing{Text: gw.responses.GeneralError})
		}
		return
	}

	sess.Append(res.NewMessages...)

	text := strings.TrimSpace(res.FinalText)
	if text == "" {
		gw.send(ctx, ev.Reply(), router.Outgoing{Text: gw.emptyReply()})
		return
	}

	gw.deliver(ctx, ev.Reply(), gw.router.Route(text, view.Chunked))
}

// deliver sends the routed messages in order, honoring chunk pacing.
// A failed media send falls back to text with an inline notice so the
// answer itself is never lost.
func (gw *Gateway) deliver(ctx context.Context, to Target, msgs []router.Outgoing) {
	for _, msg := range msgs {
		if msg.Delay > 0 {
			gw.sleep(msg.Delay)
		}
		if err := gw.sender.Send(ctx, to, msg); err == nil {
			continue
		} else if msg.Media == nil {
			gw.logger.Error("send failed", "target", to, "error", err)
			continue
		}

		fallback := strings.TrimSpace(msg.Text + "\n[media unavailable: " + msg.Media.URL + "]")
		if err := gw.sender.Send(ctx, to, router.Outgoing{Text: fallback}); err != nil {
			gw.logger.Error("media fallback send failed", "target", to, "error", err)
		}
	}
}

func (gw *Gateway) send(ctx context.Context, to Target, msg router.Outgoing) {
	if err := gw.sender.Send(ctx, to, msg); err != nil {
		gw.logger.Error("send failed", "target", to, "error", err)
	}
}

func (gw *Gateway) emptyReply() string {
	replies := gw.responses.EmptyMessageReplies
	if len(replies) == 0 {
		return "?"
	}
	return replies[gw.pick(len(replies))]
}

func buildUserMessage(prompt string, imageURLs []string) *ai.Message {
	parts := make([]*ai.Part, 0, 1+len(imageURLs))
	if prompt != "" {
		parts = append(parts, ai.NewTextPart(prompt))
	}
	for _, u := range imageURLs {
		parts = append(parts, ai.NewMediaPart("", u))
	}
	return ai.NewUserMessage(parts...)
}
