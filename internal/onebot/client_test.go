package onebot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kanon0/llmchat/internal/bot"
	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/log"
	"github.com/kanon0/llmchat/internal/router"
	"github.com/kanon0/llmchat/internal/session"
)

type collectingHandler struct {
	mu     sync.Mutex
	events []bot.Event
	notify chan struct{}
}

func (h *collectingHandler) HandleEvent(_ context.Context, ev bot.Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// fakeOneBot is a minimal OneBot v11 server: it pushes the given
// message events on connect and answers every action through respond.
// A nil respond (or a nil return) answers with retcode 0 and no data.
func fakeOneBot(t *testing.T, events []map[string]any, respond func(req map[string]any) map[string]any) (*httptest.Server, chan map[string]any) {
	t.Helper()
	actions := make(chan map[string]any, 8)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, event := range events {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}

		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			actions <- req
			var resp map[string]any
			if respond != nil {
				resp = respond(req)
			}
			if resp == nil {
				resp = map[string]any{"status": "ok", "retcode": 0}
			}
			resp["echo"] = req["echo"]
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	return srv, actions
}

func privateHiEvent() map[string]any {
	return map[string]any{
		"post_type":    "message",
		"message_type": "private",
		"self_id":      999,
		"user_id":      7,
		"sender":       map[string]any{"nickname": "ada"},
		"message":      []map[string]any{{"type": "text", "data": map[string]any{"text": "hi"}}},
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv, actions := fakeOneBot(t, []map[string]any{privateHiEvent()}, nil)
	defer srv.Close()

	handler := &collectingHandler{notify: make(chan struct{}, 1)}
	client := NewClient(config.OneBot{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		AccessToken: "sekrit",
	}, handler, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = client.Run(ctx)
	}()

	select {
	case <-handler.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the inbound event")
	}

	handler.mu.Lock()
	ev := handler.events[0]
	handler.mu.Unlock()
	if ev.Kind != session.KindPrivate || ev.Text != "hi" || !ev.ToMe {
		t.Errorf("event = %+v", ev)
	}

	// Reply through the action API.
	err := client.Send(ctx, bot.Target{Kind: session.KindPrivate, UserID: 7},
		router.Outgoing{Text: "hello ada"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case req := <-actions:
		if req["action"] != "send_private_msg" {
			t.Errorf("action = %v", req["action"])
		}
		params := req["params"].(map[string]any)
		if params["user_id"].(float64) != 7 {
			t.Errorf("user_id = %v", params["user_id"])
		}
		msg, _ := json.Marshal(params["message"])
		if !strings.Contains(string(msg), "hello ada") {
			t.Errorf("message = %s", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the action request")
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

// echoHandler answers every event by sending through the client, the
// way the gateway replies to commands and canned-reply prompts.
type echoHandler struct {
	client *Client
	done   chan error
}

func (h *echoHandler) HandleEvent(ctx context.Context, ev bot.Event) {
	h.done <- h.client.Send(ctx, ev.Reply(), router.Outgoing{Text: "pong"})
}

func TestHandlerMaySendInline(t *testing.T) {
	srv, actions := fakeOneBot(t, []map[string]any{privateHiEvent()}, nil)
	defer srv.Close()

	client := NewClient(config.OneBot{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		AccessToken: "sekrit",
	}, nil, log.NewNop())
	handler := &echoHandler{client: client, done: make(chan error, 1)}
	client.SetHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	// The send happens inside the handler while the event that caused
	// it is still being processed. The action response must be routed
	// regardless, so this completes without a timeout.
	select {
	case err := <-handler.done:
		if err != nil {
			t.Fatalf("Send() from handler error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send from the event handler never completed")
	}

	select {
	case req := <-actions:
		if req["action"] != "send_private_msg" {
			t.Errorf("action = %v", req["action"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the action request")
	}
}

func TestReplyResolvedAgainstQuotedSender(t *testing.T) {
	replyEvent := func(id string) map[string]any {
		return map[string]any{
			"post_type":    "message",
			"message_type": "group",
			"self_id":      999,
			"user_id":      7,
			"group_id":     9,
			"sender":       map[string]any{"nickname": "ada"},
			"message": []map[string]any{
				{"type": "reply", "data": map[string]any{"id": id}},
				{"type": "text", "data": map[string]any{"text": "and this?"}},
			},
		}
	}

	// Message 42 was sent by the bot itself and quotes an image;
	// message 77 belongs to another user.
	respond := func(req map[string]any) map[string]any {
		if req["action"] != "get_msg" {
			return nil
		}
		params := req["params"].(map[string]any)
		if params["message_id"].(float64) == 42 {
			return map[string]any{"status": "ok", "retcode": 0, "data": map[string]any{
				"sender": map[string]any{"user_id": 999},
				"message": []map[string]any{
					{"type": "image", "data": map[string]any{"url": "https://img.example.com/q.png"}},
				},
			}}
		}
		return map[string]any{"status": "ok", "retcode": 0, "data": map[string]any{
			"sender":  map[string]any{"user_id": 123},
			"message": []map[string]any{},
		}}
	}

	srv, _ := fakeOneBot(t, []map[string]any{replyEvent("42"), replyEvent("77")}, respond)
	defer srv.Close()

	handler := &collectingHandler{notify: make(chan struct{}, 1)}
	client := NewClient(config.OneBot{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		AccessToken: "sekrit",
	}, handler, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		handler.mu.Lock()
		n := len(handler.events)
		handler.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-handler.notify:
		case <-deadline:
			t.Fatalf("timed out: handled %d of 2 events", n)
		}
	}

	handler.mu.Lock()
	events := append([]bot.Event(nil), handler.events...)
	handler.mu.Unlock()

	var toMe, other *bot.Event
	for i := range events {
		if events[i].ToMe {
			toMe = &events[i]
		} else {
			other = &events[i]
		}
	}
	if toMe == nil || other == nil {
		t.Fatalf("events = %+v, want one addressing the bot and one not", events)
	}
	if len(toMe.ImageURLs) != 1 || toMe.ImageURLs[0] != "https://img.example.com/q.png" {
		t.Errorf("ImageURLs = %v, want the quoted image", toMe.ImageURLs)
	}
	if len(other.ImageURLs) != 0 {
		t.Errorf("reply to another user carried images: %v", other.ImageURLs)
	}
}

func TestSendNotConnected(t *testing.T) {
	client := NewClient(config.OneBot{URL: "ws://127.0.0.1:1/"}, &collectingHandler{notify: make(chan struct{}, 1)}, log.NewNop())

	err := client.Send(context.Background(), bot.Target{Kind: session.KindPrivate, UserID: 1},
		router.Outgoing{Text: "x"})
	if err == nil {
		t.Fatal("Send() succeeded without a connection")
	}
}
