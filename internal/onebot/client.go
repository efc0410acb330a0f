package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kanon0/llmchat/internal/bot"
	"github.com/kanon0/llmchat/internal/config"
	"github.com/kanon0/llmchat/internal/router"
	"github.com/kanon0/llmchat/internal/session"
)

const apiTimeout = 10 * time.Second

// Handler receives normalized inbound events. The client calls it on a
// per-event goroutine, so implementations may block and may call back
// into the client to send replies.
type Handler interface {
	HandleEvent(ctx context.Context, ev bot.Event)
}

// Client maintains one forward-WebSocket connection to a OneBot v11
// implementation, reconnecting on failure. It implements bot.Sender.
type Client struct {
	url               string
	accessToken       string
	reconnectInterval time.Duration
	handler           Handler
	logger            *slog.Logger

	mu   sync.Mutex // guards conn writes and replacement
	conn *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan *rawEvent

	// wg tracks per-event handler goroutines so Run returns only after
	// every dispatched event has been handled.
	wg sync.WaitGroup
}

// NewClient builds a Client; Run must be called to connect. A nil
// handler may be installed later with SetHandler, before Run.
func NewClient(cfg config.OneBot, handler Handler, logger *slog.Logger) *Client {
	interval := cfg.ReconnectInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Client{
		url:               cfg.URL,
		accessToken:       cfg.AccessToken,
		reconnectInterval: interval,
		handler:           handler,
		logger:            logger,
		pending:           make(map[string]chan *rawEvent),
	}
}

// SetHandler installs the event handler. Must be called before Run;
// the client and its handler reference each other, so one of the two
// is wired up after construction.
func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

// Run connects and serves events until ctx is cancelled, redialing
// after connection loss.
func (c *Client) Run(ctx context.Context) error {
	defer c.wg.Wait()
	for {
		err := c.connectAndServe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("connection lost, reconnecting",
			"url", c.url, "after", c.reconnectInterval, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectInterval):
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info("connected", "url", c.url)

	// Close the connection when ctx is cancelled to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		c.failPending()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(ctx, data)
	}
}

// dispatch routes one inbound frame: API responses resolve their
// pending call, message events go to the handler, everything else is
// ignored.
func (c *Client) dispatch(ctx context.Context, data []byte) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Warn("discarding unparseable frame", "error", err)
		return
	}

	if raw.Echo != "" {
		c.pendingMu.Lock()
		ch, ok := c.pending[raw.Echo]
		delete(c.pending, raw.Echo)
		c.pendingMu.Unlock()
		if ok {
			ch <- &raw
		}
		return
	}

	if raw.PostType == "meta_event" {
		c.logger.Debug("meta event", "type", raw.MetaEventType, "self_id", raw.SelfID)
		return
	}

	ev, replyID, ok := parseEvent(&raw)
	if !ok {
		return
	}

	// Handlers run off the read loop: replies go through the action
	// API, whose responses arrive on this very loop. An inline handler
	// call would deadlock every send against its own read.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if replyID != "" {
			c.resolveReply(ctx, &ev, raw.SelfID, replyID)
		}
		c.handler.HandleEvent(ctx, ev)
	}()
}

// resolveReply fetches the message quoted by a reply segment. A reply
// to one of the bot's own messages addresses the bot, and images in
// the quoted message travel with the prompt. Lookup failures leave the
// event as parsed.
func (c *Client) resolveReply(ctx context.Context, ev *bot.Event, selfID int64, replyID string) {
	params := map[string]any{"message_id": replyID}
	if id, err := strconv.ParseInt(replyID, 10, 64); err == nil {
		params["message_id"] = id
	}

	resp, err := c.call(ctx, apiRequest{Action: "get_msg", Params: params, Echo: uuid.NewString()})
	if err != nil {
		c.logger.Warn("get_msg failed", "message_id", replyID, "error", err)
		return
	}
	if resp.Retcode != nil && *resp.Retcode != 0 {
		c.logger.Warn("get_msg failed", "message_id", replyID, "retcode", *resp.Retcode)
		return
	}

	var quoted quotedMessage
	if err := json.Unmarshal(resp.Data, &quoted); err != nil {
		c.logger.Warn("discarding unparseable get_msg response",
			"message_id", replyID, "error", err)
		return
	}

	if quoted.Sender.UserID == selfID {
		ev.ToMe = true
	}
	ev.ImageURLs = append(ev.ImageURLs, collectImages(quoted.Message)...)
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for echo, ch := range c.pending {
		close(ch)
		delete(c.pending, echo)
	}
}

// apiRequest is one OneBot action call.
type apiRequest struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo"`
}

// Send delivers one outbound message, implementing bot.Sender. The
// action result is awaited so upload failures (for example a rejected
// image) surface to the caller.
func (c *Client) Send(ctx context.Context, to bot.Target, msg router.Outgoing) error {
	segments := buildSegments(msg)
	if len(segments) == 0 {
		return nil
	}

	var action string
	params := map[string]any{"message": segments}
	switch to.Kind {
	case session.KindPrivate:
		action = "send_private_msg"
		params["user_id"] = to.UserID
	case session.KindGroup:
		action = "send_group_msg"
		params["group_id"] = to.GroupID
	default:
		return fmt.Errorf("unsupported target kind %v", to.Kind)
	}

	resp, err := c.call(ctx, apiRequest{Action: action, Params: params, Echo: uuid.NewString()})
	if err != nil {
		return err
	}
	if resp.Retcode != nil && *resp.Retcode != 0 {
		return fmt.Errorf("%s failed: retcode %d", action, *resp.Retcode)
	}
	return nil
}

func (c *Client) call(ctx context.Context, req apiRequest) (*rawEvent, error) {
	ch := make(chan *rawEvent, 1)
	c.pendingMu.Lock()
	c.pending[req.Echo] = ch
	c.pendingMu.Unlock()

	if err := c.write(req); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, req.Echo)
		c.pendingMu.Unlock()
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, errors.New("connection lost while awaiting response")
		}
		return resp, nil
	case <-time.After(apiTimeout):
		c.pendingMu.Lock()
		delete(c.pending, req.Echo)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("%s: response timeout", req.Action)
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, req.Echo)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	return c.conn.WriteJSON(v)
}

// buildSegments converts a routed message into OneBot segments. Media
// goes first so clients render the attachment above its caption.
func buildSegments(msg router.Outgoing) []segment {
	var segments []segment
	if msg.Media != nil {
		segType := "image"
		if msg.Media.Video {
			segType = "video"
		}
		segments = append(segments, segment{
			Type: segType,
			Data: map[string]string{"file": msg.Media.URL},
		})
	}
	if msg.Text != "" {
		segments = append(segments, segment{
			Type: "text",
			Data: map[string]string{"text": msg.Text},
		})
	}
	return segments
}
