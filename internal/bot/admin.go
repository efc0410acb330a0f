package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/kanon0/llmchat/internal/router"
	"github.com/kanon0/llmchat/internal/session"
)

const adminUsage = `chat commands:
  chat model           show the active model
  chat model <name>    switch model (clears all sessions)
  chat clear           clear all sessions
  chat tools           list registered tools
  chat group on|off    enable/disable group chat
  chat private on|off  enable/disable private chat
  chat isolation on|off  per-user isolation in groups
  chat chunk on|off    chunked delivery`

// parseCommand recognizes administrative commands: text starting with
// the command prefix followed by "chat". Returns the argument fields
// after "chat".
func (gw *Gateway) parseCommand(text string) ([]string, bool) {
	if gw.commandStart == "" {
		return nil, false
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, gw.commandStart) {
		return nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, gw.commandStart))
	if len(fields) == 0 || fields[0] != "chat" {
		return nil, false
	}
	return fields[1:], true
}

// handleCommand executes one administrative command. Only superusers
// may issue them; anyone else is silently ignored so the command
// surface is not discoverable by probing.
func (gw *Gateway) handleCommand(ctx context.Context, ev Event, args []string) {
	if !gw.superusers[ev.UserID] {
		gw.logger.Debug("command from non-superuser ignored", "user_id", ev.UserID)
		return
	}

	reply := func(text string) {
		gw.send(ctx, ev.Reply(), router.Outgoing{Text: text})
	}

	if len(args) == 0 {
		reply(adminUsage)
		return
	}

	switch args[0] {
	case "model":
		if len(args) == 1 {
			reply("active model: " + gw.ModelName())
			return
		}
		gw.switchModel(args[1], reply)

	case "clear":
		n := gw.store.Clear(nil)
		reply(fmt.Sprintf("cleared %d sessions", n))

	case "tools":
		if len(gw.toolNames) == 0 {
			reply("no tools registered")
			return
		}
		reply("registered tools: " + strings.Join(gw.toolNames, ", "))

	case "group":
		gw.toggle(args, reply, "group chat", gw.settings.SetGroupEnabled)

	case "private":
		gw.toggle(args, reply, "private chat", gw.settings.SetPrivateEnabled)

	case "isolation":
		on, ok := parseOnOff(args)
		if !ok {
			reply(adminUsage)
			return
		}
		if gw.settings.SetGroupIsolation(on) {
			// Existing group threads were derived under the old mode and
			// would collide or leak across users; drop them.
			n := gw.store.Clear(func(id session.ThreadID) bool { return !id.IsPrivate() })
			reply(fmt.Sprintf("group isolation %s, cleared %d group sessions", onOff(on), n))
			return
		}
		reply("group isolation " + onOff(on))

	case "chunk":
		gw.toggle(args, reply, "chunked delivery", gw.settings.SetChunked)

	default:
		reply(adminUsage)
	}
}

func (gw *Gateway) switchModel(model string, reply func(string)) {
	d, err := gw.newEngine(model)
	if err != nil {
		gw.logger.Error("model switch failed", "model", model, "error", err)
		reply(fmt.Sprintf("switching to %q failed: %v", model, err))
		return
	}
	gw.engine.Store(&engineRef{d: d})
	// Histories were built against the previous model's behavior; start
	// fresh like the session-bound checkpoints they stand in for.
	n := gw.store.Clear(nil)
	gw.logger.Info("model switched", "model", model, "cleared_sessions", n)
	reply(fmt.Sprintf("switched to %s, cleared %d sessions", model, n))
}

func (gw *Gateway) toggle(args []string, reply func(string), what string, set func(bool)) {
	on, ok := parseOnOff(args)
	if !ok {
		reply(adminUsage)
		return
	}
	set(on)
	reply(what + " " + onOff(on))
}

func parseOnOff(args []string) (bool, bool) {
	if len(args) < 2 {
		return false, false
	}
	switch strings.ToLower(args[1]) {
	case "on", "true", "1", "enable":
		return true, true
	case "off", "false", "0", "disable":
		return false, true
	}
	return false, false
}

func onOff(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
