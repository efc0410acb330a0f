package engine

import "github.com/firebase/genkit/go/ai"

// Trimmer reduces a conversation history to fit a message-count budget
// while preserving the causal pairing of tool-call requests and their
// responses.
//
// The retained window always starts on a user message and ends on a user
// or tool message. A window starting on a tool message would strand a
// tool response without the model message that requested it; a window
// ending on a model message could strand a pending tool-call request.
// Message count is used deliberately as the token proxy.
type Trimmer struct {
	// MaxMessages is the budget in messages, excluding the system prompt.
	MaxMessages int

	// SystemPrompt, when non-empty, is prepended to the trimmed window
	// and is exempt from the budget.
	SystemPrompt string

	// AllowPartial permits returning the raw budget window even when no
	// valid boundary exists inside it. Off by default: the trimmer then
	// expands the window backward until a valid boundary is found,
	// degrading the budget guarantee before degrading correctness.
	AllowPartial bool
}

// Trim returns the trimmed history. The input slice is not modified.
func (t Trimmer) Trim(msgs []*ai.Message) []*ai.Message {
	window := t.trimWindow(msgs)

	if t.SystemPrompt == "" {
		return window
	}
	out := make([]*ai.Message, 0, len(window)+1)
	out = append(out, &ai.Message{
		Role:    ai.RoleSystem,
		Content: []*ai.Part{ai.NewTextPart(t.SystemPrompt)},
	})
	return append(out, window...)
}

func (t Trimmer) trimWindow(msgs []*ai.Message) []*ai.Message {
	// Drop trailing messages until the window ends on a user or tool
	// message.
	end := len(msgs)
	for end > 0 && !validEnd(msgs[end-1]) {
		end--
	}
	window := msgs[:end]
	if len(window) == 0 {
		return nil
	}
	if t.MaxMessages <= 0 {
		return window
	}

	start := len(window) - t.MaxMessages
	if start < 0 {
		start = 0
	}

	if window[start].Role == ai.RoleUser {
		return window[start:]
	}

	if t.AllowPartial {
		return window[start:]
	}

	// Expand backward first: keep more than the budget rather than
	// return a window that opens mid-tool-exchange.
	for i := start - 1; i >= 0; i-- {
		if window[i].Role == ai.RoleUser {
			return window[i:]
		}
	}

	// No user message behind the budget line; shrink forward instead.
	for i := start + 1; i < len(window); i++ {
		if window[i].Role == ai.RoleUser {
			return window[i:]
		}
	}

	// No valid window exists at all.
	return nil
}

// validEnd reports whether m may be the last message of a trimmed
// window: user and tool messages close an exchange, anything else may
// leave a tool-call request unanswered.
func validEnd(m *ai.Message) bool {
	return m.Role == ai.RoleUser || m.Role == ai.RoleTool
}
