package engine

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func userMsg(text string) *ai.Message {
	return ai.NewUserMessage(ai.NewTextPart(text))
}

func modelMsg(text string) *ai.Message {
	return ai.NewModelMessage(ai.NewTextPart(text))
}

func toolCallMsg(name string) *ai.Message {
	return &ai.Message{
		Role: ai.RoleModel,
		Content: []*ai.Part{{
			Kind:        ai.PartToolRequest,
			ToolRequest: &ai.ToolRequest{Name: name, Input: map[string]any{}},
		}},
	}
}

func toolRespMsg(name string) *ai.Message {
	return &ai.Message{
		Role: ai.RoleTool,
		Content: []*ai.Part{
			ai.NewToolResponsePart(&ai.ToolResponse{Name: name, Output: "ok"}),
		},
	}
}

func roles(msgs []*ai.Message) []ai.Role {
	out := make([]ai.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestTrimUnderBudgetUnchanged(t *testing.T) {
	tr := Trimmer{MaxMessages: 10}
	history := []*ai.Message{
		userMsg("hi"),
		modelMsg("hello"),
		userMsg("how are you"),
	}

	got := tr.Trim(history)
	if len(got) != len(history) {
		t.Fatalf("Trim() len = %d, want %d", len(got), len(history))
	}
	for i := range history {
		if got[i] != history[i] {
			t.Errorf("Trim() message %d changed", i)
		}
	}
}

func TestTrimPrependsSystemOutsideBudget(t *testing.T) {
	tr := Trimmer{MaxMessages: 3, SystemPrompt: "you are helpful"}
	history := []*ai.Message{
		userMsg("one"),
		modelMsg("1"),
		userMsg("two"),
		modelMsg("2"),
		userMsg("three"),
	}

	got := tr.Trim(history)
	// System message plus a full three-message window.
	if len(got) != 4 {
		t.Fatalf("Trim() len = %d, want 4 (roles %v)", len(got), roles(got))
	}
	if got[0].Role != ai.RoleSystem {
		t.Fatalf("Trim()[0].Role = %v, want system", got[0].Role)
	}
	if got[1].Text() != "two" {
		t.Errorf("window starts at %q, want %q", got[1].Text(), "two")
	}
	if got[3].Text() != "three" {
		t.Errorf("window ends at %q, want %q", got[3].Text(), "three")
	}
}

func TestTrimExpandsBackwardPastToolExchange(t *testing.T) {
	tr := Trimmer{MaxMessages: 2}
	history := []*ai.Message{
		userMsg("old question"),
		modelMsg("old answer"),
		userMsg("what time is it"),
		toolCallMsg("current_time"),
		toolRespMsg("current_time"),
	}

	got := tr.Trim(history)
	if len(got) == 0 {
		t.Fatal("Trim() returned empty window")
	}
	if got[0].Role != ai.RoleUser {
		t.Errorf("window starts on %v, want user (roles %v)", got[0].Role, roles(got))
	}
	// The budget line falls inside the tool exchange; the trimmer keeps
	// the question that caused it rather than stranding the response.
	if got[0].Text() != "what time is it" {
		t.Errorf("window starts at %q, want the tool-triggering question", got[0].Text())
	}
	if len(got) != 3 {
		t.Errorf("Trim() len = %d, want 3", len(got))
	}
}

func TestTrimDropsTrailingPendingToolCalls(t *testing.T) {
	tr := Trimmer{MaxMessages: 10}
	history := []*ai.Message{
		userMsg("question"),
		modelMsg("answer"),
		userMsg("another"),
		toolCallMsg("search"),
	}

	got := tr.Trim(history)
	if len(got) == 0 {
		t.Fatal("Trim() returned empty window")
	}
	last := got[len(got)-1]
	for _, p := range last.Content {
		if p.Kind == ai.PartToolRequest {
			t.Fatal("window ends on a model message with unanswered tool calls")
		}
	}
	if last.Role != ai.RoleUser {
		t.Errorf("window ends on %v, want user", last.Role)
	}
}

func TestTrimAllowPartialReturnsRawWindow(t *testing.T) {
	tr := Trimmer{MaxMessages: 1, AllowPartial: true}
	history := []*ai.Message{
		userMsg("q"),
		toolCallMsg("search"),
		toolRespMsg("search"),
	}

	got := tr.Trim(history)
	if len(got) != 1 {
		t.Fatalf("Trim() len = %d, want 1", len(got))
	}
	if got[0].Role != ai.RoleTool {
		t.Errorf("partial window starts on %v, want tool", got[0].Role)
	}
}

func TestTrimShrinksForwardWhenNoEarlierUser(t *testing.T) {
	// Nothing but model messages behind the budget line: expanding
	// backward finds no user message, so the trimmer shrinks forward to
	// the next one instead.
	tr := Trimmer{MaxMessages: 4}
	history := []*ai.Message{
		modelMsg("welcome"),
		modelMsg("aside"),
		userMsg("second"),
		modelMsg("2"),
		userMsg("third"),
	}

	got := tr.Trim(history)
	if len(got) != 3 {
		t.Fatalf("Trim() len = %d, want 3 (roles %v)", len(got), roles(got))
	}
	if got[0].Text() != "second" {
		t.Errorf("window starts at %q, want %q", got[0].Text(), "second")
	}
}

func TestTrimLongToolChain(t *testing.T) {
	// The budget line lands mid-chain; the only user message is the one
	// that opened it, so the whole chain is kept.
	tr := Trimmer{MaxMessages: 4}
	history := []*ai.Message{userMsg("go")}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		history = append(history, toolCallMsg(name), toolRespMsg(name))
	}

	got := tr.Trim(history)
	if len(got) != len(history) {
		t.Fatalf("Trim() len = %d, want %d (roles %v)", len(got), len(history), roles(got))
	}
	if got[0].Text() != "go" {
		t.Errorf("window starts at %q, want %q", got[0].Text(), "go")
	}
}

func TestTrimEmptyHistory(t *testing.T) {
	tr := Trimmer{MaxMessages: 5, SystemPrompt: "sys"}
	got := tr.Trim(nil)
	if len(got) != 1 || got[0].Role != ai.RoleSystem {
		t.Fatalf("Trim(nil) = %d messages, want just the system prompt", len(got))
	}
}
