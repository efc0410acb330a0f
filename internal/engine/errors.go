package engine

import "errors"

// Sentinel errors surfaced by Engine.Invoke. Callers check them with
// errors.Is to decide between reporting and destroying the session.
var (
	// ErrModelInvocation indicates the model call itself failed (network,
	// quota, malformed response). The session history may be inconsistent
	// afterwards; the caller should destroy the session.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrToolBudgetExhausted indicates the Chatbot/Tools loop exceeded
	// the configured maximum number of round-trips without producing a
	// final answer.
	ErrToolBudgetExhausted = errors.New("tool-call budget exhausted")
)
