// Package tools provides the built-in tool set exposed to the model.
//
// Tools are registered with genkit under stable snake_case names and
// looked up by the dialogue engine at execution time. Each tool returns
// a uniform Result rather than a bare error for expected failures, so
// the model sees structured failure content it can react to; a Go error
// from a tool handler is reserved for conditions the model cannot act
// on.
//
// Handlers hold their dependencies in structs and the genkit closures
// stay thin adapters, keeping the business logic testable without a
// genkit instance.
package tools

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes carried in Result.Error.
const (
	ErrCodeInput    = "invalid_input"
	ErrCodeNetwork  = "network_error"
	ErrCodeSecurity = "security_violation"
	ErrCodeNotFound = "not_found"
)

// Result is the uniform envelope every built-in tool returns.
type Result struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *Error         `json:"error,omitempty"`
}

// Error describes an expected tool failure.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func okResult(message string, data map[string]any) Result {
	return Result{Status: StatusSuccess, Message: message, Data: data}
}

func errResult(code, message string) Result {
	return Result{
		Status: StatusError,
		Error:  &Error{Code: code, Message: message},
	}
}
