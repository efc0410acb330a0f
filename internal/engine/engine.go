// Package engine drives the tool-augmented dialogue loop for one
// conversation turn.
//
// The loop is a two-state machine. Chatbot queries the model with the
// trimmed history; if the response carries tool-call requests the engine
// moves to Tools, executes each request in order, appends one tool
// response per call, and re-enters Chatbot. A response with no tool
// calls is terminal. A configurable hop budget bounds the loop against
// adversarial or cyclic tool-call patterns, and a per-turn deadline
// bounds the blocking model and tool I/O.
//
// Invoke blocks on network I/O; callers run it off the message-intake
// path so one slow conversation cannot stall intake for others. Within
// one session callers must serialize turns (session turn lock); across
// sessions invocations are independent.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/kanon0/llmchat/internal/config"
)

// ToolRunner executes a single named tool with raw (JSON-shaped)
// arguments. genkit's ai.Tool satisfies it.
type ToolRunner interface {
	RunRaw(ctx context.Context, input any) (any, error)
}

// generateFunc performs one model call over the given messages. Split
// out so tests can drive the state machine without a live model.
type generateFunc func(ctx context.Context, msgs []*ai.Message) (*ai.ModelResponse, error)

// lookupFunc resolves a tool by name; ok is false for unknown tools.
type lookupFunc func(name string) (ToolRunner, bool)

// Config assembles an Engine bound to one model and one tool set.
type Config struct {
	Genkit    *genkit.Genkit
	LLM       config.LLM
	ModelName string       // provider-qualified, e.g. "openai/gpt-4o-mini"
	Tools     []ai.ToolRef // bound tool set; may be empty
	Trimmer   Trimmer
	Logger    *slog.Logger

	// RateLimiter throttles model calls across all sessions.
	// Nil installs the default (5 req/s sustained, burst 10).
	RateLimiter *rate.Limiter
}

// Engine runs dialogue turns against a fixed model/tool binding. A
// model switch builds a new Engine; in-flight turns finish against the
// binding they started with.
//
// Engine is stateless between turns and safe for concurrent use across
// sessions.
type Engine struct {
	modelName   string
	generate    generateFunc
	lookup      lookupFunc
	trimmer     Trimmer
	maxHops     int
	turnTimeout time.Duration
	toolTimeout time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Result is the outcome of one completed turn.
type Result struct {
	// FinalText is the model's terminal answer.
	FinalText string

	// NewMessages is everything appended to the conversation this turn,
	// starting with the user message: user, model responses, tool
	// responses, final model answer, in causal order.
	NewMessages []*ai.Message

	// ToolCalls counts tool invocations made during the turn.
	ToolCalls int
}

// New creates an Engine from a genkit binding.
func New(cfg Config) (*Engine, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(5, 10)
	}

	maxHops := cfg.LLM.MaxToolHops
	if maxHops <= 0 {
		maxHops = 8
	}
	turnTimeout := cfg.LLM.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = 90 * time.Second
	}
	toolTimeout := cfg.LLM.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = 30 * time.Second
	}

	e := &Engine{
		modelName:   cfg.ModelName,
		trimmer:     cfg.Trimmer,
		maxHops:     maxHops,
		turnTimeout: turnTimeout,
		toolTimeout: toolTimeout,
		limiter:     limiter,
		logger:      cfg.Logger,
	}

	genConfig := generationConfig(cfg.LLM)
	tools := cfg.Tools
	g := cfg.Genkit

	e.generate = func(ctx context.Context, msgs []*ai.Message) (*ai.ModelResponse, error) {
		opts := []ai.GenerateOption{
			ai.WithModelName(cfg.ModelName),
			ai.WithMessages(msgs...),
		}
		if genConfig != nil {
			opts = append(opts, ai.WithConfig(genConfig))
		}
		if len(tools) > 0 {
			opts = append(opts,
				ai.WithTools(tools...),
				// The engine owns the Tools state; genkit must hand tool
				// requests back instead of executing them itself.
				ai.WithReturnToolRequests(true),
			)
		}
		return genkit.Generate(ctx, g, opts...)
	}

	e.lookup = func(name string) (ToolRunner, bool) {
		tool := genkit.LookupTool(g, name)
		if tool == nil {
			return nil, false
		}
		return tool, true
	}

	return e, nil
}

// generationConfig maps the configured sampling parameters onto the
// provider's config type. Gemini models take the genai config struct;
// the OpenAI-compatible and Ollama plugins decode a generic map.
func generationConfig(llm config.LLM) any {
	if llm.Provider == config.ProviderGemini {
		cfg := &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(llm.Temperature)),
			TopP:        genai.Ptr(float32(llm.TopP)),
		}
		if llm.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(llm.MaxTokens)
		}
		return cfg
	}
	cfg := map[string]any{
		"temperature": llm.Temperature,
		"top_p":       llm.TopP,
	}
	if llm.MaxTokens > 0 {
		cfg["max_tokens"] = llm.MaxTokens
	}
	return cfg
}

// ModelName returns the provider-qualified model this engine is bound to.
func (e *Engine) ModelName() string {
	return e.modelName
}

// Invoke runs one dialogue turn: the user message is appended to the
// history and the Chatbot/Tools loop runs until the model produces an
// answer with no tool calls, the hop budget is exhausted, or the turn
// deadline expires.
//
// Tool execution failures never escape this method; they are converted
// to tool error responses so the model can react to its own failed
// call. Model invocation failures are returned wrapped in
// ErrModelInvocation.
func (e *Engine) Invoke(ctx context.Context, threadID string, history []*ai.Message, userMsg *ai.Message) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	defer cancel()

	msgs := make([]*ai.Message, 0, len(history)+4)
	msgs = append(msgs, history...)
	msgs = append(msgs, userMsg)

	result := &Result{NewMessages: []*ai.Message{userMsg}}

	for hop := 0; ; hop++ {
		if hop >= e.maxHops {
			e.logger.Warn("tool-call budget exhausted",
				"thread_id", threadID, "max_hops", e.maxHops)
			return nil, fmt.Errorf("%w: %d round-trips", ErrToolBudgetExhausted, e.maxHops)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelInvocation, err)
		}

		resp, err := e.generate(ctx, e.trimmer.Trim(msgs))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelInvocation, err)
		}

		modelMsg := resp.Message
		msgs = append(msgs, modelMsg)
		result.NewMessages = append(result.NewMessages, modelMsg)

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			result.FinalText = resp.Text()
			e.logger.Debug("turn complete",
				"thread_id", threadID, "hops", hop+1, "tool_calls", result.ToolCalls)
			return result, nil
		}

		toolMsg := e.executeTools(ctx, threadID, requests)
		result.ToolCalls += len(requests)
		msgs = append(msgs, toolMsg)
		result.NewMessages = append(result.NewMessages, toolMsg)
	}
}

// executeTools runs the Tools state: every requested call is executed
// in request order and answered with exactly one tool response part.
// Unknown tools and failed calls produce error responses, never panics
// or returned errors.
func (e *Engine) executeTools(ctx context.Context, threadID string, requests []*ai.ToolRequest) *ai.Message {
	parts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		output := e.runOne(ctx, threadID, req)
		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}
	return &ai.Message{Role: ai.RoleTool, Content: parts}
}

func (e *Engine) runOne(ctx context.Context, threadID string, req *ai.ToolRequest) (output any) {
	tool, ok := e.lookup(req.Name)
	if !ok {
		e.logger.Warn("model requested unknown tool",
			"thread_id", threadID, "tool", req.Name)
		return map[string]any{"error": fmt.Sprintf("tool %q is not available", req.Name)}
	}

	// A panicking tool must not take down the turn.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked",
				"thread_id", threadID, "tool", req.Name, "panic", r)
			output = map[string]any{"error": fmt.Sprintf("tool %q failed: %v", req.Name, r)}
		}
	}()

	toolCtx, cancel := context.WithTimeout(ctx, e.toolTimeout)
	defer cancel()

	out, err := tool.RunRaw(toolCtx, req.Input)
	if err != nil {
		e.logger.Warn("tool call failed",
			"thread_id", threadID, "tool", req.Name, "error", err)
		return map[string]any{"error": fmt.Sprintf("tool %q failed: %v", req.Name, err)}
	}
	return out
}
