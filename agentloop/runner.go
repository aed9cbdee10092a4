package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/martinemde/agentconsole/repl"
	"github.com/martinemde/agentconsole/turnstream"
	"github.com/martinemde/agentconsole/unifiedllm"
)

// ErrSessionNotFound is returned for a handle the Runner does not know.
var ErrSessionNotFound = errors.New("session not found")

// TurnLimitCode is the StreamError code used when a message exhausts its
// tool rounds or the session exhausts its turns.
const TurnLimitCode = "TURN_LIMIT"

// TurnLimitError ends a message that hit MaxToolRounds or MaxTurns.
type TurnLimitError struct {
	Limit  int
	Reason string
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("%s limit of %d reached", e.Reason, e.Limit)
}

// RunnerConfig controls the agentic loop.
type RunnerConfig struct {
	Profile     Profile
	MaxTokens   int
	Temperature *float64
	Retry       unifiedllm.RetryPolicy

	MaxToolRounds       int // per user message; 0 = unlimited
	MaxTurns            int // per session; 0 = unlimited
	EnableLoopDetection bool
	LoopDetectionWindow int
	ParallelToolCalls   bool

	ToolOutputLimits map[string]int
	ToolLineLimits   map[string]int

	StreamBuffer int
}

// DefaultRunnerConfig returns the configuration used by the console.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Profile:             DefaultProfile(),
		MaxTokens:           4096,
		Retry:               unifiedllm.DefaultRetryPolicy(),
		MaxToolRounds:       25,
		EnableLoopDetection: true,
		LoopDetectionWindow: 10,
		ParallelToolCalls:   true,
		StreamBuffer:        turnstream.DefaultBufferSize,
	}
}

// Runner is an in-memory AgentClient: it keeps sessions, calls the LLM, runs
// tool calls from its registry and streams everything as turnstream Events.
type Runner struct {
	client *unifiedllm.Client
	tools  *ToolRegistry
	cfg    RunnerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

var (
	_ repl.AgentClient   = (*Runner)(nil)
	_ repl.SessionCloser = (*Runner)(nil)
)

// NewRunner creates a Runner. A nil tools registry means the agent has no
// tools.
func NewRunner(client *unifiedllm.Client, tools *ToolRegistry, cfg RunnerConfig, logger zerolog.Logger) *Runner {
	if tools == nil {
		tools = NewToolRegistry()
	}
	cfg.Profile = cfg.Profile.withDefaults()
	return &Runner{
		client:   client,
		tools:    tools,
		cfg:      cfg,
		logger:   logger.With().Str("component", "agentloop").Str("agent", cfg.Profile.Name).Logger(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Tools returns the registry the Runner dispatches to.
func (r *Runner) Tools() *ToolRegistry { return r.tools }

// CreateSession allocates a new in-memory session.
func (r *Runner) CreateSession(ctx context.Context) (repl.SessionHandle, error) {
	s := newSession(r.cfg.Profile.Name, r.cfg.Profile.UserID)
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	r.logger.Debug().Str("session_id", s.id).Str("user_id", s.userID).Msg("session created")
	return repl.SessionHandle{ID: s.id}, nil
}

// Session returns the session behind handle, or nil.
func (r *Runner) Session(handle repl.SessionHandle) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[handle.ID]
}

// CloseSession forgets the session.
func (r *Runner) CloseSession(ctx context.Context, handle repl.SessionHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[handle.ID]; !ok {
		return fmt.Errorf("close session %s: %w", handle.ID, ErrSessionNotFound)
	}
	delete(r.sessions, handle.ID)
	r.logger.Debug().Str("session_id", handle.ID).Msg("session closed")
	return nil
}

// Send appends message to the session and runs the agentic loop in the
// background. The returned stream closes when the loop finishes; if ctx ends
// first, the stream's terminal error is the context error.
func (r *Runner) Send(ctx context.Context, handle repl.SessionHandle, message string) (*turnstream.Stream, error) {
	s := r.Session(handle)
	if s == nil {
		return nil, fmt.Errorf("send to session %s: %w", handle.ID, ErrSessionNotFound)
	}
	stream, em := turnstream.NewStream(r.cfg.StreamBuffer)
	go r.run(ctx, s, message, em)
	return stream, nil
}

func (r *Runner) run(ctx context.Context, s *Session, message string, em *turnstream.Emitter) {
	s.turn.Lock()
	defer s.turn.Unlock()

	ctx, span := tracer.Start(ctx, "agent message", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("agent.name", r.cfg.Profile.Name),
	))
	defer span.End()

	log := r.logger.With().Str("session_id", s.id).Logger()
	err := r.process(ctx, s, message, em, log)
	if err == nil {
		em.Close(nil)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Debug().Err(ctxErr).Msg("message cancelled")
		em.Close(ctxErr)
		return
	}

	code := unifiedllm.ErrorCode(err)
	var limit *TurnLimitError
	if errors.As(err, &limit) {
		code = TurnLimitCode
	}
	log.Error().Err(err).Str("code", code).Msg("message failed")
	em.Emit(ctx, turnstream.StreamError{Code: code, Message: err.Error()})
	em.Close(nil)
}

func (r *Runner) process(ctx context.Context, s *Session, message string, em *turnstream.Emitter, log zerolog.Logger) error {
	if r.cfg.MaxTurns > 0 && s.countTurns() >= r.cfg.MaxTurns {
		return &TurnLimitError{Limit: r.cfg.MaxTurns, Reason: "session turn"}
	}
	s.append(NewUserTurn(message))

	defs := r.tools.Definitions()
	system := BuildSystemPrompt(r.cfg.Profile, defs, r.now())
	toolDefs := r.tools.ToolDefinitions()

	for rounds := 0; ; {
		if r.cfg.MaxToolRounds > 0 && rounds >= r.cfg.MaxToolRounds {
			return &TurnLimitError{Limit: r.cfg.MaxToolRounds, Reason: "tool round"}
		}

		req := r.buildRequest(system, s.History(), toolDefs)
		resp, err := r.streamResponse(ctx, req, em)
		if err != nil {
			return err
		}

		calls := resp.ToolCalls()
		s.append(NewAssistantTurn(resp.Text(), calls, resp.Usage, resp.ID))
		log.Debug().
			Int("round", rounds).
			Int("tool_calls", len(calls)).
			Int("output_tokens", resp.Usage.OutputTokens).
			Msg("model responded")
		if len(calls) == 0 {
			return nil
		}

		rounds++
		s.append(NewToolResultsTurn(r.executeToolCalls(ctx, calls, em, log)))
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.cfg.EnableLoopDetection && DetectLoop(s.History(), r.cfg.LoopDetectionWindow) {
			warning := fmt.Sprintf("Loop detected: the last %d tool calls follow a repeating pattern. Try a different approach.",
				r.cfg.LoopDetectionWindow)
			s.append(NewSteeringTurn(warning))
			log.Warn().Int("window", r.cfg.LoopDetectionWindow).Msg("tool call loop detected")
		}
	}
}

func (r *Runner) buildRequest(system string, history []Turn, tools []unifiedllm.ToolDefinition) unifiedllm.Request {
	req := unifiedllm.Request{
		Model:       r.cfg.Profile.Model,
		Provider:    r.cfg.Profile.Provider,
		Messages:    append([]unifiedllm.Message{unifiedllm.SystemMessage(system)}, ConvertHistoryToMessages(history)...),
		Temperature: r.cfg.Temperature,
	}
	if r.cfg.MaxTokens > 0 {
		n := r.cfg.MaxTokens
		req.MaxTokens = &n
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = &unifiedllm.ToolChoice{Mode: "auto"}
	}
	return req
}

// streamResponse runs one model round. Opening the stream is retried; once
// text has reached the console, a failure ends the message instead.
func (r *Runner) streamResponse(ctx context.Context, req unifiedllm.Request, em *turnstream.Emitter) (*unifiedllm.Response, error) {
	ctx, span := tracer.Start(ctx, "llm round", trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	))
	defer span.End()

	events, err := unifiedllm.Retry(ctx, r.cfg.Retry, func(ctx context.Context) (<-chan unifiedllm.StreamEvent, error) {
		return r.client.Stream(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	acc := unifiedllm.NewStreamAccumulator()
	for ev := range events {
		acc.Process(ev)
		if ev.Type != unifiedllm.TextDelta || ev.Delta == "" {
			continue
		}
		if !em.Emit(ctx, turnstream.TextChunk{Content: ev.Delta}) {
			go func() {
				for range events {
				}
			}()
			return nil, ctx.Err()
		}
	}
	if err := acc.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := acc.Response()
	span.SetAttributes(
		attribute.Int("llm.tool_calls", len(resp.ToolCalls())),
		attribute.String("llm.finish_reason", resp.FinishReason.Reason),
	)
	return resp, nil
}

func (r *Runner) executeToolCalls(ctx context.Context, calls []unifiedllm.ToolCall, em *turnstream.Emitter, log zerolog.Logger) []ToolOutcome {
	outcomes := make([]ToolOutcome, len(calls))
	if !r.cfg.ParallelToolCalls || len(calls) == 1 {
		for i, call := range calls {
			outcomes[i] = r.executeTool(ctx, call, em, log)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call unifiedllm.ToolCall) {
			defer wg.Done()
			outcomes[i] = r.executeTool(ctx, call, em, log)
		}(i, call)
	}
	wg.Wait()
	return outcomes
}

// executeTool emits the ToolCall, runs the tool, emits the ToolResult with
// the full fields and returns the truncated copy for the model.
func (r *Runner) executeTool(ctx context.Context, call unifiedllm.ToolCall, em *turnstream.Emitter, log zerolog.Logger) ToolOutcome {
	ctx, span := tracer.Start(ctx, "tool call", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	em.Emit(ctx, turnstream.ToolCall{ID: call.ID, Name: call.Name})

	fields := r.invokeTool(ctx, call)
	failed := turnstream.ToolFailed(fields)
	span.SetAttributes(attribute.Bool("tool.failed", failed))
	if failed {
		span.SetStatus(codes.Error, "tool reported an error")
		log.Debug().Str("tool", call.Name).Interface("fields", fields).Msg("tool failed")
	}

	em.Emit(ctx, turnstream.ToolResult{ID: call.ID, Name: call.Name, Fields: fields})

	content, err := json.Marshal(fields)
	if err != nil {
		content = []byte(fmt.Sprint(fields))
	}
	return ToolOutcome{
		CallID:  call.ID,
		Name:    call.Name,
		Content: TruncateToolOutput(string(content), call.Name, r.cfg.ToolOutputLimits, r.cfg.ToolLineLimits),
		IsError: failed,
	}
}

func (r *Runner) invokeTool(ctx context.Context, call unifiedllm.ToolCall) map[string]interface{} {
	tool := r.tools.Get(call.Name)
	if tool == nil {
		return map[string]interface{}{"error": "unknown tool: " + call.Name}
	}
	fields, err := tool.Executor(ctx, call.Arguments)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return fields
}
