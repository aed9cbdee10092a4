package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/martinemde/agentconsole/turnstream"
)

// Console text.
const (
	UserPrompt  = "\nYou > "
	AgentPrompt = "\nAgent > "
	Farewell    = "Exiting agent."
	QuitCommand = "quit"
)

// State is the console's position in the read-send-diagnose cycle.
type State int

const (
	AwaitingInput State = iota
	StreamingTurn
	Diagnosing
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case StreamingTurn:
		return "streaming_turn"
	case Diagnosing:
		return "diagnosing"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TurnResult summarizes one completed turn.
type TurnResult struct {
	Text        string
	ToolInvoked bool
	ToolErrored bool
	Diagnostic  turnstream.Diagnostic
}

// Loop drives an interactive session: it reads a line, sends it to the
// agent, echoes the streamed reply and reports what went wrong, until the
// user quits or input ends.
type Loop struct {
	client      AgentClient
	in          io.Reader
	out         io.Writer
	logger      zerolog.Logger
	turnTimeout time.Duration

	session    SessionHandle
	hasSession bool
	state      State
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger that receives diagnostics and state changes.
func WithLogger(l zerolog.Logger) Option {
	return func(loop *Loop) { loop.logger = l }
}

// WithTurnTimeout bounds each turn. Zero means no limit.
func WithTurnTimeout(d time.Duration) Option {
	return func(loop *Loop) { loop.turnTimeout = d }
}

// NewLoop creates a Loop reading user lines from in and writing the
// transcript to out.
func NewLoop(client AgentClient, in io.Reader, out io.Writer, opts ...Option) *Loop {
	l := &Loop{
		client: client,
		in:     in,
		out:    out,
		logger: zerolog.Nop(),
		state:  AwaitingInput,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With().Str("component", "repl").Logger()
	return l
}

// State returns the current state.
func (l *Loop) State() State { return l.state }

// Session returns the session handle, once created.
func (l *Loop) Session() SessionHandle { return l.session }

// Run creates the session and processes lines until the user types quit,
// input ends or ctx is cancelled. Only a failure to create the session is
// returned as an error; everything that goes wrong inside a turn is reported
// as a diagnostic.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.ensureSession(ctx); err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	lines, readErr := l.readLines(stop)

loop:
	for {
		l.setState(AwaitingInput)
		l.print(UserPrompt)

		var line string
		select {
		case next, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					l.logger.Error().Err(err).Msg("reading input failed")
				}
				break loop
			}
			line = next
		case <-ctx.Done():
			break loop
		}

		input := strings.TrimSpace(line)
		if strings.EqualFold(input, QuitCommand) {
			break loop
		}
		if input == "" {
			continue
		}
		l.RunTurn(ctx, line)
	}

	l.setState(Terminated)
	l.print(Farewell + "\n")
	l.closeSession(ctx)
	return nil
}

// RunTurn sends one message, streams the reply to the output and logs the
// turn's diagnostic, if any.
func (l *Loop) RunTurn(ctx context.Context, input string) TurnResult {
	l.setState(StreamingTurn)
	l.print(AgentPrompt)

	if l.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.turnTimeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "turn", trace.WithAttributes(attribute.String("session.id", l.session.ID)))
	defer span.End()

	acc := turnstream.NewAccumulator(l.out)
	if err := l.ensureSession(ctx); err != nil {
		acc.MarkErrored()
	} else if stream, err := l.client.Send(ctx, l.session, input); err != nil {
		l.logger.Error().Err(err).Msg("send failed")
		span.RecordError(err)
		acc.MarkErrored()
	} else {
		acc.Drain(stream)
		if err := stream.Err(); err != nil {
			span.RecordError(err)
			l.logger.Debug().Err(err).Msg("stream ended with error")
		}
	}

	l.setState(Diagnosing)
	l.print("\n")

	diag := acc.Diagnose()
	if diag != turnstream.DiagnosticNone {
		l.diagnostic().Str("diagnostic", diag.String()).Msg(diag.Message())
	}
	if acc.ToolErrored() {
		span.SetStatus(codes.Error, diag.Message())
	}
	span.SetAttributes(
		attribute.Bool("turn.tool_invoked", acc.ToolInvoked()),
		attribute.Bool("turn.tool_errored", acc.ToolErrored()),
		attribute.String("turn.diagnostic", diag.String()),
		attribute.Int("turn.events", acc.Count()),
	)

	return TurnResult{
		Text:        acc.Text(),
		ToolInvoked: acc.ToolInvoked(),
		ToolErrored: acc.ToolErrored(),
		Diagnostic:  diag,
	}
}

func (l *Loop) ensureSession(ctx context.Context) error {
	if l.hasSession {
		return nil
	}
	session, err := l.client.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	l.session, l.hasSession = session, true
	l.logger = l.logger.With().Str("session_id", session.ID).Logger()
	return nil
}

func (l *Loop) closeSession(ctx context.Context) {
	closer, ok := l.client.(SessionCloser)
	if !ok || !l.hasSession {
		return
	}
	if err := closer.CloseSession(context.WithoutCancel(ctx), l.session); err != nil {
		l.logger.Warn().Err(err).Msg("close session failed")
	}
}

// readLines scans input on its own goroutine so that a cancelled context
// can end the loop while a read is blocked. readErr yields the scanner's
// error once lines is closed.
func (l *Loop) readLines(stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(l.in)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				readErr <- nil
				return
			}
		}
		readErr <- sc.Err()
	}()
	return lines, readErr
}

// diagnostic starts a warn record that a higher configured level does not
// filter out. Only a disabled logger drops it.
func (l *Loop) diagnostic() *zerolog.Event {
	logger := l.logger
	if logger.GetLevel() != zerolog.Disabled {
		logger = logger.Level(zerolog.WarnLevel)
	}
	return logger.Warn()
}

func (l *Loop) setState(s State) {
	if l.state != s {
		l.logger.Debug().Stringer("from", l.state).Stringer("to", s).Msg("state transition")
	}
	l.state = s
}

func (l *Loop) print(s string) {
	_, _ = io.WriteString(l.out, s)
	if f, ok := l.out.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}
