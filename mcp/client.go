package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrClosed is returned for calls made after the event stream has ended.
var ErrClosed = errors.New("mcp: connection closed")

// DefaultTimeout bounds a single request when the caller's context does not.
const DefaultTimeout = 30 * time.Second

// Client speaks MCP over the SSE transport: server messages arrive on a
// long-lived GET event stream, client messages are POSTed to the endpoint
// the server announces on that stream.
type Client struct {
	url        *url.URL
	endpoint   *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
	timeout    time.Duration
	info       Implementation
	server     Implementation

	idSeq atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan *rpcResponse
	closed  bool
	readErr error

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for both the stream and posts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithClientInfo sets the name and version sent in initialize.
func WithClientInfo(name, version string) Option {
	return func(c *Client) { c.info = Implementation{Name: name, Version: version} }
}

// Dial opens the event stream at rawURL, waits for the endpoint event and
// performs the initialize handshake. ctx bounds the dial only; the stream
// stays open until Close.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse mcp url: %w", err)
	}
	c := &Client{
		url:        u,
		httpClient: defaultHTTPClient(),
		logger:     zerolog.Nop(),
		timeout:    DefaultTimeout,
		info:       Implementation{Name: "agentconsole", Version: "0.1.0"},
		pending:    make(map[int64]chan *rpcResponse),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "mcp").Str("url", rawURL).Logger()

	streamCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The dial context must still cut the connect attempt short.
	stop := context.AfterFunc(ctx, cancel)
	resp, err := c.httpClient.Do(req)
	stop()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect to %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("connect to %s: HTTP %d: %s", rawURL, resp.StatusCode, bytes.TrimSpace(body))
	}

	endpoints := make(chan string, 1)
	go c.listen(resp.Body, endpoints)

	select {
	case ep := <-endpoints:
		ref, err := url.Parse(ep)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("parse endpoint %q: %w", ep, err)
		}
		c.endpoint = u.ResolveReference(ref)
	case <-c.done:
		c.Close()
		return nil, fmt.Errorf("connect to %s: stream ended before endpoint event: %w", rawURL, c.streamErr())
	case <-ctx.Done():
		c.Close()
		return nil, fmt.Errorf("connect to %s: %w", rawURL, ctx.Err())
	}

	if err := c.initialize(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "mcp " + r.Method + " " + r.URL.Path
		}),
	)}
}

// ServerInfo returns what the server reported during initialize.
func (c *Client) ServerInfo() Implementation { return c.server }

// Endpoint returns the URL client messages are posted to.
func (c *Client) Endpoint() string { return c.endpoint.String() }

// Close ends the event stream and fails outstanding calls.
func (c *Client) Close() error {
	c.cancel()
	<-c.done
	return nil
}

func (c *Client) listen(body io.ReadCloser, endpoints chan<- string) {
	defer body.Close()

	err := readEvents(body, func(ev sseEvent) bool {
		switch ev.Event {
		case "endpoint":
			select {
			case endpoints <- ev.Data:
			default:
				c.logger.Debug().Str("endpoint", ev.Data).Msg("ignoring repeated endpoint event")
			}
		case "message":
			c.dispatch([]byte(ev.Data))
		default:
			c.logger.Debug().Str("event", ev.Event).Msg("ignoring sse event")
		}
		return true
	})

	c.mu.Lock()
	c.closed = true
	if err == nil {
		err = io.EOF
	}
	c.readErr = err
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	close(c.done)
}

func (c *Client) streamErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *Client) dispatch(data []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn().Err(err).Msg("failed to unmarshal mcp message")
		return
	}
	id, err := strconv.ParseInt(string(resp.ID), 10, 64)
	if err != nil {
		// Server requests and notifications carry no numeric id of ours.
		c.logger.Debug().RawJSON("message", data).Msg("ignoring server message")
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		ch <- &resp
	}
}

func (c *Client) initialize(ctx context.Context) error {
	raw, err := c.call(ctx, "initialize", initializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    json.RawMessage(`{}`),
		ClientInfo:      c.info,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	var result initializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decode initialize result: %w", err)
	}
	c.server = result.ServerInfo
	c.logger.Debug().
		Str("server", result.ServerInfo.Name).
		Str("protocol", result.ProtocolVersion).
		Msg("mcp session initialized")

	if err := c.notify(ctx, "notifications/initialized"); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}
	return nil
}

// ListTools returns every tool the server offers, following pagination.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	cursor := ""
	for {
		var params interface{}
		if cursor != "" {
			params = listToolsParams{Cursor: cursor}
		}
		raw, err := c.call(ctx, "tools/list", params)
		if err != nil {
			return nil, fmt.Errorf("tools/list: %w", err)
		}
		var page listToolsResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode tools/list result: %w", err)
		}
		tools = append(tools, page.Tools...)
		if page.NextCursor == "" {
			return tools, nil
		}
		cursor = page.NextCursor
	}
}

// CallTool invokes a tool. A tool-level failure is reported through
// CallToolResult.IsError, not as an error.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "mcp tools/call", trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	raw, err := c.call(ctx, "tools/call", callToolParams{Name: name, Arguments: args})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}
	var result CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call %s result: %w", name, err)
	}
	span.SetAttributes(attribute.Bool("tool.is_error", result.IsError))
	return &result, nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := c.idSeq.Add(1)
	ch := make(chan *rpcResponse, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	if err := c.post(ctx, method, &id, params); err != nil {
		forget()
		return nil, err
	}

	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	case <-timeout:
		forget()
		return nil, fmt.Errorf("%s: no response after %s", method, c.timeout)
	}
}

func (c *Client) notify(ctx context.Context, method string) error {
	return c.post(ctx, method, nil, nil)
}

func (c *Client) post(ctx context.Context, method string, id *int64, params interface{}) error {
	msg := rpcRequest{JSONRPC: "2.0", ID: id, Method: method}
	if params != nil {
		p, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		msg.Params = p
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", method, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: HTTP %d: %s", method, resp.StatusCode, bytes.TrimSpace(respBody))
	}
	return nil
}
