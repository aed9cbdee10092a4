package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/martinemde/agentconsole/agentloop"
	"github.com/martinemde/agentconsole/internal/config"
	"github.com/martinemde/agentconsole/mcp"
	"github.com/martinemde/agentconsole/repl"
	"github.com/martinemde/agentconsole/unifiedllm"
)

func runConsole(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := agentloop.NewToolRegistry()
	tools, err := dialTools(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tools.Close()
	if _, err := mcp.Register(ctx, tools, registry); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	llm, err := newLLMClient(cfg, logger)
	if err != nil {
		return err
	}
	defer llm.Close()

	runner := agentloop.NewRunner(llm, registry, cfg.RunnerConfig(), logger)
	logger.Info().
		Str("agent", cfg.Agent.Name).
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Int("tools", registry.Count()).
		Msg("agent ready")

	loop := repl.NewLoop(runner, cmd.InOrStdin(), cmd.OutOrStdout(),
		repl.WithLogger(logger),
		repl.WithTurnTimeout(cfg.Session.TurnTimeout),
	)
	return loop.Run(ctx)
}

func dialTools(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*mcp.Client, error) {
	c, err := mcp.Dial(ctx, cfg.MCP.URL,
		mcp.WithLogger(logger),
		mcp.WithTimeout(cfg.MCP.Timeout),
		mcp.WithClientInfo("agentconsole", version),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to tool server %s: %w", cfg.MCP.URL, err)
	}
	return c, nil
}

func newLLMClient(cfg *config.Config, logger zerolog.Logger) (*unifiedllm.Client, error) {
	adapterOpts := []unifiedllm.GollmAdapterOption{
		unifiedllm.WithModel(cfg.LLM.Model),
		unifiedllm.WithMaxTokens(cfg.LLM.MaxTokens),
	}
	if cfg.LLM.Temperature != nil {
		adapterOpts = append(adapterOpts, unifiedllm.WithTemperature(*cfg.LLM.Temperature))
	}
	adapter, err := unifiedllm.NewGollmAdapter(cfg.LLM.Provider, cfg.LLM.ResolveAPIKey(), adapterOpts...)
	if err != nil {
		return nil, err
	}
	return unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.LLM.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.LLM.Provider),
		unifiedllm.WithStreamMiddleware(logStreams(logger)),
	), nil
}

// logStreams records how long each provider took to start streaming.
func logStreams(logger zerolog.Logger) unifiedllm.StreamMiddleware {
	logger = logger.With().Str("component", "llm").Logger()
	return func(ctx context.Context, req unifiedllm.Request, next unifiedllm.StreamFunc) (<-chan unifiedllm.StreamEvent, error) {
		start := time.Now()
		ch, err := next(ctx, req)
		ev := logger.Debug()
		if err != nil {
			ev = logger.Warn().Err(err)
		}
		ev.Str("model", req.Model).
			Int("messages", len(req.Messages)).
			Int("tools", len(req.Tools)).
			Dur("elapsed", time.Since(start)).
			Msg("llm stream")
		return ch, err
	}
}
