// Command agentconsole is an interactive console for a tool-using agent.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/martinemde/agentconsole/internal/config"
	"github.com/martinemde/agentconsole/internal/logging"
)

const version = "0.1.0"

type rootOptions struct {
	configPath string
	model      string
	provider   string
	mcpURL     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "agentconsole",
		Short: "Chat with a tool-using agent",
		Long: `agentconsole connects an LLM agent to the tools of an MCP server and
runs an interactive console. Type a message at the "You >" prompt; the
agent's reply streams after "Agent >". Type quit to exit.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.agentconsole/config.yaml)")
	flags.StringVar(&opts.model, "model", "", "model ID (overrides llm.model)")
	flags.StringVar(&opts.provider, "provider", "", "LLM provider (overrides llm.provider)")
	flags.StringVar(&opts.mcpURL, "mcp-url", "", "MCP server SSE URL (overrides mcp.url)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides logging.level; turn diagnostics are always logged)")

	cmd.AddCommand(newToolsCmd(opts), newModelsCmd(opts), newConfigCmd(opts))
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.provider != "" {
		cfg.LLM.Provider = o.provider
	}
	if o.model != "" {
		cfg.LLM.Model = o.model
	}
	if o.mcpURL != "" {
		cfg.MCP.URL = o.mcpURL
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to stderr; colored output only when stderr is a terminal.
func newLogger(cfg *config.Config) zerolog.Logger {
	pretty := cfg.Logging.Pretty && term.IsTerminal(int(os.Stderr.Fd()))
	return logging.New(logging.Config{Level: cfg.Logging.Level, Pretty: pretty}, os.Stderr)
}
