package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/agentconsole/internal/config"
	"github.com/martinemde/agentconsole/unifiedllm"
)

func newToolsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			c, err := dialTools(cmd.Context(), cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer c.Close()

			tools, err := c.ListTools(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tools: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(tools) == 0 {
				fmt.Fprintln(out, "No tools.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, t := range tools {
				fmt.Fprintf(w, "%s\t%s\n", t.Name, firstLine(t.Description))
			}
			return w.Flush()
		},
	}
}

func newModelsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known models (filtered by --provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := unifiedllm.ListModels(opts.provider)
			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintf(out, "No models for provider %q.\n", opts.provider)
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROVIDER\tCONTEXT\tTOOLS\tNAME")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", m.ID, m.Provider, m.ContextWindow, m.SupportsTools, m.DisplayName)
			}
			return w.Flush()
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var schema bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schema {
				data, err := json.MarshalIndent(configSchema(), "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey != "" {
				cfg.LLM.APIKey = "********"
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "print the JSON schema of the config file instead")
	return cmd
}

// configSchema describes the config file, keyed by its YAML field names.
func configSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		FieldNameTag:   "yaml",
	}
	return reflector.Reflect(&config.Config{})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
