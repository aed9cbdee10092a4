package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/martinemde/agentconsole/agentloop"
)

// Register lists the server's tools and adds each one to registry. Arguments
// are checked against the tool's input schema before the call; a mismatch is
// returned to the model as {"error": ..., "status": "error"} without reaching
// the server.
func Register(ctx context.Context, c *Client, registry *agentloop.ToolRegistry) ([]Tool, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		rt, err := c.registeredTool(t)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(rt); err != nil {
			return nil, err
		}
	}
	c.logger.Info().Int("tools", len(tools)).Msg("registered mcp tools")
	return tools, nil
}

func (c *Client) registeredTool(t Tool) (agentloop.RegisteredTool, error) {
	var params map[string]interface{}
	if len(t.InputSchema) > 0 {
		if err := json.Unmarshal(t.InputSchema, &params); err != nil {
			return agentloop.RegisteredTool{}, fmt.Errorf("tool %s: decode input schema: %w", t.Name, err)
		}
	}

	var schema *gojsonschema.Schema
	if params != nil {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
		if err != nil {
			c.logger.Warn().Err(err).Str("tool", t.Name).Msg("input schema does not compile; arguments will not be validated")
		} else {
			schema = s
		}
	}

	name := t.Name
	return agentloop.RegisteredTool{
		Definition: agentloop.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
		Executor: func(ctx context.Context, args json.RawMessage) (map[string]interface{}, error) {
			parsed, err := agentloop.ParseToolArguments(args)
			if err != nil {
				return invalidArguments(err.Error()), nil
			}
			if msg := validateArguments(schema, parsed); msg != "" {
				return invalidArguments(msg), nil
			}
			encoded, err := json.Marshal(parsed)
			if err != nil {
				return nil, err
			}
			result, err := c.CallTool(ctx, name, encoded)
			if err != nil {
				return nil, err
			}
			return result.Fields(), nil
		},
	}, nil
}

func validateArguments(schema *gojsonschema.Schema, args map[string]interface{}) string {
	if schema == nil {
		return ""
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err.Error()
	}
	if result.Valid() {
		return ""
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return "invalid arguments: " + strings.Join(msgs, "; ")
}

func invalidArguments(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg, "status": "error"}
}
