package mcp

import "go.opentelemetry.io/otel"

const scopeName = "github.com/martinemde/agentconsole/mcp"

var tracer = otel.Tracer(scopeName)
