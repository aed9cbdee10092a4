package repl

import "go.opentelemetry.io/otel"

const scopeName = "github.com/martinemde/agentconsole/repl"

var tracer = otel.Tracer(scopeName)
