package agentloop

import "go.opentelemetry.io/otel"

const scopeName = "github.com/martinemde/agentconsole/agentloop"

var tracer = otel.Tracer(scopeName)
