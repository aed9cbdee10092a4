// Package agentloop runs an LLM agent in process and serves it to the console
// as a repl.AgentClient.
//
// Each user message is handled by a loop that calls the model through the
// unifiedllm Client, streams text deltas as turnstream.TextChunk Events,
// executes requested tool calls from a ToolRegistry and feeds their results
// back to the model until it answers without calling a tool.
//
// # Architecture
//
//   - Runner: owns the in-memory sessions and the per-message loop.
//   - Session: conversation history for one console run.
//   - Profile: the agent's name, instruction and model.
//   - ToolRegistry: tool definitions and executors, usually filled from an
//     MCP server.
//
// Tool output sent back to the model is truncated; the console sees the full
// result. Repeating tool-call patterns are detected and answered with a
// steering message. A message that runs out of tool rounds ends with a
// StreamError whose code is TURN_LIMIT.
//
// # Quick Start
//
//	runner := agentloop.NewRunner(client, tools, agentloop.DefaultRunnerConfig(), logger)
//	session, _ := runner.CreateSession(ctx)
//	stream, _ := runner.Send(ctx, session, "Design an API for a pet store")
//	acc := turnstream.NewAccumulator(os.Stdout)
//	acc.Drain(stream)
package agentloop
