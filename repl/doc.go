// Package repl runs the interactive console: it reads a line from the user,
// sends it to an AgentClient, echoes the streamed reply as it arrives and
// logs one diagnostic when the turn hit a tool error or ended without an
// answer.
package repl
