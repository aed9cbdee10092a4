// Package mcp is a Model Context Protocol client for the HTTP+SSE transport.
//
// Dial connects to the server's event stream, learns the message endpoint
// and runs the initialize handshake. Register then exposes the server's tools
// to an agentloop.ToolRegistry so the agent can call them.
package mcp
