// Package mcp exposes the built-in chat tools as a Model Context
// Protocol server, so other MCP-capable hosts can call them over stdio
// without running the gateway itself.
package mcp
