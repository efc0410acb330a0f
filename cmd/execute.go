// Package cmd contains the llmchat command-line entry points.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kanon0/llmchat/internal/log"
)

// Execute is the main entry point for the llmchat CLI. It routes the
// first argument to a subcommand; no argument starts the gateway.
//
// Design: following kubectl, hugo and other standard Go CLI tools, all
// application logic lives in the cmd package and main.go stays a
// minimal entry point.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersion()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "mcp":
			return runMCP()
		case "run":
			return run()
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	return run()
}

// initLogger builds the process logger. DEBUG in the environment (any
// value) lowers the level to debug; LOG_JSON switches to JSON output.
//
// Logs go to stderr: in MCP server mode stdout carries JSON-RPC.
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}

func printHelp() {
	fmt.Println("llmchat - LLM chatbot gateway for OneBot v11")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  llmchat            Start the gateway (same as `llmchat run`)")
	fmt.Println("  llmchat run        Connect to the OneBot endpoint and serve chats")
	fmt.Println("  llmchat mcp        Expose the built-in tools as an MCP stdio server")
	fmt.Println("  llmchat version    Show version information")
	fmt.Println("  llmchat help       Show this help")
	fmt.Println()
	fmt.Println("Configuration is read from config.toml in the working directory")
	fmt.Println("or ~/.llmchat, with LLMCHAT_* environment variable overrides.")
}
