// Command chatforge runs the ChatForge chat service and its tooling.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Strob0t/ChatForge/internal/config"
	"github.com/Strob0t/ChatForge/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func dispatch(args []string) error {
	if len(args) == 0 {
		return runServe()
	}
	switch args[0] {
	case "serve":
		return runServe()
	case "migrate":
		return runMigrate(args[1:])
	case "chat":
		return runChat(args[1:])
	case "events":
		return runEvents(args[1:])
	case "version", "--version":
		fmt.Println(version)
		return nil
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: chatforge <command> [options]

Commands:
  serve              Run the HTTP API (default)
  migrate up         Apply all pending migrations
  migrate down [N]   Roll back N migrations (default 1)
  migrate version    Print the current schema version
  chat               Interactive chat in the terminal, no database needed
  events             Print chat events published on NATS
  version            Print the build version

Configuration is read from chatforge.yaml and CHATFORGE_* environment variables.
`)
}

// setup loads configuration and installs the default logger. The returned
// func flushes the logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	l, closer := logger.New(cfg.Logging)
	slog.SetDefault(l)
	return cfg, closer.Close, nil
}
