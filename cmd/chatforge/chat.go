package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/ChatForge/internal/adapter/moonshot"
	"github.com/Strob0t/ChatForge/internal/domain/chat"
	"github.com/Strob0t/ChatForge/internal/service"
	"github.com/Strob0t/ChatForge/internal/tools"
)

// runChat runs the tool-calling loop in the terminal. History lives in
// memory for the session only.
func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	model := fs.String("model", "", "model override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, flush, err := setup()
	if err != nil {
		return err
	}
	defer flush()
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if cfg.LLM.APIKey == "" {
		return errors.New("no API key: set MOONSHOT_API_KEY or CHATFORGE_LLM_API_KEY")
	}

	llm := moonshot.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout)
	svc := service.NewCompletionService(llm, tools.NewDefaultRegistry(), &cfg.LLM)

	interactive := term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
	return chatLoop(os.Stdin, os.Stdout, interactive, svc)
}

// completer is the slice of CompletionService the REPL needs.
type completer interface {
	Complete(ctx context.Context, history []chat.Turn, observer service.ExecutionObserver) (*chat.Result, error)
	Model() string
}

func chatLoop(in io.Reader, out io.Writer, interactive bool, svc completer) error {
	if interactive {
		fmt.Fprintf(out, "chatforge %s (model %s). Ctrl-D to quit, /reset to clear history.\n", version, svc.Model())
	}

	var history []chat.Turn
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			if interactive {
				fmt.Fprintln(out)
			}
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/reset":
			history = nil
			fmt.Fprintln(out, "history cleared")
			continue
		case "/quit", "/exit":
			return nil
		}

		history = append(history, chat.Turn{Role: chat.RoleUser, Content: line})
		res, err := completeInterruptible(history, out, svc)
		if err != nil {
			// the failed turn is not kept
			history = history[:len(history)-1]
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		history = append(history, chat.Turn{Role: chat.RoleAssistant, Content: res.Content})
		fmt.Fprintln(out, res.Content)
	}
}

// completeInterruptible runs one exchange; Ctrl-C cancels it without leaving
// the REPL.
func completeInterruptible(history []chat.Turn, out io.Writer, svc completer) (*chat.Result, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := svc.Complete(ctx, history, service.ObserverFunc(func(_ context.Context, exec chat.ToolExecution) {
		if exec.Error != "" {
			fmt.Fprintf(out, "  [%s] failed: %s\n", exec.Name, exec.Error)
			return
		}
		fmt.Fprintf(out, "  [%s] %v\n", exec.Name, exec.Arguments)
	}))
	if err != nil {
		return nil, err
	}
	if res.Fallback {
		fmt.Fprintf(out, "  (no answer after %d rounds, %s)\n", res.Rounds, time.Since(start).Round(time.Millisecond))
	}
	return res, nil
}
