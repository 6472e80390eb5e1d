// Command devpad runs the coding assistant against a local project
// directory, reading user messages from stdin and rendering the agent's
// event stream to the terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/ferrywell/devpad/agent"
	"github.com/ferrywell/devpad/config"
	"github.com/ferrywell/devpad/llm"
	"github.com/ferrywell/devpad/toolbox"
)

var (
	promptColor   = color.New(color.FgCyan, color.Bold)
	thinkingColor = color.New(color.Faint)
	toolColor     = color.New(color.FgYellow)
	resultColor   = color.New(color.Faint)
	doneColor     = color.New(color.FgGreen)
	errorColor    = color.New(color.FgRed)
)

func main() {
	if err := run(); err != nil {
		errorColor.Fprintf(os.Stderr, "devpad: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	adapter, err := llm.NewAdapter(llm.Provider(cfg.Provider), llm.Options{APIKey: cfg.APIKey})
	if err != nil {
		return err
	}
	project := agent.StaticProject{}
	executor, err := toolbox.NewExecutor(cfg.Root,
		toolbox.WithCommandTimeout(time.Duration(cfg.CommandTimeoutMS)*time.Millisecond),
		toolbox.WithEnv(project.EnvOverlay()))
	if err != nil {
		return err
	}
	project.Dir = executor.Root()
	project.Name = filepath.Base(executor.Root())

	sessionCfg := agent.DefaultConfig()
	sessionCfg.MaxIterations = cfg.MaxIterations
	session := agent.NewSession("local", adapter, cfg.Model, executor,
		agent.NewMemoryHistoryStore(), project, &sessionCfg)
	defer session.Close()

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		render(session.Events())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("devpad using %s/%s in %s\n", cfg.Provider, cfg.Model, executor.Root())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := scanner.Text()
		if input == "" {
			continue
		}
		// Run renders its own terminal event; the error is for the exit code
		// of non-recoverable conditions only.
		if err := session.Run(ctx, input); err != nil && ctx.Err() != nil {
			break
		}
	}

	session.Close()
	<-rendered
	return scanner.Err()
}

func render(events <-chan agent.Event) {
	for event := range events {
		switch event.Kind {
		case agent.EventThinking:
			thinkingColor.Println("thinking...")
		case agent.EventContent:
			if text, ok := event.Data["text"].(string); ok {
				fmt.Print(text)
			}
		case agent.EventToolCall:
			toolColor.Printf("\n[tool] %v %v\n", event.Data["name"], event.Data["arguments"])
		case agent.EventToolResult:
			if isError, _ := event.Data["is_error"].(bool); isError {
				errorColor.Printf("[tool error] %v\n", event.Data["content"])
			} else {
				resultColor.Printf("%v\n", event.Data["content"])
			}
		case agent.EventDone:
			doneColor.Printf("\n(done, %v tokens in / %v out)\n",
				event.Data["input_tokens"], event.Data["output_tokens"])
		case agent.EventError:
			errorColor.Printf("\nerror: %v\n", event.Data["message"])
		}
	}
}
