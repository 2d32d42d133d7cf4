// Command demo is an interactive shell over a reins controller: it wires a
// provider from configuration, registers the built-in tools and a pair of
// sub-agents, and runs each input line through the selected mode.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spetersoncode/reins/agent"
	"github.com/spetersoncode/reins/config"
	"github.com/spetersoncode/reins/event"
	"github.com/spetersoncode/reins/history"
	"github.com/spetersoncode/reins/invoke"
	"github.com/spetersoncode/reins/tools"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	mode := flag.String("mode", "tool-loop", "execution mode: single-shot, tool-loop, delegated")
	flag.Parse()

	config.LoadEnv()

	cfg := config.Default()
	if path, err := config.FindConfig(*configPath); err == nil {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider: %v\n", err)
		os.Exit(1)
	}

	registry := invoke.NewRegistry()
	registry.MustRegister(tools.Calculator())
	registry.MustRegister(tools.ReadFile(tools.WithBasePath(".")))
	registry.MustRegister(tools.SearchFiles(tools.WithSearchPath(".")))

	agents := agent.NewRegistry()
	for _, a := range cfg.Agents {
		agents.MustRegister(&agent.SubAgent{
			Name:         a.Name,
			Description:  a.Description,
			SystemPrompt: a.SystemPrompt,
			Provider:     provider,
		})
	}
	if agents.Len() == 0 && *mode == "delegated" {
		agents.MustRegister(&agent.SubAgent{
			Name:         "researcher",
			Description:  "Answers factual and research questions",
			SystemPrompt: "You are a careful researcher. Answer concisely and cite what you know.",
			Provider:     provider,
		})
		agents.MustRegister(&agent.SubAgent{
			Name:         "analyst",
			Description:  "Performs calculations and numeric analysis",
			SystemPrompt: "You are a precise analyst. Show your work.",
			Provider:     provider,
			Tools:        registry,
		})
	}

	controller := agent.New(provider,
		agent.WithToolRegistry(registry),
		agent.WithToolCache(invoke.NewCache()),
		agent.WithAgentRegistry(agents),
	)

	events := event.NewChannel()
	go printEvents(events)

	hist := history.New(
		history.WithMaxMessages(cfg.History.MaxMessages),
		history.WithKeepSystemMessage(cfg.History.KeepSystemMessage),
	)

	fmt.Printf("reins demo (%s, mode=%s). Type a request, or 'quit'.\n", cfg.Provider.Name, *mode)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}

		result, err := controller.Run(context.Background(), input,
			agent.WithMode(agent.Mode(*mode)),
			agent.WithBudget(cfg.Budget.Budget()),
			agent.WithHistory(hist),
			agent.WithEvents(events),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "run: %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println(result.Content)
		fmt.Printf("[%s; %d tool calls; %d tokens]\n",
			result.Termination,
			len(result.ToolsCalled),
			result.Usage.TotalTokens(),
		)
	}
}

func printEvents(events chan event.Event) {
	for e := range events {
		switch e.Type {
		case event.ToolCallStart:
			fmt.Printf("  · tool %s %s\n", e.Action.Name, e.Action.ArgumentsJSON())
		case event.ToolCallFailed:
			fmt.Printf("  · tool %s failed: %v\n", e.Action.Name, e.Error)
		case event.AgentStart:
			fmt.Printf("  · delegating to %s\n", e.Action.Name)
		case event.ToolCallRetry:
			fmt.Printf("  · retrying %s (attempt %d)\n", e.Action.Name, e.Attempt)
		}
	}
}
