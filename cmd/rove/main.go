// Package main is the rove command: run an agent against a task once, or
// chat with it interactively.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"github.com/jmelwick/rove"
	"github.com/jmelwick/rove/agents/plansolve"
	"github.com/jmelwick/rove/agents/react"
	"github.com/jmelwick/rove/agents/reflection"
	"github.com/jmelwick/rove/config"
	"github.com/jmelwick/rove/models"
	"github.com/jmelwick/rove/tools"
	"github.com/jmelwick/rove/tools/mcp"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

func run() error {
	var (
		task       = flag.String("task", "", "run a single task and exit (interactive session otherwise)")
		configPath = flag.String("config", "", "path to a YAML config file")
		agentKind  = flag.String("agent", "", "agent strategy: react, plansolve, or reflection (overrides config)")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *agentKind != "" {
		cfg.Agent.Kind = *agentKind
	}

	logger := newLogger(*verbose)

	client, err := models.NewOpenAI(models.OpenAIConfig{
		Model:   cfg.ModelID,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return err
	}

	registry, cleanup, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	agent, err := buildAgent(cfg, client, registry, logger, *task != "")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintf(os.Stderr, "\n%sReceived interrupt, cancelling...%s\n",
			colorYellow, colorReset)
		cancel()
	}()

	if *task != "" {
		return runOnce(ctx, agent, *task)
	}
	return runInteractive(ctx, agent)
}

// newLogger builds a console logger writing to stderr, keeping stdout for
// agent answers.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// buildRegistry assembles the tool set: workspace file tools, web search
// when an API key is configured, and tools from every configured MCP
// server. The returned cleanup closes the MCP connections.
func buildRegistry(cfg *config.Config, logger zerolog.Logger) (*rove.Registry, func(), error) {
	ws, err := tools.NewWorkspace(cfg.Workspace.Root)
	if err != nil {
		return nil, nil, err
	}
	ws.WithHidden(cfg.Workspace.Hidden...).WithReadOnly(cfg.Workspace.ReadOnly...)

	registry := rove.NewRegistry(
		tools.NewReadFile(ws),
		tools.NewWriteFile(ws),
		tools.NewListFiles(ws),
	)
	if cfg.SearchAPIKey != "" {
		registry.Register(tools.NewSearch(cfg.SearchAPIKey))
	}

	var servers []*mcp.Server
	cleanup := func() {
		for _, srv := range servers {
			if err := srv.Close(); err != nil {
				logger.Warn().Err(err).Str("server", srv.Name()).Msg("failed to close MCP server")
			}
		}
	}

	for _, spec := range cfg.MCPServers {
		srv, err := mcp.Connect(context.Background(), spec.Name, spec.Command, spec.Args...)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		servers = append(servers, srv)
		for _, t := range srv.Tools() {
			registry.Register(t)
		}
		logger.Info().Str("server", spec.Name).Int("tools", len(srv.Tools())).
			Msg("connected MCP server")
	}

	return registry, cleanup, nil
}

func buildAgent(
	cfg *config.Config,
	client rove.Client,
	registry *rove.Registry,
	logger zerolog.Logger,
	oneShot bool,
) (rove.Agent, error) {
	agentCfg := rove.DefaultConfig()
	agentCfg.Logger = logger
	// Interactive sessions keep the conversation across turns.
	agentCfg.Stateless = oneShot
	if cfg.Agent.MaxSteps > 0 {
		agentCfg.MaxSteps = cfg.Agent.MaxSteps
	}
	if cfg.Agent.MaxParseRetries > 0 {
		agentCfg.MaxParseRetries = cfg.Agent.MaxParseRetries
	}
	if cfg.Agent.Timeout > 0 {
		agentCfg.Timeout = cfg.Agent.Timeout.Std()
	}

	switch cfg.Agent.Kind {
	case "react":
		return react.New(client).WithTools(registry).WithConfig(agentCfg), nil
	case "plansolve":
		a := plansolve.New(client).WithTools(registry).WithConfig(agentCfg)
		if cfg.Agent.MaxPlanSteps > 0 {
			a.WithMaxPlanSteps(cfg.Agent.MaxPlanSteps)
		}
		return a, nil
	case "reflection":
		return reflection.New(client).WithConfig(agentCfg), nil
	default:
		return nil, fmt.Errorf("unknown agent kind %q", cfg.Agent.Kind)
	}
}

// runOnce executes a single task and prints the final answer to stdout.
func runOnce(ctx context.Context, agent rove.Agent, task string) error {
	result, err := agent.Run(ctx, task)
	if err != nil {
		if result != nil && result.FinalAnswer != "" {
			fmt.Fprintf(os.Stderr, "%sPartial answer: %s%s\n",
				colorDim, result.FinalAnswer, colorReset)
		}
		return err
	}
	fmt.Println(result.FinalAnswer)
	return nil
}

func runInteractive(ctx context.Context, agent rove.Agent) error {
	fmt.Printf("%s%srove interactive session%s\n", colorBold, colorYellow, colorReset)
	fmt.Printf("%sType your task and press Enter. Type 'exit' to quit.%s\n\n",
		colorDim, colorReset)

	rl, err := readline.New(colorCyan + colorBold + "You: " + colorReset)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	for {
		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Printf("\n%sGoodbye!%s\n", colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Printf("%sGoodbye!%s\n", colorGreen, colorReset)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := agent.Run(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%sError: %v%s\n", colorRed, err, colorReset)
			if result == nil || result.FinalAnswer == "" {
				continue
			}
		}
		fmt.Printf("%s%s%s\n\n", colorGreen, result.FinalAnswer, colorReset)
	}
}
