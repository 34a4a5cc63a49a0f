// Command agentcore is the CLI for the agentcore module.
//
// Usage:
//
//	agentcore run --config agent.yaml --task "summarize this repo"
//	agentcore chat --config agent.yaml
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kairoslabs/agentcore/pkg/agent"
	"github.com/kairoslabs/agentcore/pkg/approval"
	"github.com/kairoslabs/agentcore/pkg/config"
	"github.com/kairoslabs/agentcore/pkg/contextbuf"
	"github.com/kairoslabs/agentcore/pkg/llm"
	"github.com/kairoslabs/agentcore/pkg/logging"
	"github.com/kairoslabs/agentcore/pkg/memory"
	"github.com/kairoslabs/agentcore/pkg/observability"
	"github.com/kairoslabs/agentcore/pkg/task"
	"github.com/kairoslabs/agentcore/pkg/tool"
	"github.com/kairoslabs/agentcore/pkg/tool/agenttool"
	"github.com/kairoslabs/agentcore/pkg/tool/controltool"

	exampletools "github.com/kairoslabs/agentcore/examples/tools"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Run     RunCmd     `cmd:"" help:"Execute a single task and print the final answer."`
	Chat    ChatCmd    `cmd:"" help:"Start an interactive REPL over the agent."`

	Config    string `short:"c" help:"Path to config file. Empty uses zero-config defaults." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFormat string `help:"Log format (text or json)."`
}

// VersionCmd prints build version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentcore version %s\n", version)
	return nil
}

// RunCmd executes one task through Driver.Execute and prints the answer.
type RunCmd struct {
	Task string `arg:"" help:"The task to execute."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	d, cleanup, err := buildDriver(ctx, cli)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := d.Execute(ctx, c.Task)
	if err != nil {
		return fmt.Errorf("agentcore: %w", err)
	}
	fmt.Println(answer)
	return nil
}

// ChatCmd drives Driver.Chat in a REPL over stdin/stdout.
type ChatCmd struct{}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	d, cleanup, err := buildDriver(ctx, cli)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("agentcore chat — Ctrl+D to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		answer, err := d.Chat(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}
	return scanner.Err()
}

// buildDriver loads configuration and wires a Driver with its gateway,
// dispatcher, session store and observability exactly as SPEC_FULL.md's
// ambient CLI describes: config loading, logging setup, and driver
// construction are themselves out of core scope, but every runnable
// deployment needs them.
func buildDriver(ctx context.Context, cli *CLI) (*agent.Driver, func(), error) {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return nil, nil, err
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)

	gateway, err := buildGateway(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}

	gate := approval.AlwaysApprove
	if cfg.ToolPolicy.ApprovalGate == "console" {
		gate = approval.NewConsoleGate(os.Stdin, os.Stderr, int(os.Stderr.Fd()))
	}

	registry := tool.NewRegistry()
	builtins := []tool.Tool{
		controltool.FinalAnswer(),
		exampletools.Add(),
		exampletools.ShellStub(),
		exampletools.ReadSpreadsheet(),
	}
	if cfg.Features.Plan {
		builtins = append(builtins, controltool.Plan())
	}
	if cfg.Features.Tasks {
		builtins = append(builtins, controltool.TaskTools(task.New())...)
	}
	if cfg.Features.HumanInLoop {
		builtins = append(builtins, controltool.HumanInLoop(gate))
	}
	var kvStore memory.KvStore
	if cfg.Features.Memory {
		kvStore, err = buildKvStore(cfg.Memory)
		if err != nil {
			return nil, nil, err
		}
		builtins = append(builtins, controltool.MemoryTools(kvStore, cfg.Name)...)
	}
	for _, t := range builtins {
		if err := registry.Register(t); err != nil {
			return nil, nil, fmt.Errorf("agentcore: registering tool %s: %w", t.Name(), err)
		}
	}

	metricsCleanup := func() {}
	var tracer *observability.Tracer
	var metrics *observability.Metrics
	tp, err := observability.NewTracerProvider(ctx, observability.TracerConfig{
		Enabled:      cfg.Observability.Enabled,
		OTLPEndpoint: cfg.Observability.OTLPEndpoint,
		ServiceName:  cfg.Observability.ServiceName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("agentcore: starting tracer: %w", err)
	}
	tracer = observability.NewTracer(tp)
	metrics = observability.NewMetrics()
	if cfg.Observability.Enabled {
		srv := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
		metricsCleanup = func() { _ = srv.Close() }
	}

	dispatcherOpts := []tool.Option{
		tool.WithPolicy(tool.Policy{
			MaxConcurrency: cfg.ToolPolicy.MaxConcurrency,
			Timeout:        cfg.ToolPolicy.Timeout,
			MaxRetries:     cfg.ToolPolicy.MaxRetries,
			BaseDelay:      cfg.ToolPolicy.BaseDelay,
		}),
		tool.WithLogger(logger),
		tool.WithApprovalGate(gate),
		tool.WithTracer(tracer),
		tool.WithMetrics(metrics),
	}
	if cfg.ToolPolicy.FatalErrors {
		dispatcherOpts = append(dispatcherOpts, tool.WithFatalToolErrors())
	}
	if len(cfg.ToolPolicy.NeedsApproval) > 0 {
		dispatcherOpts = append(dispatcherOpts, tool.WithApprovalRequired(cfg.ToolPolicy.NeedsApproval...))
	}
	dispatcher := tool.NewDispatcher(registry, dispatcherOpts...)

	sessionStore, err := buildSessionStore(cfg.Memory)
	if err != nil {
		return nil, nil, err
	}

	estimator, err := buildEstimator(cfg.LLM.Model)
	if err != nil {
		return nil, nil, err
	}

	opts := []agent.Option{
		agent.WithTracer(tracer),
		agent.WithMetrics(metrics),
	}
	if sessionStore != nil {
		opts = append(opts, agent.WithSessionStore(sessionStore))
	}

	d, err := agent.NewDriver(gateway, dispatcher, estimator, agent.Config{
		Name:           cfg.Name,
		SystemPrompt:   cfg.SystemPrompt,
		MaxIterations:  cfg.MaxIterations,
		TokenBudget:    cfg.TokenBudget,
		AllowList:      cfg.AllowList,
		ChainOfThought: cfg.ChainOfThought,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		SessionID:      cfg.SessionID,
	}, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("agentcore: building driver: %w", err)
	}

	if cfg.Features.SubAgents {
		if err := registry.Register(agenttool.New(d.SubAgents())); err != nil {
			return nil, nil, fmt.Errorf("agentcore: registering agent_tool: %w", err)
		}
	}

	return d, metricsCleanup, nil
}

// buildKvStore selects the memory.KvStore backend feeding the
// remember/recall/forget control tools, mirroring buildSessionStore's
// backend selection plus an etcd option for multi-process deployments.
func buildKvStore(cfg config.MemoryConfig) (memory.KvStore, error) {
	switch cfg.Backend {
	case "memory", "":
		return memory.NewMemoryKvStore(), nil
	case "file":
		return memory.NewFileKvStore(cfg.Path)
	case "sql":
		return memory.NewSQLKvStore(cfg.DSN)
	case "etcd":
		client, err := clientv3.New(clientv3.Config{Endpoints: cfg.Servers})
		if err != nil {
			return nil, fmt.Errorf("agentcore: connecting to etcd: %w", err)
		}
		return memory.NewEtcdKvStore(client), nil
	default:
		return nil, fmt.Errorf("agentcore: unsupported kv store backend %q", cfg.Backend)
	}
}

func loadConfig(path string) (*config.AgentConfig, error) {
	if path == "" {
		cfg := config.Defaults()
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("agentcore: no --config given and OPENAI_API_KEY is unset")
		}
		return cfg, nil
	}
	return config.Load(path)
}

func buildGateway(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (llm.Gateway, error) {
	switch cfg.Provider {
	case "gemini":
		return llm.NewGeminiGateway(ctx, llm.GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, Logger: logger})
	case "openai", "":
		return llm.NewOpenAIGateway(llm.OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout,
			RetryPolicy: llm.DefaultRetryPolicy(),
			Logger:      logger,
		}), nil
	default:
		return nil, fmt.Errorf("agentcore: unknown llm provider %q", cfg.Provider)
	}
}

func buildSessionStore(cfg config.MemoryConfig) (memory.SessionStore, error) {
	switch cfg.Backend {
	case "memory", "":
		return memory.NewMemorySessionStore(), nil
	case "file":
		return memory.NewFileSessionStore(cfg.Path)
	case "sql":
		return memory.NewSQLSessionStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("agentcore: unsupported session store backend %q", cfg.Backend)
	}
}

func buildEstimator(model string) (contextbuf.Estimator, error) {
	est, err := contextbuf.NewTiktokenEstimator(model)
	if err != nil {
		slog.Warn("falling back to char-based token estimator", "model", model, "err", err)
		return contextbuf.CharEstimator{}, nil
	}
	return est, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()
	return ctx, cancel
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("agentcore"),
		kong.Description("agentcore — a ReAct-loop LLM agent runtime"),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}
