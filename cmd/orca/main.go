// Command orca is the CLI for the orca agent orchestrator.
//
// Usage:
//
//	orca run "summarize this repo's README"
//	orca run --autonomous "summarize this repo's README"
//	orca info
//	orca info --dangerous-tools
//	orca memory
//	orca memory conversation
//	orca memory agents
//	orca memory agents <agent-id>
//	orca reset
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/amberloop/orca/pkg/config"
	"github.com/amberloop/orca/pkg/execution"
	"github.com/amberloop/orca/pkg/llm"
	"github.com/amberloop/orca/pkg/observability"
	"github.com/amberloop/orca/pkg/orchestrator"
	"github.com/amberloop/orca/pkg/tools/builtin"
)

// CLI defines the command-line interface.
type CLI struct {
	Version RunVersionCmd `cmd:"" name:"version" help:"Show version information."`
	Run     RunCmd        `cmd:"" help:"Send a single prompt to the orchestrator and print its response."`
	Info    InfoCmd       `cmd:"" help:"Show the registered tool catalog, or the dangerous-tool/command lists."`
	Memory  MemoryCmd     `cmd:"" help:"Inspect orchestrator memory for this process."`
	Reset   ResetCmd      `cmd:"" help:"Clear all recorded memory."`

	Config string `short:"c" help:"Path to a YAML config file." type:"path"`
}

// RunVersionCmd prints the build version.
type RunVersionCmd struct{}

func (c *RunVersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("orca version %s\n", version)
	return nil
}

// RunCmd sends one prompt through the orchestrator and prints the result.
type RunCmd struct {
	Prompt        []string `arg:"" help:"The prompt to send." required:""`
	Autonomous    bool     `help:"Drive the dynamic todolist workflow (pkg/state.Executor) instead of the linear task-list planner."`
	MaxIterations int      `help:"Iteration ceiling for --autonomous mode; <= 0 uses the built-in default." default:"50"`
}

func (c *RunCmd) Run(ctx context.Context, cli *CLI) error {
	orc, err := newOrchestrator(cli)
	if err != nil {
		return err
	}

	prompt := joinArgs(c.Prompt)

	var out execution.AgentOutput
	if c.Autonomous {
		out, err = orc.ExecuteAutonomous(ctx, prompt, c.MaxIterations)
	} else {
		out, err = orc.ProcessUserInput(ctx, prompt)
	}
	if err != nil {
		return err
	}

	fmt.Println(out.Response)
	if !out.Success {
		return fmt.Errorf("orca: %s", out.Error)
	}
	return nil
}

// InfoCmd introspects the registered tool catalog and, with
// --dangerous-tools, the security constants backing the dangerous-call
// confirmation gate: the always-gated tool names and the execute_command
// shell-command whitelist/blacklist (pkg/tools/builtin's SafeShellCommands
// and DangerousTools/DangerousShellCommands).
type InfoCmd struct {
	DangerousTools bool `help:"List dangerous tools and shell commands instead of the full tool catalog."`
}

func (c *InfoCmd) Run(cli *CLI) error {
	orc, err := newOrchestrator(cli)
	if err != nil {
		return err
	}

	if c.DangerousTools {
		fmt.Println("tools requiring confirmation:")
		for _, name := range sortedKeys(builtin.DangerousTools) {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println("execute_command safe base commands:")
		for _, name := range sortedKeys(builtin.SafeShellCommands) {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println("execute_command blacklisted base commands:")
		for _, name := range sortedKeys(builtin.DangerousShellCommands) {
			fmt.Printf("  - %s\n", name)
		}
		return nil
	}

	for _, info := range orc.GetToolInfo() {
		fmt.Printf("%s: %s\n", info.Name, info.Description)
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MemoryCmd and its subcommands report what the orchestrator has recorded
// so far in this process. Memory is in-memory only, and each `orca`
// invocation starts a fresh Orchestrator, so there is nothing to report
// unless the command is chained after a run within the same process.
type MemoryCmd struct {
	Stats        MemoryStatsCmd        `cmd:"" default:"1" help:"Show memory cache and turn counts."`
	Conversation MemoryConversationCmd `cmd:"" help:"Show the orchestrator-level conversation history."`
	Agents       MemoryAgentsCmd       `cmd:"" help:"Show per-agent memory summaries, or one agent's detail."`
}

type MemoryStatsCmd struct{}

func (c *MemoryStatsCmd) Run(cli *CLI) error {
	orc, err := newOrchestrator(cli)
	if err != nil {
		return err
	}
	stats := orc.GetMemoryStats()
	fmt.Printf("cached contexts: %d\n", stats.CacheLen)
	fmt.Printf("agents with memory: %d\n", stats.TotalAgentsWithMemory)
	return nil
}

type MemoryConversationCmd struct{}

func (c *MemoryConversationCmd) Run(cli *CLI) error {
	orc, err := newOrchestrator(cli)
	if err != nil {
		return err
	}
	conversations := orc.GetConversations()
	if len(conversations) == 0 {
		fmt.Println("no conversation recorded yet")
		return nil
	}
	for _, conv := range conversations {
		fmt.Println(conv)
	}
	return nil
}

type MemoryAgentsCmd struct {
	AgentID string `arg:"" optional:"" help:"Show full turn history for a single agent ID."`
}

func (c *MemoryAgentsCmd) Run(cli *CLI) error {
	orc, err := newOrchestrator(cli)
	if err != nil {
		return err
	}

	if c.AgentID == "" {
		summaries := orc.GetAgentSummaries()
		if len(summaries) == 0 {
			fmt.Println("no agent memory recorded yet")
			return nil
		}
		for _, s := range summaries {
			fmt.Println(s)
		}
		return nil
	}

	detail, ok := orc.GetAgentDetail(c.AgentID)
	if !ok {
		return fmt.Errorf("orca: no memory recorded for agent %q", c.AgentID)
	}
	fmt.Println(detail)
	return nil
}

// ResetCmd clears all recorded memory. Within a single `orca` process this
// is a no-op (a fresh Orchestrator has nothing to clear); it exists so
// embedders driving the orchestrator as a long-lived in-process object
// have the same reset entry point the CLI exposes.
type ResetCmd struct{}

func (c *ResetCmd) Run(cli *CLI) error {
	orc, err := newOrchestrator(cli)
	if err != nil {
		return err
	}
	orc.ResetConversation()
	fmt.Println("memory cleared")
	return nil
}

func joinArgs(args []string) string {
	prompt := ""
	for i, a := range args {
		if i > 0 {
			prompt += " "
		}
		prompt += a
	}
	return prompt
}

func newOrchestrator(cli *CLI) (*orchestrator.Orchestrator, error) {
	cfg, err := config.Load(cli.Config, config.Overrides{})
	if err != nil {
		return nil, fmt.Errorf("orca: %w", err)
	}
	client := llm.NewHTTPClient(cfg, nil)
	return orchestrator.New(client, orchestrator.Options{
		InteractionHandler: execution.ConsoleInteractionHandler,
	})
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// interrupted is closed, not merely canceled, on the first signal, so
	// main can tell "a command finished on its own" from "a command
	// finished because it observed ctx.Done()" after kctx.Run returns,
	// and exit 130 only in the latter case. Canceling ctx (rather than
	// exiting immediately) lets the running command's orchestrator
	// record the user_interrupted turn before the process exits.
	interrupted := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "orca: interrupted")
		close(interrupted)
		cancel()
	}()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "orca:", err)
		os.Exit(1)
	}

	observability.InitGlobalMetrics(observability.NewMetrics("orca"))

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("orca"),
		kong.Description("orca - a minimal autonomous LLM agent orchestrator"),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := kctx.Run(&cli)

	select {
	case <-interrupted:
		os.Exit(130)
	default:
	}

	kctx.FatalIfErrorf(err)
}
