package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"monitor/internal/acp"
	"monitor/internal/activity"
	"monitor/internal/app"
	"monitor/internal/config"
	"monitor/internal/logging"
	"monitor/internal/session"
	"monitor/internal/store"
	"monitor/internal/types"
)

const usageText = `monitor keeps an eye on coding-agent sessions in a workspace.

Usage:
  monitor <command> [flags]

Commands:
  ui        run the terminal UI (default)
  sessions  list the workspace's agent sessions
  models    list the agent's providers and models
  doctor    check the agent installation
  version   print the version
  help      show help

Flags:
  -h, --help   show help

Examples:
  monitor ui
  monitor sessions --json
  monitor doctor
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		exitOnErr("ui", runUI(nil))
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	case "sessions":
		exitOnErr("sessions", runSessions(args[1:]))
	case "models":
		exitOnErr("models", runModels(args[1:]))
	case "doctor":
		exitOnErr("doctor", runDoctor(args[1:]))
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", "", "workspace directory (defaults to the current directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
	}
	logger := openLogger(cfg)

	entry, err := workspaceEntry(*dir, cfg)
	if err != nil {
		return err
	}

	dbPath, err := config.DBPath()
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	client, err := acp.Dial(ctx, entry, cfg.AgentCommand(), logger)
	if err != nil {
		return err
	}
	defer client.Close()

	controller := session.NewController(logger)
	tracker := activity.NewTracker(st, func(key store.BaselineKey) (types.ActivityCounters, bool) {
		if key.WorkspaceID != controller.WorkspaceID() {
			return types.ActivityCounters{}, false
		}
		state, ok := controller.SessionState(key.SessionID)
		if !ok {
			return types.ActivityCounters{}, false
		}
		return activity.Snapshot(state.Items, state.Plan), true
	}, logger)
	defer tracker.Close()

	controller.SetWorkspace(entry.ID, client, session.Subscription{
		Events: client.Events(),
		Cancel: client.Close,
	})
	touchOnChange(controller, tracker)

	prompt := session.PromptOptions{
		ProviderID: cfg.Agent.DefaultProvider,
		ModelID:    cfg.Agent.DefaultModel,
	}
	return app.Run(app.NewModel(controller, tracker, prompt, logger))
}

// touchOnChange feeds reducer changes into the idle-recapture timers so a
// session that goes quiet gets its baseline refreshed. Only the sessions a
// change actually touched are reset; an idle session keeps its timer running
// no matter how busy the rest of the workspace is.
func touchOnChange(controller *session.Controller, tracker *activity.Tracker) {
	controller.SetOnChange(func(sessionIDs []string) {
		workspaceID := controller.WorkspaceID()
		for _, sessionID := range sessionIDs {
			tracker.Touch(store.BaselineKey{
				Kind:        "session",
				WorkspaceID: workspaceID,
				SessionID:   sessionID,
			})
		}
	})
}

func runSessions(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", "", "workspace directory (defaults to the current directory)")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _ := config.Load()
	entry, err := workspaceEntry(*dir, cfg)
	if err != nil {
		return err
	}
	sessions, err := acp.ListSessions(context.Background(), entry, cfg.AgentCommand())
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTITLE")
	for _, info := range sessions {
		title := info.Title
		if title == "" {
			title = "Untitled Session"
		}
		fmt.Fprintf(writer, "%s\t%s\n", info.ID, title)
	}
	return writer.Flush()
}

func runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dir := fs.String("dir", "", "workspace directory (defaults to the current directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _ := config.Load()
	entry, err := workspaceEntry(*dir, cfg)
	if err != nil {
		return err
	}
	providers, err := acp.ListProviders(context.Background(), entry, cfg.AgentCommand())
	if err != nil {
		return err
	}
	for _, provider := range providers {
		fmt.Println(provider.Name)
		for _, model := range provider.Models {
			fmt.Printf("  %s/%s\n", provider.ID, model.ID)
		}
	}
	return nil
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, _ := config.Load()
	report := acp.Doctor(context.Background(), cfg.AgentCommand())
	if report.Version != "" {
		fmt.Printf("agent: %s (%s)\n", report.Bin, report.Version)
	} else {
		fmt.Printf("agent: %s\n", report.Bin)
	}
	if report.ACPOK {
		fmt.Println("acp: ok")
	} else {
		fmt.Println("acp: unavailable")
	}
	if report.Details != "" {
		fmt.Println(report.Details)
	}
	if !report.OK {
		os.Exit(1)
	}
	return nil
}

func workspaceEntry(dir string, cfg config.Config) (types.WorkspaceEntry, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return types.WorkspaceEntry{}, err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return types.WorkspaceEntry{}, err
	}
	return types.WorkspaceEntry{
		ID:       abs,
		Name:     filepath.Base(abs),
		Path:     abs,
		AgentBin: cfg.Agent.Command,
	}, nil
}

func openLogger(cfg config.Config) logging.Logger {
	path, err := config.LogPath()
	if err != nil {
		return logging.Nop()
	}
	sink, err := logging.FileSink(path)
	if err != nil {
		return logging.Nop()
	}
	return logging.New(sink, logging.ParseLevel(cfg.LogLevel()))
}

func exitOnErr(label string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", label, err)
	os.Exit(1)
}
