package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/robby/homestock/internal/config"
	"github.com/robby/homestock/internal/domain"
	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/store"
	"github.com/robby/homestock/internal/tui"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	// CLI flags
	configDirFlag string
	backendFlag   string
	dbFlag        string
	rollbackFlag  string
	debugFlag     bool
	debugFileFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "homestock",
		Short: "Terminal UI for the household stock list",
		Long: `homestock tracks what the household is running out of.

Every item is OK, Low or Need. Tap an item to cycle its state, pin the
staples you always want on top, and open shopping mode at the store to
tick off what you bought.

Backends:
  sqlite    A list on this machine only (default)
  supabase  A list shared through a Supabase project; set supabase.url
            and an API key in the config file or HOMESTOCK_API_KEY`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	// Define CLI flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configDirFlag, "config-dir", "", "Config directory. Defaults to $XDG_CONFIG_HOME/homestock.")
	pf.StringVar(&backendFlag, "backend", "", "Backend to use: sqlite or supabase.")
	pf.StringVar(&dbFlag, "db", "", "SQLite database path for the sqlite backend.")
	pf.StringVar(&rollbackFlag, "rollback", "", "What a failed write reverts: snapshot or patch.")
	pf.BoolVar(&debugFlag, "debug", false, "Write debug logs.")
	pf.StringVar(&debugFileFlag, "debug-file", "", "Write debug logs to this file.")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the list grouped like the dashboard",
			Args:  cobra.NoArgs,
			RunE:  runList,
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add an item as Low",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runAdd,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "homestock", version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config, starts logging and opens the backend. The returned
// cleanup closes the backend.
func setup(cmd *cobra.Command) (*config.Config, *store.Store, func(), error) {
	dir := configDirFlag
	if dir == "" {
		var err error
		if dir, err = config.Dir(); err != nil {
			return nil, nil, nil, err
		}
	}

	cfg, err := config.Load(dir, cmd.Flags())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logPath, err := logging.Initialize(cfg.Debug, cfg.DebugFile, cfg.MaxLogFiles)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if logPath != "" {
		logging.Logger.Info("homestock starting", "version", version, "config", cfg.File, "backend", cfg.Backend)
	}

	table, cleanup, err := openBackend(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	policy, err := store.ParseRollbackPolicy(cfg.Rollback)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return cfg, store.New(table, store.WithRollbackPolicy(policy)), cleanup, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, s, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Cancelled on exit to close the change feed
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := tui.NewAppModel(ctx, s, tui.Options{
		Gesture:       cfg.Gesture.Controller(),
		CellWidth:     cfg.Gesture.CellWidth,
		CellHeight:    cfg.Gesture.CellHeight,
		ToastDuration: cfg.UI.ToastDuration,
		DashboardURL:  cfg.UI.DashboardURL,
		Timeout:       cfg.RemoteTimeout,
	})

	// Run Bubble Tea program
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}

	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	_, s, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := s.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	groups := s.Groups()
	if groups.Len() == 0 {
		fmt.Fprintln(out, "No items yet.")
		return nil
	}
	for _, sec := range domain.Sections {
		items := groups.Bucket(sec.Key)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s (%d)\n", sec.Label, len(items))
		for _, item := range items {
			fmt.Fprintf(out, "  %-4s %s%s\n", item.State, item.Name, noteSuffix(item))
		}
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	_, s, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// The created order continues from the current maximum
	if err := s.Load(ctx); err != nil {
		return err
	}

	name := strings.Join(args, " ")
	op, err := s.AddItem(name)
	if err != nil {
		return fmt.Errorf("invalid name %q: %w", name, err)
	}
	if err := s.Do(ctx, op); err != nil {
		return fmt.Errorf("failed to add %q: %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", strings.TrimSpace(name))
	return nil
}

func noteSuffix(item domain.Item) string {
	if item.Note == nil {
		return ""
	}
	return " - " + *item.Note
}
