package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/tabnotes"
)

var (
	verbose    bool
	jsonOut    bool
	dataDir    string
	configFile string
	remoteURI  string
	userID     string
	tabFlag    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tabnotes",
	Short: "Notes organized in tabs, local first with optional remote sync",
	Long: `tabnotes keeps short notes grouped into named tabs.
Without a signed-in user everything lives in the local data directory.
After "tabnotes login" changes are also written to the remote store.`,
}

// setupLogging installs the default logger. The level comes from the
// resolved configuration unless --verbose is set.
func setupLogging(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	if cfg, err := tabnotes.Resolve(workspaceOptions()...); err == nil {
		level = cfg.LogLevel
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRun = setupLogging

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&jsonOut, "json", false, "Output in JSON format where listing")
	flags.StringVar(&dataDir, "data-dir", "", "Local data directory (default: nearest .tabnotes or the user config dir)")
	flags.StringVar(&configFile, "config", "", "Config file (default: <data-dir>/tabnotes.yaml)")
	flags.StringVar(&remoteURI, "remote", "", "Remote store URI (memory://, redis://, sqlite://, postgres://)")
	flags.StringVar(&userID, "user", "", "Sign in as this user")
	flags.StringVar(&tabFlag, "tab", "", "Tab to operate on (default: the current tab)")
}

func workspaceOptions() []tabnotes.Option {
	opts := []tabnotes.Option{tabnotes.WithLogger(slog.Default())}
	if dataDir != "" {
		opts = append(opts, tabnotes.WithDataDir(dataDir))
	}
	if configFile != "" {
		opts = append(opts, tabnotes.WithConfigFile(configFile))
	}
	if rootCmd.PersistentFlags().Changed("remote") {
		opts = append(opts, tabnotes.WithRemoteURI(remoteURI))
	}
	if userID != "" {
		opts = append(opts, tabnotes.WithUser(userID))
	}
	return opts
}

func openWorkspace(ctx context.Context) *tabnotes.Workspace {
	ws, err := tabnotes.Open(ctx, workspaceOptions()...)
	if err != nil {
		fatal("Failed to open workspace", err)
	}
	return ws
}

// closeWorkspace waits for pending remote writes before the process exits.
func closeWorkspace(ws *tabnotes.Workspace) {
	if err := ws.Close(); err != nil {
		slog.Warn("failed to close workspace", "error", err)
	}
}

// currentTab resolves --tab against the workspace.
func currentTab(ws *tabnotes.Workspace) string {
	if tabFlag != "" {
		return tabFlag
	}
	return ws.Tabs.Snapshot().CurrentTab
}

// parseIndex converts a 1-based position from the command line.
func parseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", arg)
	}
	if n < 1 {
		return 0, fmt.Errorf("position %d: positions start at 1", n)
	}
	return n - 1, nil
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Error encoding JSON", err)
	}
}
