package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/tabnotes/pkg/core"
)

var (
	reviewEnable  bool
	reviewDisable bool
)

var loginCmd = &cobra.Command{
	Use:   "login <user>",
	Short: "Sign in; the first login migrates local notes to the remote store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		result, err := ws.Sync.Login(ctx, args[0])
		if err != nil {
			fatal("Failed to sign in", err)
		}
		if result.Migrated {
			fmt.Printf("Signed in as %s, migrated %d notes in %d tabs.\n", result.UserID, result.Notes, result.Tabs)
			if result.Failed > 0 {
				fmt.Printf("%d writes failed, see the log.\n", result.Failed)
			}
			return
		}
		fmt.Printf("Signed in as %s, loaded %d notes in %d tabs.\n", result.UserID, result.Notes, result.Tabs)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and return to the local notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if err := ws.Sync.Logout(ctx); err != nil {
			fatal("Failed to sign out", err)
		}
		fmt.Println("Signed out.")
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Show or toggle AI suggestions for the signed-in user",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if reviewEnable || reviewDisable {
			if err := ws.Review.SetEnabled(ctx, ws.Sync.UserID(), reviewEnable); err != nil {
				fatal("Failed to update review", err)
			}
		}

		record := ws.Review.Record()
		if jsonOut {
			printJSON(record)
			return
		}
		fmt.Printf("suggestions enabled: %v\n", record.Enabled)
		categories := make([]string, 0, len(record.Suggestions))
		for c := range record.Suggestions {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Printf("%s:\n", c)
			for _, s := range record.Suggestions[c] {
				fmt.Printf("  - %s\n", s)
			}
		}
		if !record.LastAnalyzedAt.IsZero() {
			fmt.Printf("last analyzed: %s\n", record.LastAnalyzedAt.Format("2006-01-02 15:04"))
		}
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the tabs whenever another process changes the local notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		unsubscribe := ws.Tabs.Subscribe(func(s core.State) {
			fmt.Printf("%d notes in %d tabs\n", s.Tabs.Count(), len(s.Tabs))
		})
		defer unsubscribe()

		fmt.Printf("Watching %s (Ctrl+C to stop)\n", ws.Config.DataDir)
		if err := ws.Sync.Follow(ctx); err != nil {
			fatal("Failed to watch", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, reviewCmd, watchCmd)
	reviewCmd.Flags().BoolVar(&reviewEnable, "enable", false, "Enable suggestions")
	reviewCmd.Flags().BoolVar(&reviewDisable, "disable", false, "Disable suggestions")
	reviewCmd.MarkFlagsMutuallyExclusive("enable", "disable")
}
