package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type tabSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Notes   int    `json:"notes"`
	Current bool   `json:"current"`
}

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List the tabs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		s := ws.Tabs.Snapshot()
		summaries := make([]tabSummary, 0, len(s.Tabs))
		for _, id := range s.Tabs.IDs() {
			tab := s.Tabs[id]
			summaries = append(summaries, tabSummary{
				ID:      id,
				Name:    tab.Name,
				Notes:   len(tab.Items),
				Current: id == s.CurrentTab,
			})
		}

		if jsonOut {
			printJSON(summaries)
			return
		}
		for _, t := range summaries {
			marker := " "
			if t.Current {
				marker = "*"
			}
			fmt.Printf("%s %-36s %-20s %d\n", marker, t.ID, t.Name, t.Notes)
		}
	},
}

var tabCmd = &cobra.Command{
	Use:   "tab",
	Short: "Create, rename or delete tabs",
}

var tabAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a tab",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		id := ws.Tabs.AddTab()
		if name := strings.Join(args, " "); name != "" {
			if err := ws.Tabs.RenameTab(ctx, id, name); err != nil {
				fatal("Failed to name tab", err)
			}
		}
		fmt.Println(id)
	},
}

var tabRenameCmd = &cobra.Command{
	Use:   "rename <tab> <name>",
	Short: "Rename a tab",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if _, err := ws.Tabs.BeginRename(args[0]); err != nil {
			fatal("Failed to rename tab", err)
		}
		if err := ws.Tabs.RenameTab(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			fatal("Failed to rename tab", err)
		}
		fmt.Println("Tab renamed.")
	},
}

var tabDeleteCmd = &cobra.Command{
	Use:   "delete <tab>",
	Short: "Delete a tab and its notes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if err := ws.Tabs.DeleteTab(ctx, args[0]); err != nil {
			fatal("Failed to delete tab", err)
		}
		fmt.Println("Tab deleted.")
	},
}

func init() {
	tabCmd.AddCommand(tabAddCmd, tabRenameCmd, tabDeleteCmd)
	rootCmd.AddCommand(tabsCmd, tabCmd)
}
