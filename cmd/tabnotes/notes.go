package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the notes of a tab",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		tabID := currentTab(ws)
		tab, ok := ws.Tabs.Snapshot().Tabs[tabID]
		if !ok {
			fatal("Error listing notes", fmt.Errorf("unknown tab %q", tabID))
		}

		if jsonOut {
			printJSON(tab)
			return
		}
		fmt.Printf("%s (%s)\n", tab.Name, tabID)
		if len(tab.Items) == 0 {
			fmt.Println("  no notes")
			return
		}
		for i, note := range tab.Items {
			fmt.Printf("%3d. %s\n", i+1, note.Title)
			if note.Description != "" {
				fmt.Printf("     %s\n", note.Description)
			}
		}
	},
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a note at the top of a tab",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		note, err := ws.Tabs.AddNote(ctx, currentTab(ws), strings.Join(args, " "))
		if err != nil {
			fatal("Failed to add note", err)
		}
		fmt.Printf("Added %q\n", note.Title)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <position> <description>",
	Short: "Set the description of a note",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		index, err := parseIndex(args[0])
		if err != nil {
			fatal("Failed to edit note", err)
		}

		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if err := ws.Tabs.SaveDescription(ctx, currentTab(ws), index, strings.Join(args[1:], " ")); err != nil {
			fatal("Failed to edit note", err)
		}
		fmt.Println("Description saved.")
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <position>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		index, err := parseIndex(args[0])
		if err != nil {
			fatal("Failed to delete note", err)
		}

		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if err := ws.Tabs.DeleteNote(ctx, currentTab(ws), index); err != nil {
			fatal("Failed to delete note", err)
		}
		fmt.Println("Note deleted.")
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <position> <destination-tab>",
	Short: "Move a note to the end of another tab",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		index, err := parseIndex(args[0])
		if err != nil {
			fatal("Failed to move note", err)
		}

		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if err := ws.Tabs.MoveNote(ctx, currentTab(ws), index, args[1]); err != nil {
			fatal("Failed to move note", err)
		}
		fmt.Printf("Note moved to %s.\n", args[1])
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder <from> <to>",
	Short: "Move a note to another position within its tab",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		from, err := parseIndex(args[0])
		if err != nil {
			fatal("Failed to reorder notes", err)
		}
		to, err := parseIndex(args[1])
		if err != nil {
			fatal("Failed to reorder notes", err)
		}

		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		if err := ws.Tabs.ReorderNotes(ctx, currentTab(ws), from, to); err != nil {
			fatal("Failed to reorder notes", err)
		}
		fmt.Println("Notes reordered.")
	},
}

func init() {
	rootCmd.AddCommand(listCmd, addCmd, editCmd, deleteCmd, moveCmd, reorderCmd)
}
