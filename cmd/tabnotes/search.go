package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tabnotes"
	"github.com/aretw0/tabnotes/pkg/search"
)

var searchTabPattern string

var searchCmd = &cobra.Command{
	Use:   "search <words>",
	Short: "Find notes containing any of the words",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ws := openWorkspace(ctx)
		defer closeWorkspace(ws)

		var opts []search.Option
		if searchTabPattern != "" {
			opts = append(opts, search.WithTabPattern(searchTabPattern))
		}
		results, err := tabnotes.Search(ws.Tabs.Snapshot().Tabs, strings.Join(args, " "), opts...)
		if err != nil {
			fatal("Search failed", err)
		}

		if jsonOut {
			printJSON(results)
			return
		}
		if len(results) == 0 {
			fmt.Println("No notes found.")
			return
		}
		for _, r := range results {
			fmt.Printf("%s (%s)\n", r.TabName, r.TabID)
			for _, m := range r.Matches {
				fmt.Printf("%3d. %s\n", m.Index+1, m.Note.Title)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchTabPattern, "tab-pattern", "", "Only search tabs whose name matches this glob")
}
