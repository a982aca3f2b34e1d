package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tabnotes"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tabnotes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tabnotes version %s\n", strings.TrimSpace(tabnotes.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
