package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/notesd"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of notesd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("notesd version %s\n", strings.TrimSpace(notesd.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
