package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/runlens"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of runlens",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("runlens version %s\n", strings.TrimSpace(runlens.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
