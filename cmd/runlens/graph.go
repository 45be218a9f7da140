package main

import (
	"os"

	"github.com/aretw0/runlens/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the agent graph visualization",
	Long: `Fetches the graph schema and outputs a Mermaid diagram (graph TD).
With --run, node statuses of the archived run at --cursor are overlaid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")
		cursor, _ := cmd.Flags().GetInt("cursor")

		env, err := setupEnv(cmd, nil)
		if err != nil {
			return err
		}
		defer env.Close(cmd.Context())

		return cli.RunGraph(cmd.Context(), env, cli.GraphOptions{RunID: runID, Cursor: cursor}, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().String("run", "", "Archived run to overlay")
	graphCmd.Flags().Int("cursor", -1, "Snapshot of the run to overlay; negative values count from the end")
}
