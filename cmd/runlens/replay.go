package main

import (
	"os"

	"github.com/aretw0/runlens/internal/cli"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [run-id]",
	Short: "Step through an archived run",
	Long:  `Reopens an archived recording in replay mode and prints the frame at the requested snapshot.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cursor, _ := cmd.Flags().GetInt("cursor")
		all, _ := cmd.Flags().GetBool("all")

		env, err := setupEnv(cmd, nil)
		if err != nil {
			return err
		}
		defer env.Close(cmd.Context())

		return cli.RunReplay(cmd.Context(), env, cli.ReplayOptions{
			RunID:  args[0],
			Cursor: cursor,
			All:    all,
		}, os.Stdout)
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List archived runs, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setupEnv(cmd, nil)
		if err != nil {
			return err
		}
		defer env.Close(cmd.Context())

		return cli.RunListArchive(cmd.Context(), env, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(archiveCmd)

	replayCmd.Flags().IntP("cursor", "c", 0, "Snapshot to show; negative values count from the end")
	replayCmd.Flags().Bool("all", false, "Print every snapshot in order")
}
