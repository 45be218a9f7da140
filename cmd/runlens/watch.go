package main

import (
	"context"
	"os"
	"strings"

	"github.com/aretw0/runlens/internal/cli"
	"github.com/aretw0/runlens/internal/config"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [question]",
	Short: "Submit a question and follow the run live",
	Long:  `Opens the event stream for a question, prints progress as nodes run and prints the answer, the final diff and usage once the stream closes.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, _ := cmd.Flags().GetBool("archive")
		quiet, _ := cmd.Flags().GetBool("quiet")
		wsURL, _ := cmd.Flags().GetString("ws-url")

		env, err := setupEnv(cmd, func(c *config.Config) {
			if wsURL != "" {
				c.Backend.WSURL = wsURL
			}
		})
		if err != nil {
			return err
		}
		defer env.Close(context.Background())

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err = cli.RunWatch(ctx, env, cli.WatchOptions{
			Question: strings.Join(args, " "),
			Archive:  archive,
			Quiet:    quiet,
		}, os.Stdout)
		if sig := ctx.Signal(); sig != nil {
			env.Logger.Debug("Watch stopped by signal", "signal", sig)
		}
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolP("archive", "a", false, "Archive the recording when the run finishes")
	watchCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
	watchCmd.Flags().String("ws-url", "", "Override the backend stream URL")
}
