package main

import (
	"github.com/aretw0/runlens/internal/cli"
	"github.com/aretw0/runlens/internal/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Exposes runs, replay controls, frames over SSE, drift, traces and the archive as a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		env, err := setupEnv(cmd, func(c *config.Config) {
			if cmd.Flags().Changed("port") {
				c.Server.Port = port
			}
		})
		if err != nil {
			return err
		}
		defer env.Close(cmd.Context())

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunServe(ctx, env, env.Config.Server.Port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
}
