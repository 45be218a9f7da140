package main

import (
	"fmt"
	"os"

	"github.com/aretw0/runlens/internal/cli"
	"github.com/aretw0/runlens/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "runlens",
	Short: "runlens watches and replays multi-agent research runs",
	Long: `runlens consumes the event stream of a multi-agent research backend,
records every state snapshot and lets you follow a run live or step through it afterwards.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+config.DefaultFile+")")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// setupEnv wires the environment from the persistent flags.
// overrides apply flag values on top of the loaded configuration.
func setupEnv(cmd *cobra.Command, overrides func(*config.Config)) (*cli.Env, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Setup(cli.Options{
		ConfigPath: path,
		Debug:      debug,
		Overrides:  overrides,
	})
}
