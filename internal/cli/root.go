package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Env        string
	LogLevel   string
}

// NewRootCommand creates the root command for the goldeater CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "goldeater",
		Short: "GoldEater - AI recommendation scanner",
		Long: `GoldEater asks AI assistants for restaurant recommendations across a
hexagonal grid of a district, stores every ranking, and resolves the
recommended names to real places.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config (built-in defaults when empty)")
	cmd.PersistentFlags().StringVar(&opts.Env, "env", "", "environment override (local|dev|prod)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")

	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewGridCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}
